package clustermanager

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// scpSender speaks the source side of the scp protocol against a remote
// "scp -t" sink
type scpSender struct {
	in   io.Writer
	acks *bufio.Reader
}

func newSCPSender(in io.Writer, out io.Reader) *scpSender {
	return &scpSender{in: in, acks: bufio.NewReader(out)}
}

// ack reads one sink response. 0 is ok, 1 and 2 carry an error line.
func (s *scpSender) ack() error {
	code, err := s.acks.ReadByte()
	if err != nil {
		return fmt.Errorf("reading scp ack: %w", err)
	}
	if code == 0 {
		return nil
	}

	message, _ := s.acks.ReadString('\n')
	message = strings.TrimSpace(message)
	if message == "" {
		message = fmt.Sprintf("scp error code %d", code)
	}
	return errors.New(message)
}

func (s *scpSender) send(path string, info os.FileInfo) error {
	if info.IsDir() {
		return s.sendDir(path, info)
	}
	return s.sendFile(path, info)
}

func (s *scpSender) sendFile(path string, info os.FileInfo) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintf(s.in, "C%04o %d %s\n", info.Mode().Perm(), info.Size(), info.Name()); err != nil {
		return err
	}
	if err := s.ack(); err != nil {
		return err
	}

	if _, err := io.CopyN(s.in, f, info.Size()); err != nil {
		return fmt.Errorf("sending %s: %w", path, err)
	}
	if _, err := s.in.Write([]byte{0}); err != nil {
		return err
	}
	return s.ack()
}

func (s *scpSender) sendDir(path string, info os.FileInfo) error {
	if _, err := fmt.Fprintf(s.in, "D%04o 0 %s\n", info.Mode().Perm(), info.Name()); err != nil {
		return err
	}
	if err := s.ack(); err != nil {
		return err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		childInfo, err := os.Stat(child)
		if err != nil {
			return err
		}
		if !childInfo.IsDir() && !childInfo.Mode().IsRegular() {
			continue
		}
		if err := s.send(child, childInfo); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprint(s.in, "E\n"); err != nil {
		return err
	}
	return s.ack()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
