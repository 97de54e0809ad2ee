package clustermanager

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) os.FileInfo {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chmod(path, 0644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info
}

func TestSCPSender_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.conf")
	info := writeFile(t, path, "listen 80;\n")

	var sent bytes.Buffer
	sender := newSCPSender(&sent, bytes.NewReader([]byte{0, 0}))
	require.NoError(t, sender.send(path, info))

	expected := "C0644 11 site.conf\nlisten 80;\n\x00"
	if a, e := sent.String(), expected; a != e {
		t.Errorf("Protocol stream differs:\n%v", diff.LineDiff(e, a))
	}
}

func TestSCPSender_Directory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conf")
	require.NoError(t, os.Mkdir(dir, 0755))
	require.NoError(t, os.Chmod(dir, 0755))
	writeFile(t, filepath.Join(dir, "a.conf"), "a")
	info, err := os.Stat(dir)
	require.NoError(t, err)

	var sent bytes.Buffer
	sender := newSCPSender(&sent, bytes.NewReader([]byte{0, 0, 0, 0}))
	require.NoError(t, sender.send(dir, info))

	expected := "D0755 0 conf\nC0644 1 a.conf\na\x00E\n"
	if a, e := sent.String(), expected; a != e {
		t.Errorf("Protocol stream differs:\n%v", diff.LineDiff(e, a))
	}
}

func TestSCPSender_ErrorAck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.conf")
	info := writeFile(t, path, "x")

	sender := newSCPSender(&bytes.Buffer{}, strings.NewReader("\x01scp: /etc/missing: No such file or directory\n"))
	err := sender.send(path, info)

	require.EqualError(t, err, "scp: /etc/missing: No such file or directory")
}

func TestSCPSender_ClosedSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.conf")
	info := writeFile(t, path, "x")

	sender := newSCPSender(&bytes.Buffer{}, strings.NewReader(""))

	require.Error(t, sender.send(path, info))
}

func TestShellQuote(t *testing.T) {
	require.Equal(t, `'/srv/it'\''s here'`, shellQuote("/srv/it's here"))
}
