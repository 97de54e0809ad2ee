package clustermanager

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig holds the credentials used to log into nodes
type SSHConfig struct {
	User    string
	Port    int
	KeyPath string
	// Password unlocks an encrypted key and is offered for password auth
	Password       string
	KnownHostsPath string
	DialTimeout    time.Duration
	DialRetries    int
	RetryDelay     time.Duration
}

// SSHCommunicator implements NodeCommunicator as a SSH client
type SSHCommunicator struct {
	config       SSHConfig
	clientConfig *ssh.ClientConfig
	log          zerolog.Logger
}

var _ NodeCommunicator = &SSHCommunicator{}

// NewSSHCommunicator parses the configured key and prepares the client config
func NewSSHCommunicator(cfg SSHConfig, logger zerolog.Logger) (*SSHCommunicator, error) {
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.DialRetries == 0 {
		cfg.DialRetries = 10
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	var auth []ssh.AuthMethod
	if cfg.KeyPath != "" {
		signer, err := loadSigner(cfg.KeyPath, cfg.Password)
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("no SSH credentials configured, set ssh.path or ssh.password")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsPath != "" {
		callback, err := knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts: %w", err)
		}
		hostKeyCallback = callback
	}

	return &SSHCommunicator{
		config: cfg,
		clientConfig: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
			Timeout:         cfg.DialTimeout,
		},
		log: logger,
	}, nil
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SSH key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(pemBytes)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		if passphrase == "" {
			return nil, fmt.Errorf("SSH key %s is encrypted, set ssh.password", path)
		}
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(passphrase))
	}
	if err != nil {
		return nil, fmt.Errorf("parse key failed: %w", err)
	}

	return signer, nil
}

// Connect opens a session to node, retrying while the node refuses connections
func (sshComm *SSHCommunicator) Connect(ctx context.Context, node Node) (RemoteSession, error) {
	if node.PublicIP == "" {
		return nil, fmt.Errorf("node %s has no public address", node.Name)
	}
	addr := net.JoinHostPort(node.PublicIP, strconv.Itoa(sshComm.config.Port))

	var client *ssh.Client
	var err error
	for try := 0; ; try++ {
		client, err = sshComm.dial(ctx, addr)
		if err == nil {
			break
		}
		if try >= sshComm.config.DialRetries {
			return nil, fmt.Errorf("dial %s failed: %w", addr, err)
		}
		sshComm.log.Debug().Err(err).Str("node", node.Name).Msg("dial failed, retrying")
		if err := sleep(ctx, sshComm.config.RetryDelay); err != nil {
			return nil, err
		}
	}

	return &sshSession{node: node, client: client, log: sshComm.log.With().Str("node", node.Name).Logger()}, nil
}

func (sshComm *SSHCommunicator) dial(ctx context.Context, addr string) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: sshComm.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshComm.clientConfig)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

type sshSession struct {
	node   Node
	client *ssh.Client
	log    zerolog.Logger
}

// Execute runs command in a fresh channel and streams its stdout
func (s *sshSession) Execute(ctx context.Context, command string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		session, err := s.client.NewSession()
		if err != nil {
			yield("", fmt.Errorf("session failed: %w", err))
			return
		}
		defer session.Close()

		stdout, err := session.StdoutPipe()
		if err != nil {
			yield("", err)
			return
		}
		var stderr bytes.Buffer
		session.Stderr = &stderr

		s.log.Debug().Str("command", command).Msg("running")
		if err := session.Start(command); err != nil {
			yield("", fmt.Errorf("run failed: %w", err))
			return
		}
		stop := context.AfterFunc(ctx, func() { session.Close() })
		defer stop()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if !yield(scanner.Text(), nil) {
				return
			}
		}

		err = session.Wait()
		if ctx.Err() != nil {
			yield("", ctx.Err())
			return
		}
		if err != nil {
			yield("", fmt.Errorf("run failed\ncommand:%s\nstderr:%s\nerr:%w", command, strings.TrimSpace(stderr.String()), err))
		}
	}
}

// Copy transfers src to dest with the scp protocol
func (s *sshSession) Copy(ctx context.Context, src, dest string, recursive bool) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() && !recursive {
		return fmt.Errorf("%s is a directory, copy it recursively", src)
	}

	session, err := s.client.NewSession()
	if err != nil {
		return fmt.Errorf("session failed: %w", err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return err
	}
	var stderr bytes.Buffer
	session.Stderr = &stderr

	flags := "-t"
	if recursive {
		flags = "-r -t"
	}
	if err := session.Start("scp " + flags + " " + shellQuote(dest)); err != nil {
		return fmt.Errorf("starting scp: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { session.Close() })
	defer stop()

	sender := newSCPSender(stdin, stdout)
	err = sender.ack()
	if err == nil {
		err = sender.send(src, info)
	}
	stdin.Close()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("write failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	if err := session.Wait(); err != nil {
		return fmt.Errorf("write failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	s.log.Debug().Str("src", src).Str("dest", dest).Msg("copied")
	return nil
}

func (s *sshSession) Close() error {
	return s.client.Close()
}
