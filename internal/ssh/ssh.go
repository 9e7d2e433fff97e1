// Package ssh is the transport tasks use to reach a host: remote commands run
// over an SSH session channel and files move over SFTP.
package ssh

import (
	"io"
	"net"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/eniac111/fleetctl/internal/types"
)

// ExecResult is the outcome of a remote command that ran to completion,
// whatever its exit status.
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Session is an open connection to one host. It is not safe for concurrent
// use.
type Session interface {
	// Exec runs command and feeds it stdin (which may be nil). A non-zero
	// exit status is reported in the result, not as an error.
	Exec(command string, stdin io.Reader) (ExecResult, error)
	// Put writes size bytes from content to remotePath with the given mode.
	Put(remotePath string, mode os.FileMode, size int64, content io.Reader) error
	// Get opens remotePath for reading. The reader is valid until the
	// session is closed.
	Get(remotePath string) (io.ReadCloser, error)
	Close() error
}

// Connector opens sessions to hosts.
type Connector interface {
	Connect(host types.Host) (Session, error)
}

// Client opens SSH sessions authenticated with ssh-agent and the identity
// files configured for a host.
type Client struct {
	cfg      Config
	resolver *resolver
	hostKeys ssh.HostKeyCallback
	logger   zerolog.Logger
}

var _ Connector = (*Client)(nil)

// NewClient builds a Client from cfg. The ssh_config and known_hosts files
// are read once, here.
func NewClient(cfg Config) (*Client, error) {
	cfg.setDefaults()

	res, err := newResolver(cfg.SSHConfigFile)
	if err != nil {
		return nil, err
	}
	hostKeys, err := cfg.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Client{cfg: cfg, resolver: res, hostKeys: hostKeys, logger: logger}, nil
}

// Connect dials host and authenticates as host.User.
func (c *Client) Connect(host types.Host) (Session, error) {
	target := c.resolver.resolve(host.Address)
	logger := c.logger.With().Str("host", host.ID.String()).Str("addr", target.addr).Logger()

	conn, err := net.DialTimeout("tcp", target.addr, c.cfg.ConnectTimeout)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to dial %s", target.addr)
	}

	auth, release := c.authMethods(target, logger)
	defer release()
	if len(auth) == 0 {
		conn.Close()
		return nil, pkgerrors.New("no authentication methods available")
	}

	config := &ssh.ClientConfig{
		User:            host.User,
		Auth:            auth,
		HostKeyCallback: c.hostKeys,
	}
	if c.cfg.ConnectTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.cfg.ConnectTimeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, target.addr, config)
	if err != nil {
		conn.Close()
		return nil, pkgerrors.Wrapf(err, "ssh handshake with %s", target.addr)
	}
	// Only the handshake is bounded; commands and transfers may run for
	// as long as they need.
	_ = conn.SetDeadline(time.Time{})

	logger.Debug().Str("user", host.User).Msg("connected")
	return &session{client: ssh.NewClient(sshConn, chans, reqs)}, nil
}

// authMethods returns the methods to offer for target. release closes the
// agent connection once the handshake is over.
func (c *Client) authMethods(target endpoint, logger zerolog.Logger) (methods []ssh.AuthMethod, release func()) {
	release = func() {}

	signers := append([]ssh.Signer{}, c.cfg.Signers...)
	for _, path := range append(append([]string{}, c.cfg.IdentityFiles...), target.identityFiles...) {
		signer, err := loadSigner(path)
		if err != nil {
			logger.Debug().Err(err).Str("identity_file", path).Msg("skipping identity file")
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if !c.cfg.NoAgent && c.cfg.AgentSocket != "" {
		if sock, err := net.Dial("unix", c.cfg.AgentSocket); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(sock).Signers))
			release = func() { sock.Close() }
		} else {
			logger.Debug().Err(err).Msg("failed to connect to ssh-agent")
		}
	}
	return methods, release
}

func loadSigner(path string) (ssh.Signer, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read SSH key")
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse SSH key")
	}
	return signer, nil
}
