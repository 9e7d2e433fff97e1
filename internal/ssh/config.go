package ssh

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	DefaultPort           = "22"
	DefaultConnectTimeout = 30 * time.Second
)

// Config controls how a Client reaches hosts.
type Config struct {
	// AgentSocket is the ssh-agent socket. Defaults to $SSH_AUTH_SOCK.
	AgentSocket string
	// NoAgent skips ssh-agent authentication.
	NoAgent bool
	// IdentityFiles are private keys offered to every host, in addition to
	// the IdentityFile entries ssh_config lists for it.
	IdentityFiles []string
	// Signers are offered to every host before any identity file.
	Signers []ssh.Signer
	// SSHConfigFile resolves host aliases. Defaults to ~/.ssh/config; a
	// missing file is ignored.
	SSHConfigFile string
	// KnownHostsFile verifies host keys. Defaults to ~/.ssh/known_hosts; a
	// missing default file trusts no host, so each connection fails on its own.
	KnownHostsFile string
	// InsecureIgnoreHostKey disables host key verification.
	InsecureIgnoreHostKey bool
	// ConnectTimeout bounds the TCP dial and SSH handshake. Zero means no
	// limit. Remote commands and transfers are never bounded.
	ConnectTimeout time.Duration
	Logger         *zerolog.Logger

	defaultKnownHosts bool
}

func (c *Config) setDefaults() {
	if c.AgentSocket == "" && !c.NoAgent {
		c.AgentSocket = os.Getenv("SSH_AUTH_SOCK")
	}
	if c.SSHConfigFile == "" {
		c.SSHConfigFile = expandHome("~/.ssh/config")
	}
	if c.KnownHostsFile == "" {
		c.KnownHostsFile = expandHome("~/.ssh/known_hosts")
		c.defaultKnownHosts = true
	}
}

func (c Config) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path := expandHome(c.KnownHostsFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && c.defaultKnownHosts {
		return knownhosts.New()
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "load known hosts %s", c.KnownHostsFile)
	}
	return cb, nil
}

// endpoint is a host address after ssh_config resolution.
type endpoint struct {
	addr          string
	identityFiles []string
}

type resolver struct {
	cfg *ssh_config.Config
}

func newResolver(path string) (*resolver, error) {
	f, err := os.Open(expandHome(path))
	if errors.Is(err, fs.ErrNotExist) {
		return &resolver{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open ssh config %s", path)
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "parse ssh config %s", path)
	}
	return &resolver{cfg: cfg}, nil
}

// resolve maps an inventory address to a dialable host:port. The host part
// may be an ssh_config alias; a missing port falls back to the alias's Port
// and then to 22.
func (r *resolver) resolve(address string) endpoint {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		host, port = address, ""
	}

	var identities []string
	if r.cfg != nil {
		alias := host
		if hn, _ := r.cfg.Get(alias, "HostName"); hn != "" {
			host = hn
		}
		if port == "" {
			port, _ = r.cfg.Get(alias, "Port")
		}
		files, _ := r.cfg.GetAll(alias, "IdentityFile")
		for _, f := range files {
			identities = append(identities, expandHome(f))
		}
	}
	if port == "" {
		port = DefaultPort
	}
	return endpoint{addr: net.JoinHostPort(host, port), identityFiles: identities}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
