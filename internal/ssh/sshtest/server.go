// Package sshtest runs an in-process SSH server for tests. Exec requests run
// through the local /bin/sh and the sftp subsystem serves the local
// filesystem.
package sshtest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	fleetssh "github.com/eniac111/fleetctl/internal/ssh"
	"github.com/eniac111/fleetctl/internal/types"
)

// Server is a running test SSH server.
type Server struct {
	// Addr is the 127.0.0.1:port the server listens on.
	Addr string
	// Home is $HOME for commands run by the server.
	Home string
	// IdentityFile holds the only private key the server accepts.
	IdentityFile string
	// KnownHostsFile lists the server's host key for Addr.
	KnownHostsFile string

	listener net.Listener
	wg       sync.WaitGroup
}

// Start launches a server and stops it when t finishes.
func Start(t testing.TB) *Server {
	t.Helper()
	dir := t.TempDir()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}

	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	authorized, err := ssh.NewPublicKey(clientPub)
	if err != nil {
		t.Fatalf("client public key: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(clientPriv, "")
	if err != nil {
		t.Fatalf("marshal client key: %v", err)
	}
	identity := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(identity, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write client key: %v", err)
	}

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("unknown public key")
		},
	}
	config.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	home := filepath.Join(dir, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}

	knownHosts := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(ln.Addr().String())}, hostSigner.PublicKey())
	if err := os.WriteFile(knownHosts, []byte(line+"\n"), 0o600); err != nil {
		t.Fatalf("write known_hosts: %v", err)
	}

	s := &Server{
		Addr:           ln.Addr().String(),
		Home:           home,
		IdentityFile:   identity,
		KnownHostsFile: knownHosts,
		listener:       ln,
	}
	s.wg.Add(1)
	go s.serve(config)
	t.Cleanup(s.Close)
	return s
}

// ClientConfig trusts this server's host key and authenticates with its
// identity file only.
func (s *Server) ClientConfig() fleetssh.Config {
	return fleetssh.Config{
		NoAgent:        true,
		IdentityFiles:  []string{s.IdentityFile},
		KnownHostsFile: s.KnownHostsFile,
		SSHConfigFile:  filepath.Join(s.Home, ".ssh", "config"),
	}
}

// Connector returns a client for this server.
func (s *Server) Connector(t testing.TB) *fleetssh.Client {
	t.Helper()
	c, err := fleetssh.NewClient(s.ClientConfig())
	if err != nil {
		t.Fatalf("ssh client: %v", err)
	}
	return c
}

// Host returns an inventory host pointing at this server.
func (s *Server) Host(id string) types.Host {
	return *types.NewHost(types.MustHostID(id), s.Addr).WithUser("tester")
}

// Close stops accepting connections.
func (s *Server) Close() {
	s.listener.Close()
	s.wg.Wait()
}

func (s *Server) serve(config *ssh.ServerConfig) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn, config)
	}
}

func (s *Server) handleConn(conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()
	sconn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, chReqs)
	}
}

func (s *Server) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	for req := range reqs {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			go s.runCommand(ch, payload.Command)
		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			go serveSFTP(ch)
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func (s *Server) runCommand(ch ssh.Channel, command string) {
	defer ch.Close()

	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = s.Home
	cmd.Env = append(os.Environ(), "HOME="+s.Home)
	cmd.Stdout = ch
	cmd.Stderr = ch.Stderr()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		sendExitStatus(ch, 255)
		return
	}
	go func() {
		_, _ = io.Copy(stdin, ch)
		stdin.Close()
	}()

	status := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status = exitErr.ExitCode()
		} else {
			status = 127
		}
	}
	sendExitStatus(ch, status)
}

func sendExitStatus(ch ssh.Channel, status int) {
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
}

func serveSFTP(ch ssh.Channel) {
	defer ch.Close()
	server, err := sftp.NewServer(ch)
	if err != nil {
		return
	}
	_ = server.Serve()
	server.Close()
}
