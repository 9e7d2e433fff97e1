package ssh

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	pkgerrors "github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type session struct {
	client *ssh.Client
	sftp   *sftp.Client
}

// Exec runs cmd on the remote host via SSH, capturing stdout and stderr
// separately.
func (s *session) Exec(cmd string, stdin io.Reader) (ExecResult, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return ExecResult{}, pkgerrors.Wrap(err, "open session channel")
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdin = stdin
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	res := ExecResult{}
	if err := sess.Run(cmd); err != nil {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) {
			return ExecResult{}, pkgerrors.Wrapf(err, "run %q", cmd)
		}
		res.ExitCode = exitErr.ExitStatus()
	}
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	return res, nil
}

func (s *session) sftpClient() (*sftp.Client, error) {
	if s.sftp != nil {
		return s.sftp, nil
	}
	c, err := sftp.NewClient(s.client)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "start sftp subsystem")
	}
	s.sftp = c
	return c, nil
}

// Put uses SFTP to copy content to a remote file.
func (s *session) Put(remotePath string, mode os.FileMode, size int64, content io.Reader) error {
	c, err := s.sftpClient()
	if err != nil {
		return err
	}

	dst, err := c.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return pkgerrors.Wrapf(err, "create remote file %s", remotePath)
	}
	defer dst.Close()

	n, err := io.Copy(dst, content)
	if err != nil {
		return pkgerrors.Wrapf(err, "write remote file %s", remotePath)
	}
	if n != size {
		return pkgerrors.Errorf("write remote file %s: wrote %d bytes, expected %d", remotePath, n, size)
	}
	if err := dst.Chmod(mode.Perm()); err != nil {
		return pkgerrors.Wrapf(err, "chmod remote file %s", remotePath)
	}
	return nil
}

// Get opens a remote file for reading over SFTP.
func (s *session) Get(remotePath string) (io.ReadCloser, error) {
	c, err := s.sftpClient()
	if err != nil {
		return nil, err
	}
	f, err := c.Open(remotePath)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open remote file %s", remotePath)
	}
	return f, nil
}

func (s *session) Close() error {
	var result *multierror.Error
	if s.sftp != nil {
		if err := s.sftp.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := s.client.Close(); err != nil && !errors.Is(err, io.EOF) {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
