package delivery

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"vidframe/logger"
)

// sftpTarget keeps one SSH session open for the whole mirror run.
type sftpTarget struct {
	ssh       *ssh.Client
	client    *sftp.Client
	remoteDir string
	addr      string
}

// settings: host, user, remoteDir, and password or privateKey (base64 or raw
// PEM). port defaults to 22. hostKey, an authorized_keys line, pins the server
// key; without it any host key is accepted.
func newSFTPTarget(ctx context.Context, settings map[string]string) (*sftpTarget, error) {
	cfg, err := sshConfig(settings)
	if err != nil {
		return nil, err
	}

	port := settings["port"]
	if port == "" {
		port = "22"
	}
	addr := net.JoinHostPort(settings["host"], port)

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("create sftp client: %w", err)
	}

	return &sftpTarget{ssh: sshClient, client: sftpClient, remoteDir: settings["remoteDir"], addr: addr}, nil
}

func sshConfig(settings map[string]string) (*ssh.ClientConfig, error) {
	if settings["host"] == "" || settings["user"] == "" || settings["remoteDir"] == "" {
		return nil, fmt.Errorf("missing required settings: host, user, remoteDir")
	}

	var auths []ssh.AuthMethod
	switch {
	case settings["privateKey"] != "":
		signer, err := ssh.ParsePrivateKey(decodeMaybeBase64(settings["privateKey"]))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	case settings["password"] != "":
		auths = append(auths, ssh.Password(settings["password"]))
	default:
		return nil, fmt.Errorf("no auth method provided; set password or privateKey")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if line := settings["hostKey"]; line != "" {
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("parse host key: %w", err)
		}
		hostKeyCallback = ssh.FixedHostKey(key)
	} else {
		logger.Warn("SFTP host key not pinned, accepting any server key")
	}

	return &ssh.ClientConfig{
		User:            settings["user"],
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}, nil
}

func (t *sftpTarget) Write(_ context.Context, name string, r io.Reader) error {
	remotePath := path.Join(t.remoteDir, path.Clean("/"+name))

	dir := path.Dir(remotePath)
	if err := mkdirAllSFTP(t.client, dir); err != nil {
		return fmt.Errorf("ensure remote dir %s: %w", dir, err)
	}

	f, err := t.client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", remotePath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("copy to remote file %s: %w", remotePath, err)
	}

	logger.Debugf("Uploaded '%s' to %s", remotePath, t.addr)
	return nil
}

func (t *sftpTarget) Close() error {
	t.client.Close()
	return t.ssh.Close()
}

// mkdirAllSFTP creates each missing segment of dir on the server.
func mkdirAllSFTP(client *sftp.Client, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}

	cur := ""
	if strings.HasPrefix(dir, "/") {
		cur = "/"
	}
	for _, p := range strings.Split(dir, "/") {
		if p == "" {
			continue
		}
		cur = path.Join(cur, p)
		if _, err := client.Stat(cur); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("stat %s: %w", cur, err)
			}
			if err := client.Mkdir(cur); err != nil {
				return fmt.Errorf("mkdir %s: %w", cur, err)
			}
		}
	}
	return nil
}
