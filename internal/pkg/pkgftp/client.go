package pkgftp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jlaffaye/ftp"
)

type Config struct {
	Address   string
	User      string
	Password  string
	RemoteDir string
	Timeout   time.Duration
}

type conn interface {
	ChangeDir(path string) error
	List(path string) ([]*ftp.Entry, error)
	Open(path string) (io.ReadCloser, error)
	Quit() error
}

type serverConn struct {
	*ftp.ServerConn
}

func (c serverConn) Open(path string) (io.ReadCloser, error) {
	resp, err := c.Retr(path)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type Client struct {
	conn      conn
	remoteDir string
}

// Dial connects and logs in. Close must be called when done.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c, err := ftp.Dial(cfg.Address, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to FTP server: %w", err)
	}

	if err := c.Login(cfg.User, cfg.Password); err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("failed to login to FTP server: %w", err)
	}

	return &Client{conn: serverConn{c}, remoteDir: cfg.RemoteDir}, nil
}

// Download copies every regular file accepted by keep into localDir and
// returns the local paths sorted by name. A nil keep accepts everything.
func (c *Client) Download(ctx context.Context, localDir string, keep func(name string) bool) ([]string, error) {
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local folder: %w", err)
	}

	if c.remoteDir != "" {
		if err := c.conn.ChangeDir(c.remoteDir); err != nil {
			return nil, fmt.Errorf("failed to change directory: %w", err)
		}
	}

	entries, err := c.conn.List(".")
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		if entry.Type != ftp.EntryTypeFile {
			continue
		}
		// remote names must not escape localDir
		name := filepath.Base(entry.Name)
		if name != entry.Name || (keep != nil && !keep(name)) {
			continue
		}

		localPath := filepath.Join(localDir, name)
		if err := c.downloadFile(name, localPath); err != nil {
			return files, fmt.Errorf("failed to download %s: %w", name, err)
		}
		slog.DebugContext(ctx, "ftp file downloaded", "file", name, "path", localPath)

		files = append(files, localPath)
	}

	sort.Strings(files)
	return files, nil
}

func (c *Client) downloadFile(remotePath, localPath string) error {
	resp, err := c.conn.Open(remotePath)
	if err != nil {
		return err
	}
	defer resp.Close()

	localFile, err := os.Create(localPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(localFile, resp); err != nil {
		_ = localFile.Close()
		return err
	}

	return localFile.Close()
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Quit()
	}
	return nil
}
