// Package webdav implements docstore.Store over WebDAV.
//
// gowebdav has no context API. A context is only checked before each request
// starts; cancelling it does not abort a request in flight. The client
// timeout is the only bound on a single request.
package webdav

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/studio-b12/gowebdav"

	"kakeibo/internal/config"
	"kakeibo/internal/docstore"
)

// DefaultTimeout applies when the connection carries no timeout.
const DefaultTimeout = 30 * time.Second

// Client is a WebDAV document store.
type Client struct {
	dav *gowebdav.Client
}

// New connects a client to conn.URL with basic credentials.
func New(conn config.Connection) *Client {
	c := gowebdav.NewClient(conn.URL, conn.Username, conn.Password)
	c.SetTimeout(requestTimeout(conn))
	return &Client{dav: c}
}

func requestTimeout(conn config.Connection) time.Duration {
	if conn.Timeout > 0 {
		return conn.Timeout
	}
	return DefaultTimeout
}

// Open is a docstore.Opener for WebDAV.
func Open(conn config.Connection) (docstore.Store, error) {
	if conn.URL == "" {
		return nil, errors.New("webdav: empty URL")
	}
	return New(conn), nil
}

// Exists issues a PROPFIND on path.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := c.dav.Stat(path)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, nil
	}
	return true, nil
}

// Read downloads the whole document.
func (c *Client) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := c.dav.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Write uploads data with a single PUT, overwriting the document.
func (c *Client) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.dav.Write(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return gowebdav.IsErrNotFound(err) || errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}
