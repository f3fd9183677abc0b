package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/lldbhost/internal/integration/debug/bridge"
)

// contentSource resolves session content. *bridge.Queue implements it.
type contentSource interface {
	ProvideContent(ctx context.Context, uri string) (string, bool)
}

// fileHost renders session documents by mirroring them into a directory.
// Without a directory it only logs.
type fileHost struct {
	dir     string
	timeout time.Duration
	log     log.FieldLogger
	source  contentSource
}

func newFileHost(dir string, logger log.FieldLogger) *fileHost {
	return &fileHost{dir: dir, timeout: 5 * time.Second, log: logger}
}

func (h *fileHost) ContentChanged(uri string) {
	h.log.WithField("uri", uri).Debug("content changed")
}

// ShowDocument runs on the bridge loop, so the content is fetched from a
// separate goroutine.
func (h *fileHost) ShowDocument(_ context.Context, doc bridge.Document) error {
	h.log.WithFields(log.Fields{"uri": doc.URI, "title": doc.Title}).Info("show document")
	if h.dir == "" || h.source == nil {
		return nil
	}
	go h.mirror(doc.URI)
	return nil
}

func (h *fileHost) mirror(uri string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	content, ok := h.source.ProvideContent(ctx, uri)
	if !ok {
		h.log.WithField("uri", uri).Warn("document content unavailable")
		return
	}
	if err := h.write(uri, content); err != nil {
		h.log.WithError(err).WithField("uri", uri).Warn("mirror document")
	}
}

func (h *fileHost) write(uri, content string) error {
	target, err := h.pathFor(uri)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, []byte(content), 0o644)
}

// pathFor maps debugger://<session>/<path> to <dir>/<session>/<path>.
func (h *fileHost) pathFor(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != bridge.Scheme || u.Host == "" {
		return "", fmt.Errorf("not a session document: %s", uri)
	}

	rel := path.Clean("/" + u.Path)
	if rel == "/" {
		rel = "/index.html"
	}
	return filepath.Join(h.dir, u.Host, filepath.FromSlash(rel)), nil
}
