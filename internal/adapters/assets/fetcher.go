package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// DirFetcher implements ports.AssetFetcher over a local directory.
type DirFetcher struct {
	root string
}

// NewDirFetcher serves assets below root.
func NewDirFetcher(root string) *DirFetcher {
	return &DirFetcher{root: root}
}

// Fetch reads the asset at the slash-separated path.
func (f *DirFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	clean := filepath.Clean("/" + path)
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(clean)))
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", path, err)
	}
	return data, nil
}

// HTTPFetcher implements ports.AssetFetcher against a static file server.
type HTTPFetcher struct {
	client  *fasthttp.Client
	baseURL string
}

// NewHTTPFetcher fetches assets relative to baseURL.
func NewHTTPFetcher(baseURL string, client *fasthttp.Client) *HTTPFetcher {
	if client == nil {
		client = &fasthttp.Client{ReadTimeout: 5 * time.Second}
	}
	return &HTTPFetcher{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Fetch downloads the asset at path.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(f.baseURL + "/" + strings.TrimLeft(path, "/"))

	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if err := f.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("fetch asset %s: %w", path, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("fetch asset %s: status %d", path, resp.StatusCode())
	}
	// resp is released on return
	return append([]byte(nil), resp.Body()...), nil
}
