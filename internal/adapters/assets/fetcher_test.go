package assets_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/samirrijal/metromap/internal/adapters/assets"
	"github.com/samirrijal/metromap/internal/core/domain"
)

func TestDirFetcher(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "assets", "misc")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "crossing.svg"), []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := assets.NewDirFetcher(root)
	data, err := f.Fetch(context.Background(), domain.CrossingIcon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("unexpected data %q", data)
	}

	if _, err := f.Fetch(context.Background(), "../../etc/passwd"); err == nil {
		t.Error("expected paths to stay below the root")
	}
}

func TestHTTPFetcher(t *testing.T) {
	ln := fasthttputil.NewInmemoryListener()
	go func() {
		_ = fasthttp.Serve(ln, func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) != "/static/assets/u/station.svg" {
				ctx.SetStatusCode(fasthttp.StatusNotFound)
				return
			}
			ctx.SetBodyString("<svg id=\"u\"/>")
		})
	}()
	defer ln.Close()

	client := &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return ln.Dial() }}
	f := assets.NewHTTPFetcher("http://assets.test/static/", client)

	data, err := f.Fetch(context.Background(), "assets/u/station.svg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `<svg id="u"/>` {
		t.Errorf("unexpected data %q", data)
	}
	if _, err := f.Fetch(context.Background(), "assets/tram/station.svg"); err == nil {
		t.Error("expected error for missing asset")
	}
}
