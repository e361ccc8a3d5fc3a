package render

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPagesEmpty(t *testing.T) {
	fl := &fakeLauncher{}
	r := NewRenderer(NewBrowser("", WithLauncher(fl.launch)), Options{}, nil)

	out, err := r.RenderPages(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, fl.calls.Load(), "no pages must not start a browser")
}

func TestRenderPagesNamesFailedPage(t *testing.T) {
	boom := errors.New("chrome not found")
	fl := &fakeLauncher{err: boom}
	r := NewRenderer(NewBrowser("", WithLauncher(fl.launch)), DefaultOptions(), nil)

	_, err := r.RenderPages(context.Background(), map[string]string{
		"narrative_summary": "<p>Summary</p>",
	})
	require.Error(t, err)

	var pe *PageError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "narrative_summary", pe.PageID)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "narrative_summary")
}

func TestNewRendererDefaults(t *testing.T) {
	r := NewRenderer(nil, Options{BaseURL: "https://assets.example/"}, nil)
	d := DefaultOptions()
	assert.Equal(t, d.PaperWidth, r.opts.PaperWidth)
	assert.Equal(t, d.PaperHeight, r.opts.PaperHeight)
	assert.Equal(t, d.PageTimeout, r.opts.PageTimeout)
	assert.Equal(t, "https://assets.example/", r.opts.BaseURL)
	assert.NotNil(t, r.logger)
}

func TestWithBase(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		base   string
		want   string
	}{
		{"no base url", "<p>x</p>", "", "<p>x</p>"},
		{"head", "<html><head><title>t</title></head></html>", "https://a.example/",
			`<html><head><base href="https://a.example/"><title>t</title></head></html>`},
		{"head with attributes", `<HEAD lang="en"></HEAD>`, "https://a.example/",
			`<HEAD lang="en"><base href="https://a.example/"></HEAD>`},
		{"no head", "<p>x</p>", "https://a.example/",
			`<head><base href="https://a.example/"></head><p>x</p>`},
		{"header is not head", "<header>h</header>", "https://a.example/",
			`<head><base href="https://a.example/"></head><header>h</header>`},
		{"escaped", "<head></head>", `https://a.example/?a=1&b="2"`,
			`<head><base href="https://a.example/?a=1&amp;b=&#34;2&#34;"></head>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithBase(tt.markup, tt.base))
		})
	}
}

func chromePath(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no chrome binary available")
	return ""
}

func TestRenderPagesChrome(t *testing.T) {
	if testing.Short() {
		t.Skip("browser test")
	}
	b := NewBrowser(chromePath(t))
	defer b.Shutdown()
	r := NewRenderer(b, DefaultOptions(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	pages := map[string]string{
		"a": "<html><body><h1>First</h1></body></html>",
		"b": "<html><body><h1>Second</h1><p style='height:3000px'>long</p></body></html>",
	}
	out, err := r.RenderPages(ctx, pages)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for id, pdf := range out {
		n, err := api.PageCount(bytes.NewReader(pdf), nil)
		require.NoError(t, err, id)
		assert.Equal(t, 1, n, "page %s must print to exactly one page", id)
	}
	assert.Equal(t, 1, b.Launches())
	assert.NoError(t, b.HealthCheck(ctx))
}
