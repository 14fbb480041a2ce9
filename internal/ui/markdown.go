package ui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

var (
	rendererCache     *glamour.TermRenderer
	rendererCacheOnce sync.Once
	rendererErr       error
)

func getRenderer() (*glamour.TermRenderer, error) {
	rendererCacheOnce.Do(func() {
		rendererCache, rendererErr = glamour.NewTermRenderer(
			glamour.WithStyles(styles.DarkStyleConfig),
			glamour.WithWordWrap(80),
		)
	})
	return rendererCache, rendererErr
}

// RenderMarkdown renders markdown for the terminal. It falls back to the
// raw text if the renderer cannot be built or fails.
func RenderMarkdown(content string) string {
	r, err := getRenderer()
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n") + "\n"
}
