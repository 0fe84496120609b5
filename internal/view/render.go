// internal/view/render.go
//
// Central view engine: template lookup, override chain, func-map injection,
// and an LRU of parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Render         – write rendered HTML to an http.ResponseWriter.
//   - RenderToString – return template.HTML (tests, fragments).
//
// Lookup precedence (first hit wins):
//   1. the override directory, when configured
//   2. the templates embedded by the component
//
// Every page is parsed together with `layout.html` from the same source, so
// a page only defines the blocks it fills ({{ define "content" }}).

package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/yanizio/catalog-admin/internal/cache"
)

// ErrNotFound is returned when no source holds the requested page.
var ErrNotFound = errors.New("view: template not found")

// layoutFile is parsed with every page.
const layoutFile = "layout.html"

// Engine renders pages from an ordered list of sources.
type Engine struct {
	sources []fs.FS
	funcs   template.FuncMap
	sets    *cache.LRU[string, *template.Template]
	noCache bool
}

// New returns an Engine that searches sources in order.  Nil sources are
// skipped, so callers can pass an optional override directory directly.
func New(sources ...fs.FS) *Engine {
	e := &Engine{
		funcs: template.FuncMap{
			"dict": dict,
		},
		sets: cache.New[string, *template.Template](64, 0),
	}
	for _, s := range sources {
		if s != nil {
			e.sources = append(e.sources, s)
		}
	}
	return e
}

// WithoutCache makes every render re-parse its page.  For template
// development only.
func (e *Engine) WithoutCache() *Engine {
	e.noCache = true
	return e
}

// Render executes page with data and streams it to w with status.  The
// page is rendered to a buffer first so a template error never leaves a
// half-written response.
func (e *Engine) Render(w http.ResponseWriter, status int, page string, data any) error {
	out, err := e.RenderToString(page, data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write([]byte(out))
	return err
}

// RenderToString executes page and returns the HTML.
func (e *Engine) RenderToString(page string, data any) (template.HTML, error) {
	t, err := e.load(page)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutFile, data); err != nil {
		return "", fmt.Errorf("view: execute %s: %w", page, err)
	}
	return template.HTML(buf.String()), nil
}

//
// internal: load
//

// load finds and, if necessary, parses the set for page.
func (e *Engine) load(page string) (*template.Template, error) {
	if !e.noCache {
		if t, ok := e.sets.Get(page); ok {
			return t, nil
		}
	}

	name := page + ".html"
	for _, src := range e.sources {
		if _, err := fs.Stat(src, name); err != nil {
			continue
		}
		t, err := template.New(page).Funcs(e.funcs).ParseFS(src, layoutFile, name)
		if err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", page, err)
		}
		if !e.noCache {
			e.sets.Add(page, t)
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, page)
}

//
// helpers
//

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
