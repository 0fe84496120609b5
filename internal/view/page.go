package view

import (
	"html/template"
	"strings"

	"github.com/yanizio/catalog-admin/internal/message"
)

// Translator resolves message keys.  *i18n.Catalog satisfies it.
type Translator interface {
	T(locale, key string, args map[string]string) string
}

// NavItem is one entry in the layout's entity menu.
type NavItem struct {
	Label  string
	Href   string
	Active bool
}

// Page is the data every layout render receives.  Body carries the
// page-specific view model.
type Page struct {
	Title  string
	Locale string
	Nav    []NavItem
	Toast  *message.Toast
	Body   any

	tr Translator
}

// NewPage returns a Page bound to tr and locale.
func NewPage(tr Translator, locale, title string, body any) *Page {
	return &Page{Title: title, Locale: locale, Body: body, tr: tr}
}

// T translates key.  Extra arguments are name/value pairs:
//
//	{{ $.T "action.create" "entity" .EntityLabel }}
func (p *Page) T(key string, kv ...string) string {
	if p.tr == nil {
		return key
	}
	var args map[string]string
	if len(kv) >= 2 {
		args = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			args[kv[i]] = kv[i+1]
		}
	}
	return p.tr.T(p.Locale, key, args)
}

// ImageSrc marks a thumbnail source as safe for an <img src>.  Only data
// URIs with an image/ media type and http(s) URLs pass; anything else
// yields an empty source.
func ImageSrc(src string) template.URL {
	switch {
	case strings.HasPrefix(src, "data:image/"):
		return template.URL(src)
	case strings.HasPrefix(src, "https://"), strings.HasPrefix(src, "http://"):
		return template.URL(src)
	default:
		return ""
	}
}
