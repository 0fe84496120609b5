// internal/i18n/catalog.go
//
// Localized message catalog.
//
// Context
// -------
// Every user-visible string the admin forms emit (validation messages,
// toasts, page titles, and button labels) is looked up here by key.  One
// flat YAML file per locale lives under `locales/` and is embedded in the
// binary; an optional directory of the same shape overrides or extends it
// at startup.  Files are parsed into a go-i18n Bundle whose default
// language is the configured fallback locale.
//
// Lookup order
// ------------
//  1. The requested locale, as matched by Resolve.
//  2. The fallback locale (the bundle's default language).
//  3. The key itself, so a missing translation is visible but harmless.
//
// Placeholders are Go template fields (`{{.entity}}`) filled from the
// args map.
//
// Notes
// -----
// • Catalogs are read-only after Load, so T is safe for concurrent use.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Catalog resolves message keys for a set of locales.
type Catalog struct {
	bundle     *goi18n.Bundle
	matcher    language.Matcher
	tags       []language.Tag
	localizers map[string]*goi18n.Localizer
	keys       map[string]map[string]struct{}

	defaultLocale string
}

// Load reads the embedded catalogs, then overlays every *.yaml under dir
// when dir is non-empty.  The file stem is the locale tag.
func Load(dir, defaultLocale, fallbackLocale string) (*Catalog, error) {
	fallback, err := parseTag(fallbackLocale)
	if err != nil {
		return nil, fmt.Errorf("i18n: fallback locale %q: %w", fallbackLocale, err)
	}

	c := &Catalog{
		bundle: goi18n.NewBundle(fallback),
		keys:   make(map[string]map[string]struct{}),
	}
	c.bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	sub, _ := fs.Sub(embedded, "locales")
	if err := c.loadFS(sub); err != nil {
		return nil, err
	}
	if dir != "" {
		err := c.loadFS(os.DirFS(dir))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if len(c.keys[fallback.String()]) == 0 {
		return nil, fmt.Errorf("i18n: fallback locale %q has no catalog", fallbackLocale)
	}

	c.tags = c.bundle.LanguageTags()
	c.matcher = language.NewMatcher(c.tags)
	c.localizers = make(map[string]*goi18n.Localizer, len(c.tags))
	for _, t := range c.tags {
		c.localizers[t.String()] = goi18n.NewLocalizer(c.bundle, t.String())
	}

	c.defaultLocale = fallback.String()
	if t, err := parseTag(defaultLocale); err == nil {
		if _, ok := c.keys[t.String()]; ok {
			c.defaultLocale = t.String()
		}
	}
	return c, nil
}

func (c *Catalog) loadFS(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return err
	}
	for _, name := range files {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read catalog %s: %w", name, err)
		}
		mf, err := c.bundle.ParseMessageFileBytes(raw, name)
		if err != nil {
			return fmt.Errorf("parse catalog %s: %w", name, err)
		}
		loc := mf.Tag.String()
		if c.keys[loc] == nil {
			c.keys[loc] = make(map[string]struct{}, len(mf.Messages))
		}
		for _, m := range mf.Messages {
			c.keys[loc][m.ID] = struct{}{}
		}
	}
	return nil
}

// Resolve maps a requested tag to a locale the catalog knows, falling back
// to the default locale.
func (c *Catalog) Resolve(tag string) string {
	t, err := parseTag(tag)
	if err != nil {
		return c.defaultLocale
	}
	_, idx, conf := c.matcher.Match(t)
	if conf == language.No {
		return c.defaultLocale
	}
	return c.tags[idx].String()
}

// T returns the message for key in locale with placeholders filled.
func (c *Catalog) T(locale, key string, args map[string]string) string {
	cfg := &goi18n.LocalizeConfig{MessageID: key}
	if len(args) > 0 {
		cfg.TemplateData = args
	}
	msg, err := c.localizer(locale).Localize(cfg)
	if err != nil && msg == "" {
		return key
	}
	return msg
}

// Has reports whether locale itself defines key.
func (c *Catalog) Has(locale, key string) bool {
	t, err := parseTag(locale)
	if err != nil {
		return false
	}
	_, ok := c.keys[t.String()][key]
	return ok
}

func (c *Catalog) localizer(locale string) *goi18n.Localizer {
	if l, ok := c.localizers[locale]; ok {
		return l
	}
	return goi18n.NewLocalizer(c.bundle, locale)
}

// parseTag accepts "vi", "vi-VN", and "vi_VN" in any case.
func parseTag(tag string) (language.Tag, error) {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return language.Und, errors.New("empty locale")
	}
	return language.Parse(tag)
}
