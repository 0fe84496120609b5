package component

import (
	"context"

	"github.com/yanizio/catalog-admin/internal/acl"
	"github.com/yanizio/catalog-admin/internal/auth"
	"github.com/yanizio/catalog-admin/internal/catalog"
	"github.com/yanizio/catalog-admin/internal/config"
	"github.com/yanizio/catalog-admin/internal/form"
	"github.com/yanizio/catalog-admin/internal/i18n"
	"github.com/yanizio/catalog-admin/internal/workflow"
)

// Lister reads entity lists for index pages.  *catalog.Client satisfies it.
type Lister interface {
	List(ctx context.Context, endpoint string) ([]catalog.Entity, error)
}

// Deps exposes shared services to components during Init.
type Deps struct {
	Submitter *workflow.Submitter
	Lister    Lister
	I18n      *i18n.Catalog
	CSRF      *form.CSRF
	Verifier  *auth.Verifier
	ACL       acl.Checker // nil disables per-entity permissions
	Auth      config.Auth

	// TemplateDir, when set, overrides embedded templates file by file.
	TemplateDir string
	// MaxUploadBytes is the thumbnail acceptance limit.
	MaxUploadBytes int64
}
