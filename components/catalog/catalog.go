// components/catalog/catalog.go
//
// Catalog admin component: create and edit forms for every registered
// entity kind (brand, category, ...).
//
// Context
// -------
// Each "new" or "edit" page opens a server-side form instance and
// redirects to /admin/forms/{instance}.  Every button on that page POSTs
// back to the instance:
//
//   • /thumbnail         – pick a file (type and size checked locally)
//   • /thumbnail/remove  – clear the pending file or current image
//   • /validate          – live field feedback, JSON
//   • /                  – save
//
// POSTs always end in a 303 redirect.  Success goes to the entity's list
// route with a toast; anything else returns to the instance page, which
// renders the stored errors.
//
// Notes
// -----
// • The admin gate runs first.  Per-entity permissions follow when an ACL
//   checker is configured.
package catalog

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/catalog-admin/internal/acl"
	"github.com/yanizio/catalog-admin/internal/auth"
	api "github.com/yanizio/catalog-admin/internal/catalog"
	"github.com/yanizio/catalog-admin/internal/component"
	"github.com/yanizio/catalog-admin/internal/form"
	"github.com/yanizio/catalog-admin/internal/i18n"
	"github.com/yanizio/catalog-admin/internal/view"
	"github.com/yanizio/catalog-admin/internal/workflow"
)

//go:embed templates/*.html
var templates embed.FS

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the admin forms.
type Component struct {
	sub      *workflow.Submitter
	lister   component.Lister
	i18n     *i18n.Catalog
	csrf     *form.CSRF
	verifier *auth.Verifier
	acl      acl.Checker
	authCfg  struct{ role, login string }
	views    *view.Engine
	maxBytes int64
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "catalog" }

// Prefix is where Routes is mounted.
func (c *Component) Prefix() string { return "/admin" }

// Init stores shared services and prepares the view engine.
func (c *Component) Init(d component.Deps) error {
	if d.Submitter == nil || d.I18n == nil || d.CSRF == nil || d.Verifier == nil {
		return errors.New("catalog component: missing dependencies")
	}
	c.sub = d.Submitter
	c.lister = d.Lister
	c.i18n = d.I18n
	c.csrf = d.CSRF
	c.verifier = d.Verifier
	c.acl = d.ACL
	c.authCfg.role = d.Auth.AdminRole
	c.authCfg.login = d.Auth.LoginURL
	c.maxBytes = d.MaxUploadBytes

	embedded, err := fs.Sub(templates, "templates")
	if err != nil {
		return err
	}
	var override fs.FS
	if d.TemplateDir != "" {
		override = os.DirFS(d.TemplateDir)
	}
	c.views = view.New(override, embedded)
	return nil
}

// Routes builds the router mounted at Prefix.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(auth.Gate(c.verifier, c.authCfg.role, c.authCfg.login))
	r.Use(forwardBearer)

	r.Get("/", c.handleIndex)

	r.Route("/forms/{instance}", func(fr chi.Router) {
		fr.Use(acl.RequirePermission(c.acl, c.instanceTarget))
		fr.Use(c.limitBody)
		fr.Get("/", c.handleShowForm)
		fr.Post("/", c.handleSubmit)
		fr.Post("/thumbnail", c.handleSelectFile)
		fr.Post("/thumbnail/remove", c.handleRemoveThumbnail)
		fr.Post("/validate", c.handleValidate)
	})

	r.Get("/{kind}", c.handleList)
	r.With(acl.RequirePermission(c.acl, kindTarget("create"))).Get("/{kind}/new", c.handleNew)
	r.With(acl.RequirePermission(c.acl, kindTarget("update"))).Get("/{kind}/{id}/edit", c.handleEdit)
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── middleware ───────────────────────────────────*/

// forwardBearer lets backend calls act as the signed-in admin.
func forwardBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := auth.FromContext(r.Context()); ok && p.Token != "" {
			r = r.WithContext(api.WithBearer(r.Context(), p.Token))
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody caps POST bodies at the upload limit plus room for the text
// fields and multipart framing.
func (c *Component) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, c.maxBytes+bodySlack)
		}
		next.ServeHTTP(w, r)
	})
}

// bodySlack is the non-file allowance on top of the upload limit.
const bodySlack = 64 << 10

// kindTarget maps /{kind}/... routes to the entity's ACL component.
func kindTarget(action string) acl.Target {
	return func(r *http.Request) (string, string) {
		def, ok := form.Lookup(chi.URLParam(r, "kind"))
		if !ok {
			return "", ""
		}
		return permission(def), action
	}
}

// instanceTarget maps /forms/{instance} to the instance's entity.  A
// missing instance has no target; the handler renders the expired page.
func (c *Component) instanceTarget(r *http.Request) (string, string) {
	inst, def, err := c.sub.Instance(r.Context(), chi.URLParam(r, "instance"))
	if err != nil {
		return "", ""
	}
	if inst.Editing() {
		return permission(def), "update"
	}
	return permission(def), "create"
}

func permission(def *form.EntityDef) string {
	if def.Permission != "" {
		return def.Permission
	}
	return def.Kind
}
