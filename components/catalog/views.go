package catalog

import (
	"html/template"
	"net/http"

	api "github.com/yanizio/catalog-admin/internal/catalog"
	"github.com/yanizio/catalog-admin/internal/form"
	"github.com/yanizio/catalog-admin/internal/logger"
	"github.com/yanizio/catalog-admin/internal/media"
	"github.com/yanizio/catalog-admin/internal/message"
	"github.com/yanizio/catalog-admin/internal/view"
	"github.com/yanizio/catalog-admin/internal/workflow"
)

// listView is the body of list.html.
type listView struct {
	EntityLabel string
	NewHref     string
	Items       []listItem
	LoadError   string
}

type listItem struct {
	Name     string
	Status   string
	Thumb    template.URL
	EditHref string
}

// formView is the body of form.html.
type formView struct {
	Instance     string
	EntityLabel  string
	Editing      bool
	Fields       []form.FieldView
	Thumb        template.URL
	ThumbKind    media.ThumbnailKind
	Busy         bool
	CSRF         string
	Action       string
	UploadAction string
	RemoveAction string
	CancelHref   string
	MaxSize      string
}

func (c *Component) listItem(kind string, e api.Entity) listItem {
	return listItem{
		Name:     e.Name,
		Status:   e.Status,
		Thumb:    view.ImageSrc(e.Thumbnail),
		EditHref: c.Prefix() + "/" + kind + "/" + e.ID + "/edit",
	}
}

func (c *Component) renderForm(w http.ResponseWriter, r *http.Request, inst *workflow.Instance, def *form.EntityDef, toast message.Toast) {
	locale := c.locale(r)
	label := c.i18n.T(locale, def.Label, nil)

	tok, err := c.csrf.Issue(inst.ID)
	if err != nil {
		c.serverError(w, r, err)
		return
	}

	action := c.formURL(inst.ID)
	body := formView{
		Instance:     inst.ID,
		EntityLabel:  label,
		Editing:      inst.Editing(),
		Fields:       form.Fields(def, c.i18n, locale, inst.Values(), inst.FieldErrors),
		Thumb:        view.ImageSrc(inst.Media.Thumbnail.Src),
		ThumbKind:    inst.Media.Thumbnail.Kind,
		Busy:         inst.Busy(),
		CSRF:         tok,
		Action:       action,
		UploadAction: action + "/thumbnail",
		RemoveAction: action + "/thumbnail/remove",
		CancelHref:   def.ListRoute,
		MaxSize:      workflow.HumanBytes(c.maxBytes),
	}

	titleKey := "page.new_title"
	if inst.Editing() {
		titleKey = "page.edit_title"
	}
	title := c.i18n.T(locale, titleKey, map[string]string{"entity": label})
	c.render(w, r, http.StatusOK, "form", c.page(locale, title, def.Kind, toast, body))
}

// page wraps body with the layout data shared by every screen.
func (c *Component) page(locale, title, activeKind string, toast message.Toast, body any) *view.Page {
	p := view.NewPage(c.i18n, locale, title, body)
	if !toast.Empty() {
		p.Toast = &toast
	}
	for _, kind := range form.Kinds() {
		def, _ := form.Lookup(kind)
		p.Nav = append(p.Nav, view.NavItem{
			Label:  c.i18n.T(locale, def.Label, nil),
			Href:   def.ListRoute,
			Active: kind == activeKind,
		})
	}
	return p
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, status int, page string, data *view.Page) {
	if err := c.views.Render(w, status, page, data); err != nil {
		logger.FromContext(r.Context()).Errorw("render failed", "page", page, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
