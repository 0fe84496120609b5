package catalog

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	api "github.com/yanizio/catalog-admin/internal/catalog"
	"github.com/yanizio/catalog-admin/internal/form"
	"github.com/yanizio/catalog-admin/internal/logger"
	"github.com/yanizio/catalog-admin/internal/media"
	"github.com/yanizio/catalog-admin/internal/message"
	"github.com/yanizio/catalog-admin/internal/metrics"
	"github.com/yanizio/catalog-admin/internal/requestinfo"
	"github.com/yanizio/catalog-admin/internal/session"
	"github.com/yanizio/catalog-admin/internal/workflow"
)

/*──────────────────────────── pages ────────────────────────────────────────*/

// handleIndex sends /admin to the first entity list.
func (c *Component) handleIndex(w http.ResponseWriter, r *http.Request) {
	kinds := form.Kinds()
	if len(kinds) == 0 {
		http.NotFound(w, r)
		return
	}
	def, _ := form.Lookup(kinds[0])
	http.Redirect(w, r, def.ListRoute, http.StatusFound)
}

func (c *Component) handleList(w http.ResponseWriter, r *http.Request) {
	def, ok := form.Lookup(chi.URLParam(r, "kind"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	locale := c.locale(r)
	toast, _ := session.PopToast(w, r)

	body := listView{
		EntityLabel: c.i18n.T(locale, def.Label, nil),
		NewHref:     c.Prefix() + "/" + def.Kind + "/new",
	}
	if c.lister != nil {
		items, err := c.lister.List(r.Context(), def.Endpoint)
		if err != nil {
			logger.FromContext(r.Context()).Warnw("entity list failed", "entity", def.Kind, "err", err)
			body.LoadError = c.i18n.T(locale, "list.load_failed", nil)
		}
		for _, e := range items {
			body.Items = append(body.Items, c.listItem(def.Kind, e))
		}
	}

	title := c.i18n.T(locale, "page.list_title", map[string]string{"entity": body.EntityLabel})
	c.render(w, r, http.StatusOK, "list", c.page(locale, title, def.Kind, toast, body))
}

func (c *Component) handleNew(w http.ResponseWriter, r *http.Request) {
	inst, err := c.sub.Open(r.Context(), chi.URLParam(r, "kind"))
	if errors.Is(err, workflow.ErrUnknownKind) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		c.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, c.formURL(inst.ID), http.StatusFound)
}

func (c *Component) handleEdit(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	inst, err := c.sub.OpenExisting(r.Context(), kind, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, workflow.ErrUnknownKind), errors.Is(err, api.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		logger.FromContext(r.Context()).Warnw("open edit form failed", "entity", kind, "err", err)
		def, _ := form.Lookup(kind)
		session.SetToast(w, r, message.Error(c.i18n.T(c.locale(r), "list.load_failed", nil)))
		http.Redirect(w, r, def.ListRoute, http.StatusFound)
		return
	}
	http.Redirect(w, r, c.formURL(inst.ID), http.StatusFound)
}

func (c *Component) handleShowForm(w http.ResponseWriter, r *http.Request) {
	inst, def, err := c.sub.Instance(r.Context(), chi.URLParam(r, "instance"))
	if errors.Is(err, workflow.ErrInstanceNotFound) {
		c.expired(w, r)
		return
	}
	if err != nil {
		c.serverError(w, r, err)
		return
	}
	toast, _ := session.PopToast(w, r)
	c.renderForm(w, r, inst, def, toast)
}

/*──────────────────────────── actions ──────────────────────────────────────*/

// handleSubmit saves the form.  A file attached to the same request is
// selected first, so "pick and save" works in one click.
func (c *Component) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instance")
	in, ok := c.parse(w, r, id)
	if !ok {
		return
	}
	locale := c.locale(r)

	if cand, present, err := c.candidate(r); err != nil {
		c.serverError(w, r, err)
		return
	} else if present {
		if inst, err := c.sub.SelectFile(r.Context(), id, locale, in, cand); err != nil {
			c.flashRejection(w, r, inst, err)
			c.afterMutation(w, r, id, err)
			return
		}
	}

	res, err := c.sub.Submit(r.Context(), id, locale, in)
	if err != nil {
		c.afterMutation(w, r, id, err)
		return
	}
	switch res.Status {
	case workflow.Success:
		session.SetToast(w, r, message.Success(res.DisplayMessage()))
		http.Redirect(w, r, res.Redirect, http.StatusSeeOther)
		return
	case workflow.UploadFailed, workflow.CreateFailed:
		session.SetToast(w, r, message.Error(res.DisplayMessage()))
	}
	// Field errors stay on the instance until the next submit.
	http.Redirect(w, r, c.formURL(id), http.StatusSeeOther)
}

func (c *Component) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instance")
	in, ok := c.parse(w, r, id)
	if !ok {
		return
	}

	cand, present, err := c.candidate(r)
	if err != nil {
		c.serverError(w, r, err)
		return
	}
	if !present {
		_, err := c.sub.SaveDraft(r.Context(), id, in)
		if err == nil {
			session.SetToast(w, r, message.Error(c.i18n.T(c.locale(r), "media.no_file", nil)))
		}
		c.afterMutation(w, r, id, err)
		return
	}

	inst, err := c.sub.SelectFile(r.Context(), id, c.locale(r), in, cand)
	c.flashRejection(w, r, inst, err)
	c.afterMutation(w, r, id, err)
}

func (c *Component) handleRemoveThumbnail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instance")
	in, ok := c.parse(w, r, id)
	if !ok {
		return
	}
	_, err := c.sub.RemovePending(r.Context(), id, in)
	c.afterMutation(w, r, id, err)
}

// handleValidate answers live field checks with
// {"valid": bool, "errors": {"name": "..."}}.  ?field=name limits the
// check to one field.  It never mutates the instance, so it skips the
// CSRF check.
func (c *Component) handleValidate(w http.ResponseWriter, r *http.Request) {
	in, _, err := form.ParseValues(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id, locale := chi.URLParam(r, "instance"), c.locale(r)

	var fe form.FieldErrors
	if field := r.URL.Query().Get("field"); field != "" {
		var msg string
		msg, err = c.sub.CheckField(r.Context(), id, locale, field, in)
		fe = form.FieldErrors{}
		if msg != "" {
			fe[field] = msg
		}
	} else {
		fe, err = c.sub.Check(r.Context(), id, locale, in)
	}
	if errors.Is(err, workflow.ErrInstanceNotFound) {
		http.Error(w, c.i18n.T(c.locale(r), "form.expired", nil), http.StatusGone)
		return
	}
	if err != nil {
		c.serverError(w, r, err)
		return
	}
	if fe == nil {
		fe = form.FieldErrors{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Valid  bool             `json:"valid"`
		Errors form.FieldErrors `json:"errors"`
	}{fe.Valid(), fe})
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

// parse reads the request body and checks the CSRF token.  On failure it
// has already written the response.
func (c *Component) parse(w http.ResponseWriter, r *http.Request, id string) (form.Values, bool) {
	if r.ContentLength > c.maxBytes+bodySlack {
		c.tooLarge(w, r, id)
		return form.Values{}, false
	}
	in, tok, err := form.ParseValues(r)
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		c.tooLarge(w, r, id)
		return form.Values{}, false
	case err != nil:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return form.Values{}, false
	}
	if !c.csrf.Verify(tok, id) {
		session.SetToast(w, r, message.Error(c.i18n.T(c.locale(r), "form.csrf_invalid", nil)))
		http.Redirect(w, r, c.formURL(id), http.StatusSeeOther)
		return form.Values{}, false
	}
	return in, true
}

// tooLarge answers a body that exceeds the upload limit before the file
// part could be read.
func (c *Component) tooLarge(w http.ResponseWriter, r *http.Request, id string) {
	metrics.FileRejectionsTotal.WithLabelValues(media.TooLarge.String()).Inc()
	msg := c.i18n.T(c.locale(r), "media.too_large",
		map[string]string{"max": workflow.HumanBytes(c.maxBytes)})
	session.SetToast(w, r, message.Error(msg))
	http.Redirect(w, r, c.formURL(id), http.StatusSeeOther)
}

// candidate returns the uploaded thumbnail part, if the request has one.
func (c *Component) candidate(r *http.Request) (media.Candidate, bool, error) {
	if r.MultipartForm == nil {
		return media.Candidate{}, false, nil
	}
	files := r.MultipartForm.File[form.FieldThumbnail]
	if len(files) == 0 || files[0].Filename == "" {
		return media.Candidate{}, false, nil
	}
	cand, err := readPart(files[0], c.maxBytes)
	return cand, true, err
}

// readPart reads at most limit+1 bytes so an oversized file is detected
// without buffering all of it.
func readPart(fh *multipart.FileHeader, limit int64) (media.Candidate, error) {
	f, err := fh.Open()
	if err != nil {
		return media.Candidate{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return media.Candidate{}, err
	}
	return media.Candidate{
		Filename:     fh.Filename,
		DeclaredType: fh.Header.Get("Content-Type"),
		Size:         fh.Size,
		Content:      content,
	}, nil
}

// flashRejection shows a refused file once, as a toast.
func (c *Component) flashRejection(w http.ResponseWriter, r *http.Request, inst *workflow.Instance, err error) {
	var rej *media.Rejection
	if inst != nil && inst.LastError != "" && errors.As(err, &rej) {
		session.SetToast(w, r, message.Error(inst.LastError))
	}
}

// afterMutation maps workflow errors to redirects.  Rejected files were
// flashed by the caller.
func (c *Component) afterMutation(w http.ResponseWriter, r *http.Request, id string, err error) {
	var rej *media.Rejection
	switch {
	case err == nil, errors.As(err, &rej):
		http.Redirect(w, r, c.formURL(id), http.StatusSeeOther)
	case errors.Is(err, workflow.ErrBusy):
		session.SetToast(w, r, message.Info(c.i18n.T(c.locale(r), "submit.busy", nil)))
		http.Redirect(w, r, c.formURL(id), http.StatusSeeOther)
	case errors.Is(err, workflow.ErrInstanceNotFound):
		c.expired(w, r)
	default:
		c.serverError(w, r, err)
	}
}

func (c *Component) expired(w http.ResponseWriter, r *http.Request) {
	locale := c.locale(r)
	title := c.i18n.T(locale, "form.expired", nil)
	c.render(w, r, http.StatusGone, "expired", c.page(locale, title, "", message.Toast{}, nil))
}

func (c *Component) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Errorw("catalog admin request failed", "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (c *Component) locale(r *http.Request) string {
	return c.i18n.Resolve(requestinfo.LocaleFrom(r.Context()))
}

func (c *Component) formURL(id string) string {
	return c.Prefix() + "/forms/" + id
}
