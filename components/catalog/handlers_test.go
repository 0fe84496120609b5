package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/catalog-admin/internal/auth"
	api "github.com/yanizio/catalog-admin/internal/catalog"
	"github.com/yanizio/catalog-admin/internal/component"
	"github.com/yanizio/catalog-admin/internal/config"
	"github.com/yanizio/catalog-admin/internal/form"
	"github.com/yanizio/catalog-admin/internal/i18n"
	"github.com/yanizio/catalog-admin/internal/media"
	"github.com/yanizio/catalog-admin/internal/requestinfo"
	"github.com/yanizio/catalog-admin/internal/store"
	"github.com/yanizio/catalog-admin/internal/workflow"
)

const (
	jwtSecret = "0123456789abcdef0123456789abcdef"
	csrfKey   = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	csrfRe   = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)
)

type fakeHost struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (h *fakeHost) Name() string { return "fake" }

func (h *fakeHost) Upload(context.Context, media.Object) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.err != nil {
		return "", h.err
	}
	return "https://cdn.example.com/catalog/nike.png", nil
}

// backend is a stand-in for the catalog REST API.
type backend struct {
	mu      sync.Mutex
	creates []map[string]any
	status  int
	body    string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch r.Method {
	case http.MethodPost:
		var got map[string]any
		_ = json.NewDecoder(r.Body).Decode(&got)
		b.creates = append(b.creates, got)
		w.WriteHeader(b.status)
		_, _ = io.WriteString(w, b.body)
	case http.MethodGet:
		_, _ = io.WriteString(w, `[{"id":42,"name":"Nike","status":"active"}]`)
	}
}

func (b *backend) respond(status int, body string) {
	b.mu.Lock()
	b.status, b.body = status, body
	b.mu.Unlock()
}

func (b *backend) createCalls() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.creates...)
}

type env struct {
	router  http.Handler
	backend *backend
	host    *fakeHost
	token   string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	require.NoError(t, form.RegisterEmbedded())
	cat, err := i18n.Load("", "en", "vi")
	require.NoError(t, err)

	e := &env{
		backend: &backend{status: http.StatusCreated, body: `{"id":42}`},
		host:    &fakeHost{},
	}
	srv := httptest.NewServer(e.backend)
	t.Cleanup(srv.Close)

	client := api.New(srv.URL, time.Second)
	sub := workflow.NewSubmitter(
		form.NewValidator(cat),
		media.NewUploader(e.host, 2<<20, "catalog"),
		client,
		store.NewMemory(64, time.Hour),
		cat,
	)
	v := auth.NewVerifier(jwtSecret, "access_token")
	e.token, err = v.Issue(auth.Principal{UserID: 1, Roles: []string{"admin"}}, time.Hour)
	require.NoError(t, err)

	c := &Component{}
	require.NoError(t, c.Init(component.Deps{
		Submitter:      sub,
		Lister:         client,
		I18n:           cat,
		CSRF:           form.NewCSRF(csrfKey),
		Verifier:       v,
		Auth:           config.Auth{AdminRole: "admin", LoginURL: "/login", CookieName: "access_token"},
		MaxUploadBytes: 2 << 20,
	}))

	r := chi.NewRouter()
	r.Use(requestinfo.Enrich)
	r.Mount(c.Prefix(), c.Routes())
	e.router = r
	return e
}

func (e *env) serve(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req.Header.Set("Accept-Language", "en")
	req.AddCookie(&http.Cookie{Name: "access_token", Value: e.token})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// open starts a form for kind and returns the instance ID.
func (e *env) open(t *testing.T, kind string) string {
	t.Helper()
	rec := e.serve(httptest.NewRequest(http.MethodGet, "/admin/"+kind+"/new", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/admin/forms/"), loc)
	return strings.TrimPrefix(loc, "/admin/forms/")
}

// page renders the instance and returns its HTML and CSRF token.
func (e *env) page(t *testing.T, id string, cookies ...*http.Cookie) (string, string) {
	t.Helper()
	rec := e.serve(httptest.NewRequest(http.MethodGet, "/admin/forms/"+id, nil), cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	m := csrfRe.FindStringSubmatch(body)
	require.Len(t, m, 2, "csrf token rendered")
	return body, m[1]
}

func (e *env) postForm(path string, vals url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.serve(req)
}

func (e *env) postFile(t *testing.T, path, token, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("csrf_token", token))
	require.NoError(t, mw.WriteField("name", "Nike"))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="thumbnail"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.serve(req)
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

/*──────────────────────────── scenarios ────────────────────────────────────*/

func TestCreateBrandWithoutFile(t *testing.T) {
	e := newEnv(t)
	id := e.open(t, "brand")
	_, tok := e.page(t, id)

	rec := e.postForm("/admin/forms/"+id, url.Values{"name": {"Nike"}, "csrf_token": {tok}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/brand", rec.Header().Get("Location"))

	creates := e.backend.createCalls()
	require.Len(t, creates, 1)
	assert.Equal(t, map[string]any{"name": "Nike", "status": "active"}, creates[0],
		"description and thumbnail are omitted")
	assert.Equal(t, 0, e.host.calls)

	flash := cookie(rec, "catalog_flash")
	require.NotNil(t, flash)
	list := e.serve(httptest.NewRequest(http.MethodGet, "/admin/brand", nil), flash)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), "Brand created successfully.")
	assert.Contains(t, list.Body.String(), "Nike")

	// The instance is gone after success.
	gone := e.serve(httptest.NewRequest(http.MethodGet, "/admin/forms/"+id, nil))
	assert.Equal(t, http.StatusGone, gone.Code)
}

func TestSelectTextFileIsRejected(t *testing.T) {
	e := newEnv(t)
	id := e.open(t, "brand")
	_, tok := e.page(t, id)

	rec := e.postFile(t, "/admin/forms/"+id+"/thumbnail", tok, "notes.txt", "text/plain", []byte("hello"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	flash := cookie(rec, "catalog_flash")
	require.NotNil(t, flash)

	body, _ := e.page(t, id, flash)
	assert.Contains(t, body, "Only image files can be uploaded.")
	assert.NotContains(t, body, "thumb-preview")
	assert.Contains(t, body, `value="Nike"`, "draft text survives the upload round trip")
}

func TestUploadFailureSkipsCreate(t *testing.T) {
	e := newEnv(t)
	e.host.err = errors.New("dial tcp: connection refused")
	id := e.open(t, "category")
	_, tok := e.page(t, id)

	rec := e.postFile(t, "/admin/forms/"+id+"/thumbnail", tok, "shoes.png", "image/png", pngBytes)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	body, tok := e.page(t, id)
	assert.Contains(t, body, "thumb-preview")
	assert.Contains(t, body, "data:image/png;base64,")

	rec = e.postForm("/admin/forms/"+id, url.Values{"name": {"Shoes"}, "csrf_token": {tok}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/forms/"+id, rec.Header().Get("Location"))

	assert.Equal(t, 1, e.host.calls)
	assert.Empty(t, e.backend.createCalls(), "create is never called after a failed upload")

	flash := cookie(rec, "catalog_flash")
	require.NotNil(t, flash)
	body, _ = e.page(t, id, flash)
	assert.Contains(t, body, "The image could not be uploaded.")
}

func TestBackendFieldErrorIsShown(t *testing.T) {
	e := newEnv(t)
	e.backend.respond(http.StatusUnprocessableEntity, `{"errors":{"name":["already exists"]}}`)
	id := e.open(t, "brand")
	_, tok := e.page(t, id)

	rec := e.postForm("/admin/forms/"+id, url.Values{"name": {"Nike"}, "csrf_token": {tok}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/forms/"+id, rec.Header().Get("Location"))
	flash := cookie(rec, "catalog_flash")
	require.NotNil(t, flash)

	body, _ := e.page(t, id, flash)
	assert.Contains(t, body, "already exists")
	assert.Contains(t, body, `value="Nike"`)

	// Shown once: a reload without the flash no longer carries it.
	body, _ = e.page(t, id)
	assert.NotContains(t, body, "already exists")
	assert.Contains(t, body, `value="Nike"`)
}

func TestUploadThenSaveSendsThumbnail(t *testing.T) {
	e := newEnv(t)
	id := e.open(t, "brand")
	_, tok := e.page(t, id)

	rec := e.postFile(t, "/admin/forms/"+id, tok, "nike.png", "image/png", pngBytes)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/brand", rec.Header().Get("Location"))

	creates := e.backend.createCalls()
	require.Len(t, creates, 1)
	assert.Equal(t, "https://cdn.example.com/catalog/nike.png", creates[0]["thumbnail"])
}

func TestValidationFailureRendersFieldError(t *testing.T) {
	e := newEnv(t)
	id := e.open(t, "brand")
	_, tok := e.page(t, id)

	rec := e.postForm("/admin/forms/"+id, url.Values{"name": {"N"}, "csrf_token": {tok}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, e.backend.createCalls())

	body, _ := e.page(t, id)
	assert.Contains(t, body, "Name must be at least 2 characters.")
}

func TestValidateEndpoint(t *testing.T) {
	e := newEnv(t)
	id := e.open(t, "brand")

	rec := e.postForm("/admin/forms/"+id+"/validate", url.Values{"name": {"x"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Valid  bool              `json:"valid"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.Valid)
	assert.Equal(t, "Name must be at least 2 characters.", out.Errors["name"])
}

func TestValidateEndpointSingleField(t *testing.T) {
	e := newEnv(t)
	id := e.open(t, "brand")

	// The name is too short, but only the description is being checked.
	rec := e.postForm("/admin/forms/"+id+"/validate?field=description", url.Values{"name": {"x"}, "description": {"ok"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true,"errors":{}}`, rec.Body.String())

	rec = e.postForm("/admin/forms/"+id+"/validate?field=name", url.Values{"name": {"x"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":false,"errors":{"name":"Name must be at least 2 characters."}}`, rec.Body.String())
}

func TestBadCSRFTokenIsRefused(t *testing.T) {
	e := newEnv(t)
	id := e.open(t, "brand")

	rec := e.postForm("/admin/forms/"+id, url.Values{"name": {"Nike"}, "csrf_token": {"forged"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, e.backend.createCalls())
	assert.NotNil(t, cookie(rec, "catalog_flash"))
}

func TestAnonymousIsRedirectedToLogin(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/brand/new", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?next=%2Fadmin%2Fbrand%2Fnew", rec.Header().Get("Location"))
}

func TestUnknownKindIs404(t *testing.T) {
	e := newEnv(t)
	rec := e.serve(httptest.NewRequest(http.MethodGet, "/admin/widget/new", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
