package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/catalog-admin/internal/catalog"
	"github.com/yanizio/catalog-admin/internal/form"
	"github.com/yanizio/catalog-admin/internal/i18n"
	"github.com/yanizio/catalog-admin/internal/media"
)

/*──────────────────────────── fakes ────────────────────────────────────────*/

// memInstances round-trips through JSON like the real stores do.
type memInstances struct {
	mu     sync.Mutex
	data   map[string][]byte
	locked map[string]bool
	puts   []State
}

func newMemInstances() *memInstances {
	return &memInstances{data: map[string][]byte{}, locked: map[string]bool{}}
}

func (m *memInstances) Get(_ context.Context, id string) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}
	var inst Instance
	return &inst, json.Unmarshal(raw, &inst)
}

func (m *memInstances) Put(_ context.Context, inst *Instance) error {
	raw, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[inst.ID] = raw
	m.puts = append(m.puts, inst.State)
	return nil
}

func (m *memInstances) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *memInstances) Lock(_ context.Context, id string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked[id] {
		return nil, ErrBusy
	}
	m.locked[id] = true
	return func() {
		m.mu.Lock()
		delete(m.locked, id)
		m.mu.Unlock()
	}, nil
}

type fakeBackend struct {
	createID  string
	createErr error
	updateErr error
	entity    *catalog.Entity

	creates []catalog.Payload
	updates []catalog.Payload
}

func (f *fakeBackend) Create(_ context.Context, endpoint string, p catalog.Payload) (string, error) {
	f.creates = append(f.creates, p)
	return f.createID, f.createErr
}

func (f *fakeBackend) Update(_ context.Context, endpoint, id string, p catalog.Payload) error {
	f.updates = append(f.updates, p)
	return f.updateErr
}

func (f *fakeBackend) Get(_ context.Context, endpoint, id string) (*catalog.Entity, error) {
	if f.entity == nil {
		return nil, catalog.ErrNotFound
	}
	return f.entity, nil
}

type fakeHost struct {
	url   string
	err   error
	calls int
}

func (h *fakeHost) Name() string { return "fake" }

func (h *fakeHost) Upload(context.Context, media.Object) (string, error) {
	h.calls++
	return h.url, h.err
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fixture struct {
	sub       *Submitter
	backend   *fakeBackend
	host      *fakeHost
	instances *memInstances
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, form.RegisterEmbedded())
	cat, err := i18n.Load("", "en", "vi")
	require.NoError(t, err)

	f := &fixture{
		backend:   &fakeBackend{createID: "42"},
		host:      &fakeHost{url: "https://cdn.example.com/catalog/logo.png"},
		instances: newMemInstances(),
	}
	f.sub = NewSubmitter(
		form.NewValidator(cat),
		media.NewUploader(f.host, 0, "catalog"),
		f.backend,
		f.instances,
		cat,
	)
	return f
}

func (f *fixture) open(t *testing.T, kind string) *Instance {
	t.Helper()
	inst, err := f.sub.Open(context.Background(), kind)
	require.NoError(t, err)
	return inst
}

func (f *fixture) selectPNG(t *testing.T, id string) {
	t.Helper()
	_, err := f.sub.SelectFile(context.Background(), id, "en", form.Values{Name: "Nike"},
		media.Candidate{Filename: "logo.png", DeclaredType: "image/png", Content: pngHeader})
	require.NoError(t, err)
}

/*──────────────────────────── scenarios ────────────────────────────────────*/

func TestSubmitWithoutFileCreatesEntity(t *testing.T) {
	f := newFixture(t)
	inst := f.open(t, "brand")

	res, err := f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Nike"})
	require.NoError(t, err)

	assert.Equal(t, Success, res.Status)
	assert.Equal(t, "42", res.EntityID)
	assert.Equal(t, "/admin/brand", res.Redirect)
	assert.Equal(t, "Brand created successfully.", res.Message)

	require.Len(t, f.backend.creates, 1)
	assert.Equal(t, catalog.Payload{Name: "Nike", Status: "active"}, f.backend.creates[0])
	assert.Equal(t, 0, f.host.calls)

	_, err = f.instances.Get(context.Background(), inst.ID)
	assert.ErrorIs(t, err, ErrInstanceNotFound, "instance is discarded on success")
	assert.Equal(t, []State{Idle, Validating, CreateInFlight}, f.instances.puts)
}

func TestSubmitValidationFailureMakesNoCalls(t *testing.T) {
	f := newFixture(t)
	inst := f.open(t, "category")
	f.selectPNG(t, inst.ID)

	res, err := f.sub.Submit(context.Background(), inst.ID, "en",
		form.Values{Name: "N", Description: strings.Repeat("d", 501)})
	require.NoError(t, err)

	assert.Equal(t, ValidationFailed, res.Status)
	assert.Contains(t, res.FieldErrors, "name")
	assert.Contains(t, res.FieldErrors, "description")
	assert.Empty(t, f.backend.creates)
	assert.Equal(t, 0, f.host.calls)

	stored, err := f.instances.Get(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, Idle, stored.State)
	assert.Equal(t, res.FieldErrors, stored.FieldErrors)
	assert.True(t, stored.Media.HasPending())
}

func TestSubmitUploadFailureSkipsCreate(t *testing.T) {
	f := newFixture(t)
	f.host.err = errors.New("network unreachable")
	inst := f.open(t, "brand")
	f.selectPNG(t, inst.ID)

	res, err := f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Nike"})
	require.NoError(t, err)

	assert.Equal(t, UploadFailed, res.Status)
	assert.ErrorIs(t, res.Cause, media.ErrUploadFailed)
	assert.Empty(t, f.backend.creates, "create is never called after a failed upload")

	stored, err := f.instances.Get(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.True(t, stored.Media.HasPending(), "a failed commit leaves the pending file")
	assert.Equal(t, media.ThumbnailPreview, stored.Media.Thumbnail.Kind)
	assert.Equal(t, "The image could not be uploaded.  Please try again.", stored.LastError)
	assert.Equal(t, Idle, stored.State)
}

func TestSubmitUploadsThenCreatesWithThumbnail(t *testing.T) {
	f := newFixture(t)
	inst := f.open(t, "brand")
	f.selectPNG(t, inst.ID)

	res, err := f.sub.Submit(context.Background(), inst.ID, "en",
		form.Values{Name: "Nike", Description: "Just do it"})
	require.NoError(t, err)

	assert.Equal(t, Success, res.Status)
	require.Len(t, f.backend.creates, 1)
	assert.Equal(t, catalog.Payload{
		Name:        "Nike",
		Description: "Just do it",
		Thumbnail:   "https://cdn.example.com/catalog/logo.png",
		Status:      "active",
	}, f.backend.creates[0])
	assert.Equal(t, 1, f.host.calls)
}

func TestSubmitCreateFailureUsesFirstBackendMessage(t *testing.T) {
	f := newFixture(t)
	f.backend.createErr = &catalog.APIError{
		StatusCode: 422,
		Message:    "already exists",
		Fields:     map[string][]string{"name": {"already exists"}},
	}
	inst := f.open(t, "brand")
	f.selectPNG(t, inst.ID)

	res, err := f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Nike"})
	require.NoError(t, err)
	assert.Equal(t, CreateFailed, res.Status)
	assert.Equal(t, "already exists", res.Message)

	stored, err := f.instances.Get(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "already exists", stored.LastError)
	assert.Equal(t, "https://cdn.example.com/catalog/logo.png", stored.Media.Thumbnail.DurableURL(),
		"the durable thumbnail survives a failed create")

	// A retry does not upload again and clears the previous error.
	f.backend.createErr = nil
	res, err = f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Nike 2"})
	require.NoError(t, err)
	assert.Equal(t, Success, res.Status)
	assert.Equal(t, 1, f.host.calls)
	assert.Equal(t, "https://cdn.example.com/catalog/logo.png", f.backend.creates[1].Thumbnail)
}

func TestSubmitCreateFailureWithoutMessageFallsBack(t *testing.T) {
	f := newFixture(t)
	f.backend.createErr = errors.New("dial tcp: refused")
	inst := f.open(t, "category")

	res, err := f.sub.Submit(context.Background(), inst.ID, "vi", form.Values{Name: "Giày"})
	require.NoError(t, err)
	assert.Equal(t, CreateFailed, res.Status)
	assert.Equal(t, "Không thể lưu Danh mục.", res.Message)
}

func TestSubmitTruncatesDisplayMessage(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("é", 150)
	f.backend.createErr = &catalog.APIError{StatusCode: 400, Message: long}
	inst := f.open(t, "brand")

	res, err := f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Nike"})
	require.NoError(t, err)
	assert.Equal(t, long, res.Message, "full message is kept for logs")
	assert.Equal(t, strings.Repeat("é", 100), res.DisplayMessage())
}

func TestSubmitWhileBusy(t *testing.T) {
	f := newFixture(t)
	inst := f.open(t, "brand")

	release, err := f.instances.Lock(context.Background(), inst.ID)
	require.NoError(t, err)

	_, err = f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Nike"})
	assert.ErrorIs(t, err, ErrBusy)
	_, err = f.sub.SelectFile(context.Background(), inst.ID, "en", form.Values{}, media.Candidate{})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, f.backend.creates)

	release()
	res, err := f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Nike"})
	require.NoError(t, err)
	assert.Equal(t, Success, res.Status)
}

func TestEditModeUpdatesExistingEntity(t *testing.T) {
	f := newFixture(t)
	f.backend.entity = &catalog.Entity{ID: "7", Name: "Adidas", Thumbnail: "https://cdn/old.png"}

	inst, err := f.sub.OpenExisting(context.Background(), "brand", "7")
	require.NoError(t, err)
	assert.True(t, inst.Editing())
	assert.Equal(t, "https://cdn/old.png", inst.Media.Thumbnail.DurableURL())

	res, err := f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "adidas"})
	require.NoError(t, err)
	assert.Equal(t, Success, res.Status)
	assert.Equal(t, "7", res.EntityID)
	assert.Equal(t, "Brand updated successfully.", res.Message)
	require.Len(t, f.backend.updates, 1)
	assert.Equal(t, catalog.Payload{Name: "adidas", Thumbnail: "https://cdn/old.png", Status: "active"}, f.backend.updates[0])
	assert.Empty(t, f.backend.creates)
}

func TestEditModeRemovedThumbnailIsCleared(t *testing.T) {
	f := newFixture(t)
	f.backend.entity = &catalog.Entity{ID: "7", Name: "Adidas", Thumbnail: "https://cdn/old.png"}

	inst, err := f.sub.OpenExisting(context.Background(), "brand", "7")
	require.NoError(t, err)
	_, err = f.sub.RemovePending(context.Background(), inst.ID, form.Values{Name: "Adidas"})
	require.NoError(t, err)

	res, err := f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Adidas"})
	require.NoError(t, err)
	assert.Equal(t, Success, res.Status)
	require.Len(t, f.backend.updates, 1)
	assert.Equal(t, catalog.Payload{Name: "Adidas", Status: "active", ClearThumbnail: true}, f.backend.updates[0])
	assert.Zero(t, f.host.calls)
}

func TestEditModeReplacedThumbnailIsSent(t *testing.T) {
	f := newFixture(t)
	f.backend.entity = &catalog.Entity{ID: "7", Name: "Adidas", Thumbnail: "https://cdn/old.png"}

	inst, err := f.sub.OpenExisting(context.Background(), "brand", "7")
	require.NoError(t, err)
	_, err = f.sub.RemovePending(context.Background(), inst.ID, form.Values{Name: "Adidas"})
	require.NoError(t, err)
	f.selectPNG(t, inst.ID)

	res, err := f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Adidas"})
	require.NoError(t, err)
	assert.Equal(t, Success, res.Status)
	require.Len(t, f.backend.updates, 1)
	assert.Equal(t, f.host.url, f.backend.updates[0].Thumbnail)
	assert.False(t, f.backend.updates[0].ClearThumbnail)
}

func TestCreateNeverClearsThumbnail(t *testing.T) {
	f := newFixture(t)
	inst := f.open(t, "brand")
	_, err := f.sub.RemovePending(context.Background(), inst.ID, form.Values{Name: "Nike"})
	require.NoError(t, err)

	_, err = f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Nike"})
	require.NoError(t, err)
	require.Len(t, f.backend.creates, 1)
	assert.Equal(t, catalog.Payload{Name: "Nike", Status: "active"}, f.backend.creates[0])
}

func TestSelectFileRejections(t *testing.T) {
	f := newFixture(t)
	inst := f.open(t, "brand")
	f.selectPNG(t, inst.ID)

	got, err := f.sub.SelectFile(context.Background(), inst.ID, "en", form.Values{Name: "Nike"},
		media.Candidate{Filename: "notes.txt", DeclaredType: "text/plain", Content: []byte("hi")})
	assert.ErrorIs(t, err, media.ErrInvalidType)
	assert.Equal(t, "Only image files can be uploaded.", got.LastError)
	assert.Equal(t, "logo.png", got.Media.Pending.Filename, "rejection keeps the previous file")
	assert.Equal(t, media.ThumbnailPreview, got.Media.Thumbnail.Kind)

	got, err = f.sub.SelectFile(context.Background(), inst.ID, "en", form.Values{Name: "Nike"},
		media.Candidate{Filename: "big.png", DeclaredType: "image/png", Size: media.DefaultMaxBytes + 1, Content: pngHeader})
	assert.ErrorIs(t, err, media.ErrTooLarge)
	assert.Equal(t, "The image must be 2 MB or smaller.", got.LastError)
}

func TestRemovePendingIsIdempotent(t *testing.T) {
	f := newFixture(t)
	inst := f.open(t, "brand")
	f.selectPNG(t, inst.ID)

	for i := 0; i < 2; i++ {
		got, err := f.sub.RemovePending(context.Background(), inst.ID, form.Values{Name: "Nike"})
		require.NoError(t, err)
		assert.False(t, got.Media.HasPending())
		assert.Equal(t, media.ThumbnailNone, got.Media.Thumbnail.Kind)
		assert.Equal(t, "Nike", got.Draft.Name)
	}

	res, err := f.sub.Submit(context.Background(), inst.ID, "en", form.Values{Name: "Nike"})
	require.NoError(t, err)
	assert.Equal(t, Success, res.Status)
	assert.Equal(t, 0, f.host.calls)
}

func TestSaveDraftKeepsThumbnail(t *testing.T) {
	f := newFixture(t)
	inst := f.open(t, "brand")
	f.selectPNG(t, inst.ID)

	got, err := f.sub.SaveDraft(context.Background(), inst.ID, form.Values{Name: "  Puma ", Description: "cats"})
	require.NoError(t, err)
	assert.Equal(t, "Puma", got.Draft.Name)
	assert.Equal(t, "cats", got.Draft.Description)
	assert.True(t, got.Media.HasPending())
}

func TestOpenUnknownKind(t *testing.T) {
	f := newFixture(t)
	_, err := f.sub.Open(context.Background(), "widget")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCheckReturnsFieldErrors(t *testing.T) {
	f := newFixture(t)
	inst := f.open(t, "brand")

	fe, err := f.sub.Check(context.Background(), inst.ID, "en", form.Values{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Name must be at least 2 characters.", fe["name"])

	_, err = f.sub.Check(context.Background(), "missing", "en", form.Values{})
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestCheckFieldLooksAtOneField(t *testing.T) {
	f := newFixture(t)
	inst := f.open(t, "category")

	msg, err := f.sub.CheckField(context.Background(), inst.ID, "en", form.FieldDescription, form.Values{Name: "x"})
	require.NoError(t, err)
	assert.Empty(t, msg)

	msg, err = f.sub.CheckField(context.Background(), inst.ID, "en", form.FieldName, form.Values{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Name must be at least 2 characters.", msg)

	_, err = f.sub.CheckField(context.Background(), "missing", "en", form.FieldName, form.Values{})
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestTruncateAndHumanBytes(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 100))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "2 MB", HumanBytes(2<<20))
	assert.Equal(t, "1536 KB", HumanBytes(1536<<10))
	assert.Equal(t, "10 B", HumanBytes(10))
}

func TestStateJSON(t *testing.T) {
	raw, err := json.Marshal(CreateInFlight)
	require.NoError(t, err)
	assert.JSONEq(t, `"create_in_flight"`, string(raw))

	var s State
	require.NoError(t, json.Unmarshal([]byte(`"uploading"`), &s))
	assert.Equal(t, Uploading, s)
	assert.Error(t, json.Unmarshal([]byte(`"sleeping"`), &s))
}
