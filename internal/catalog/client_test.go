package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSendsPayloadAndReturnsID(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/brands", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", time.Second)
	ctx := WithBearer(context.Background(), "tok")
	id, err := c.Create(ctx, "/brands", Payload{Name: "Nike", Status: StatusActive})
	require.NoError(t, err)

	assert.Equal(t, "42", id)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, map[string]any{"name": "Nike", "status": "active"}, gotBody,
		"empty description and thumbnail are omitted")
}

func TestCreateAcceptsDataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"b-7","name":"Nike"}}`))
	}))
	defer srv.Close()

	id, err := New(srv.URL, time.Second).Create(context.Background(), "/brands", Payload{Name: "Nike"})
	require.NoError(t, err)
	assert.Equal(t, "b-7", id)
}

func TestCreateWithoutIDFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Create(context.Background(), "/brands", Payload{Name: "Nike"})
	assert.ErrorIs(t, err, ErrCreateFailed)
}

func TestCreateFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":{"name":["already exists"]}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Create(context.Background(), "/brands", Payload{Name: "Nike"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCreateFailed)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "already exists", apiErr.Message)
	assert.Equal(t, []string{"already exists"}, apiErr.Fields["name"])
}

func TestTransportErrorWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listens any more

	err := New(srv.URL, time.Second).Update(context.Background(), "/brands", "1", Payload{Name: "Nike"})
	assert.ErrorIs(t, err, ErrUpdateFailed)
}

func TestGetEntity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/categories/9" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"category not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":9,"name":"Shoes","thumbnail":"https://cdn/x.png","status":"active"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	e, err := c.Get(context.Background(), "/categories", "9")
	require.NoError(t, err)
	assert.Equal(t, Entity{ID: "9", Name: "Shoes", Thumbnail: "https://cdn/x.png", Status: "active"}, *e)

	_, err = c.Get(context.Background(), "/categories", "10")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "category not found")
}

func TestParseErrorFirstMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"error string", `{"error":"boom"}`, "boom"},
		{"message string", `{"message":"bad input"}`, "bad input"},
		{"errors string", `{"errors":"name taken"}`, "name taken"},
		{"field map", `{"errors":{"name":["already exists"]}}`, "already exists"},
		{"form order wins", `{"errors":{"slug":["taken"],"description":["too long"]}}`, "too long"},
		{"sorted remainder", `{"errors":{"zeta":["z"],"alpha":["a"]}}`, "a"},
		{"single string per field", `{"errors":{"name":"dup"}}`, "dup"},
		{"skip empty lists", `{"errors":{"name":[],"slug":["taken"]}}`, "taken"},
		{"plain text", `gateway timeout`, "gateway timeout"},
		{"html page", `<html>502</html>`, ""},
		{"empty", ``, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseError(http.StatusBadRequest, []byte(tc.body), nil).Message)
		})
	}
}

func TestListAcceptsBareAndWrapped(t *testing.T) {
	bodies := map[string]string{
		"/brands":     `[{"id":1,"name":"Nike"},{"id":"2","name":"Adidas","status":"active"}]`,
		"/categories": `{"data":[{"id":3,"name":"Shoes"}]}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(bodies[r.URL.Path]))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	brands, err := c.List(context.Background(), "/brands")
	require.NoError(t, err)
	require.Len(t, brands, 2)
	assert.Equal(t, "1", brands[0].ID)
	assert.Equal(t, "Adidas", brands[1].Name)

	cats, err := c.List(context.Background(), "/categories")
	require.NoError(t, err)
	assert.Equal(t, []Entity{{ID: "3", Name: "Shoes"}}, cats)
}

func TestUpdateClearThumbnailSendsEmptyField(t *testing.T) {
	var gotBody map[string]any
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.EscapedPath()
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).Update(context.Background(), "/brands", "7",
		Payload{Name: "Adidas", Status: StatusActive, ClearThumbnail: true})
	require.NoError(t, err)
	assert.Equal(t, "/brands/7", gotPath)
	assert.Equal(t, map[string]any{"name": "Adidas", "status": "active", "thumbnail": ""}, gotBody)
}

func TestPayloadJSON(t *testing.T) {
	raw, err := json.Marshal(Payload{Name: "Nike", Status: StatusActive})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Nike","status":"active"}`, string(raw))

	raw, err = json.Marshal(Payload{Name: "Nike", Thumbnail: "https://cdn/a.png", Status: StatusActive, ClearThumbnail: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Nike","thumbnail":"https://cdn/a.png","status":"active"}`, string(raw))
}

func TestEntityIDIsPathEscaped(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"id":"a/b","name":"Nike"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Get(context.Background(), "/brands", "a/b?x=1")
	require.NoError(t, err)
	assert.Equal(t, "/brands/a%2Fb%3Fx=1", gotPath)
}
