package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the fake backend received.
type recordedRequest struct {
	method      string
	path        string
	rawQuery    string
	contentType string
	body        []byte
}

// backendRecorder holds the last request seen by the fake backend.
type backendRecorder struct {
	mu   sync.Mutex
	last recordedRequest
}

func (br *backendRecorder) set(rr recordedRequest) {
	br.mu.Lock()
	br.last = rr
	br.mu.Unlock()
}

func (br *backendRecorder) get() recordedRequest {
	br.mu.Lock()
	defer br.mu.Unlock()
	return br.last
}

// newFakeBackend starts a test server which records each request then
// answers with the given status and body.
func newFakeBackend(t *testing.T, status int, body string) (*httptest.Server, *backendRecorder, *int32) {
	t.Helper()
	rec := &backendRecorder{}
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		rec.set(recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			rawQuery:    r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			body:        data,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, rec, &calls
}

func TestLibrosClient_List(t *testing.T) {
	body := `[{"id":1,"titulo":"Dune","autor":"Herbert","editorial":"Ace","fecha_publicacion":"1965-08-01"},
	{"id":2,"titulo":"Ficciones","autor":"Borges","editorial":"Sur","fecha_publicacion":"1944-01-01"}]`
	srv, backend, calls := newFakeBackend(t, http.StatusOK, body)
	client := NewLibrosClient(srv.URL+"/libros", srv.Client())

	books, err := client.List(context.Background())
	require.NoError(t, err)
	rec := backend.get()
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/libros", rec.path)
	assert.Empty(t, rec.rawQuery)
	assert.Empty(t, rec.body)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, []Book{
		{ID: 1, Title: "Dune", Author: "Herbert", Publisher: "Ace", PublicationDate: "1965-08-01"},
		{ID: 2, Title: "Ficciones", Author: "Borges", Publisher: "Sur", PublicationDate: "1944-01-01"},
	}, books)
}

func TestLibrosClient_Get(t *testing.T) {
	t.Run("should pass: existing book", func(t *testing.T) {
		srv, backend, _ := newFakeBackend(t, http.StatusOK, `{"id":7,"titulo":"Dune","autor":"Herbert","editorial":"Ace","fecha_publicacion":"1965-08-01"}`)
		client := NewLibrosClient(srv.URL+"/libros", srv.Client())

		book, err := client.Get(context.Background(), 7)
		require.NoError(t, err)
		rec := backend.get()
		assert.Equal(t, http.MethodGet, rec.method)
		assert.Equal(t, "/libros/7", rec.path)
		assert.Equal(t, Book{ID: 7, Title: "Dune", Author: "Herbert", Publisher: "Ace", PublicationDate: "1965-08-01"}, book)
	})

	t.Run("should fail: backend returns 404", func(t *testing.T) {
		srv, backend, _ := newFakeBackend(t, http.StatusNotFound, `{"message":"not found"}`)
		client := NewLibrosClient(srv.URL+"/libros", srv.Client())

		book, err := client.Get(context.Background(), 999)
		require.Error(t, err)
		rec := backend.get()
		assert.Equal(t, "/libros/999", rec.path)
		assert.Equal(t, Book{}, book)

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		assert.Equal(t, http.MethodGet, httpErr.Method)
		assert.Equal(t, srv.URL+"/libros/999", httpErr.URL)
		assert.JSONEq(t, `{"message":"not found"}`, string(httpErr.Body))
	})

	t.Run("should fail: malformed body", func(t *testing.T) {
		srv, _, _ := newFakeBackend(t, http.StatusOK, `{"id":`)
		client := NewLibrosClient(srv.URL+"/libros", srv.Client())

		_, err := client.Get(context.Background(), 1)
		require.Error(t, err)
		var syntaxErr *json.SyntaxError
		assert.True(t, errors.As(err, &syntaxErr))
	})

	t.Run("should pass: id is sent without local checks", func(t *testing.T) {
		srv, backend, _ := newFakeBackend(t, http.StatusOK, `{}`)
		client := NewLibrosClient(srv.URL+"/libros", srv.Client())

		_, err := client.Get(context.Background(), -3)
		require.NoError(t, err)
		rec := backend.get()
		assert.Equal(t, "/libros/-3", rec.path)
	})
}

func TestLibrosClient_KeepsUnknownMembers(t *testing.T) {
	body := `[{"id":1,"titulo":"Dune","autor":"Herbert","editorial":null,"fecha_publicacion":"1965-08-01","created_at":"2024-01-01T10:00:00.000Z","updated_at":"2024-01-02T10:00:00.000Z"},
	{"id":"2","titulo":"Ficciones","autor":"Borges","editorial":"Sur","fecha_publicacion":"1944-01-01"}]`
	srv, _, _ := newFakeBackend(t, http.StatusOK, body)
	client := NewLibrosClient(srv.URL+"/libros", srv.Client())

	books, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.Equal(t, 1, books[0].ID)
	assert.Equal(t, "Dune", books[0].Title)
	assert.JSONEq(t, `"2024-01-01T10:00:00.000Z"`, string(books[0].Extra["created_at"]))
	assert.JSONEq(t, `null`, string(books[0].Extra["editorial"]))
	assert.Equal(t, 0, books[1].ID)
	assert.JSONEq(t, `"2"`, string(books[1].Extra["id"]))

	relayed, err := json.Marshal(books)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(relayed))
}

func TestLibrosClient_DecodeFailureReturnsZeroBook(t *testing.T) {
	srv, _, _ := newFakeBackend(t, http.StatusOK, `[{"id":7,"titulo":"Dune"},5]`)
	client := NewLibrosClient(srv.URL+"/libros", srv.Client())

	book, err := client.Get(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, Book{}, book)

	book, err = client.Create(context.Background(), BookPayload{Title: "Dune"})
	require.Error(t, err)
	assert.Equal(t, Book{}, book)

	book, err = client.Update(context.Background(), 7, BookPayload{Title: "Dune"})
	require.Error(t, err)
	assert.Equal(t, Book{}, book)

	books, err := client.List(context.Background())
	require.Error(t, err)
	assert.Nil(t, books)
}

func TestLibrosClient_Create(t *testing.T) {
	srv, backend, _ := newFakeBackend(t, http.StatusCreated, `{"id":42,"titulo":"Dune","autor":"Herbert","editorial":"Ace","fecha_publicacion":"1965-08-01"}`)
	client := NewLibrosClient(srv.URL+"/libros", srv.Client())

	// caller data carrying an unknown field which must never reach the wire.
	var payload BookPayload
	err := json.Unmarshal([]byte(`{"titulo":"Dune","autor":"Herbert","editorial":"Ace","fecha_publicacion":"1965-08-01","extra":"ignored"}`), &payload)
	require.NoError(t, err)

	book, err := client.Create(context.Background(), payload)
	require.NoError(t, err)
	rec := backend.get()
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/libros", rec.path)
	assert.Equal(t, "application/json", rec.contentType)
	assert.JSONEq(t, `{"titulo":"Dune","autor":"Herbert","editorial":"Ace","fecha_publicacion":"1965-08-01"}`, string(rec.body))
	assert.Equal(t, 42, book.ID)
	assert.Equal(t, "Dune", book.Title)
}

func TestLibrosClient_Create_SendsAllFields(t *testing.T) {
	srv, backend, _ := newFakeBackend(t, http.StatusCreated, `{"id":1}`)
	client := NewLibrosClient(srv.URL+"/libros", srv.Client())

	_, err := client.Create(context.Background(), BookPayload{Title: "Only title"})
	require.NoError(t, err)
	rec := backend.get()
	m := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.body, &m))
	assert.Len(t, m, 4)
	assert.Contains(t, m, "fecha_publicacion")
	assert.Equal(t, "", m["fecha_publicacion"])
}

func TestLibrosClient_Update(t *testing.T) {
	srv, backend, _ := newFakeBackend(t, http.StatusOK, `{"id":5,"titulo":"Dune Messiah","autor":"Herbert","editorial":"Putnam","fecha_publicacion":"1969-10-15"}`)
	client := NewLibrosClient(srv.URL+"/libros/", srv.Client())

	payload := BookPayload{Title: "Dune Messiah", Author: "Herbert", Publisher: "Putnam", PublicationDate: "1969-10-15"}
	book, err := client.Update(context.Background(), 5, payload)
	require.NoError(t, err)
	rec := backend.get()
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/libros/5", rec.path)
	assert.JSONEq(t, `{"titulo":"Dune Messiah","autor":"Herbert","editorial":"Putnam","fecha_publicacion":"1969-10-15"}`, string(rec.body))
	assert.Equal(t, Book{ID: 5, Title: "Dune Messiah", Author: "Herbert", Publisher: "Putnam", PublicationDate: "1969-10-15"}, book)
}

func TestLibrosClient_Delete(t *testing.T) {
	t.Run("should pass: confirmation body", func(t *testing.T) {
		srv, backend, _ := newFakeBackend(t, http.StatusOK, `{"message":"deleted"}`)
		client := NewLibrosClient(srv.URL+"/libros", srv.Client())

		data, err := client.Delete(context.Background(), 5)
		require.NoError(t, err)
		rec := backend.get()
		assert.Equal(t, http.MethodDelete, rec.method)
		assert.Equal(t, "/libros/5", rec.path)
		assert.Empty(t, rec.body)
		assert.Equal(t, `{"message":"deleted"}`, string(data))
	})

	t.Run("should pass: empty body", func(t *testing.T) {
		srv, _, _ := newFakeBackend(t, http.StatusNoContent, "")
		client := NewLibrosClient(srv.URL+"/libros", srv.Client())

		data, err := client.Delete(context.Background(), 5)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("should fail: server error", func(t *testing.T) {
		srv, _, _ := newFakeBackend(t, http.StatusInternalServerError, "boom")
		client := NewLibrosClient(srv.URL+"/libros", srv.Client())

		data, err := client.Delete(context.Background(), 5)
		assert.Nil(t, data)
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
		assert.Equal(t, "boom", string(httpErr.Body))
	})
}

func TestLibrosClient_TransportFailure(t *testing.T) {
	srv, _, _ := newFakeBackend(t, http.StatusOK, `[]`)
	client := NewLibrosClient(srv.URL+"/libros", srv.Client())
	srv.Close()

	_, err := client.List(context.Background())
	require.Error(t, err)
	var httpErr *HTTPError
	assert.False(t, errors.As(err, &httpErr))
}

func TestLibrosClient_CancelledContext(t *testing.T) {
	srv, _, calls := newFakeBackend(t, http.StatusOK, `[]`)
	client := NewLibrosClient(srv.URL+"/libros", srv.Client())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestNewLibrosClient_Defaults(t *testing.T) {
	client := NewLibrosClient(DefaultBaseURL+"/", nil)
	assert.Equal(t, "http://localhost:3333/libros", client.BaseURL())
	assert.Equal(t, http.DefaultClient, client.client)
	assert.Equal(t, "http://localhost:3333/libros/5", client.itemURL(5))
}
