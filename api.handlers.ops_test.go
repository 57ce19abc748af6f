package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintenance(t *testing.T) {
	api := newTestAPIHandler(&MockBookService{}, nil)

	t.Run("enable", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.Maintenance(w, newRequestWithID(http.MethodGet, "/ops/maintenance?status=enable&msg=upgrading", ""), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"requestid":"r:abc","maintenance.started":"Sun, 02 Jul 2023 00:00:00 UTC","maintenance.message":"upgrading","message":"Maintenance mode enabled successfully."}`, w.Body.String())
		assert.True(t, api.mode.enabled.Load())
	})

	t.Run("show", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.Maintenance(w, newRequestWithID(http.MethodGet, "/", ""), httprouter.Params{httprouter.Param{Key: "status", Value: "show"}})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"message":"service currently unvailable.","reason":"upgrading","since":"Sun, 02 Jul 2023 00:00:00 UTC"}`, w.Body.String())
	})

	t.Run("disable", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.Maintenance(w, newRequestWithID(http.MethodGet, "/ops/maintenance?status=disable", ""), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, api.mode.enabled.Load())
	})

	t.Run("unknown status", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.Maintenance(w, newRequestWithID(http.MethodGet, "/ops/maintenance?status=maybe", ""), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetStatistics(t *testing.T) {
	api := newTestAPIHandler(&MockBookService{}, nil)
	api.stats.version = "v0.1.0"
	api.stats.called = 3
	api.stats.status[200] = 2

	w := httptest.NewRecorder()
	api.GetStatistics(w, newRequestWithID(http.MethodGet, "/ops/stats", ""), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "v0.1.0", stats["app.version"])
	assert.Equal(t, float64(2), stats["called"])
	assert.Equal(t, "60 mins", stats["uptime"])
	assert.Equal(t, map[string]interface{}{"200": float64(2)}, stats["status"])
}

func TestGetConfigs(t *testing.T) {
	api := newTestAPIHandler(&MockBookService{}, nil)
	api.config.Redis.Password = "secret"

	w := httptest.NewRecorder()
	api.GetConfigs(w, newRequestWithID(http.MethodGet, "/ops/configs", ""), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Contains(t, w.Body.String(), "*****")
	assert.Equal(t, "secret", api.config.Redis.Password)
}

func TestGetJournal(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		api := newTestAPIHandler(&MockBookService{}, nil)
		w := httptest.NewRecorder()
		api.GetJournal(w, newRequestWithID(http.MethodGet, "/ops/journal", ""), nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("lists events", func(t *testing.T) {
		journal := &MockJournalStorage{}
		require.NoError(t, journal.Add(context.Background(), JournalEvent{ID: "j:1", Kind: CreateQueue, BookID: 7, At: "2023-07-02T00:00:00Z"}))
		api := newTestAPIHandler(&MockBookService{}, journal)
		w := httptest.NewRecorder()
		api.GetJournal(w, newRequestWithID(http.MethodGet, "/ops/journal", ""), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"requestid":"r:abc","status":200,"message":"Journal fetched successfully.","total":1,"data":[{"id":"j:1","kind":"creation","book_id":7,"book":{"id":0,"titulo":"","autor":"","editorial":"","fecha_publicacion":""},"at":"2023-07-02T00:00:00Z"}]}`, w.Body.String())
	})

	t.Run("storage failure", func(t *testing.T) {
		api := newTestAPIHandler(&MockBookService{}, &MockJournalStorage{Err: errors.New("bolt closed")})
		w := httptest.NewRecorder()
		api.GetJournal(w, newRequestWithID(http.MethodGet, "/ops/journal", ""), nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestNotFound(t *testing.T) {
	api := newTestAPIHandler(&MockBookService{}, nil)
	w := httptest.NewRecorder()
	api.NotFound().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"requestid":"r:abc","message":"route does not exist","path":"GET /books"}`, w.Body.String())
}
