package main

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// listView is the data rendered by the `libros` template.
type listView struct {
	RequestID string
	Books     []Book
	Error     string
}

// Index renders the list view of all books known by the backend.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger := api.GetLoggerFromContext(r.Context())
	view := listView{RequestID: requestID}
	status := http.StatusOK

	books, err := api.bookService.List(r.Context())
	if err != nil {
		logger.Error("failed to list books for view", zap.String("request.id", requestID), zap.Error(err))
		view.Error = err.Error()
		status = http.StatusBadGateway
	} else {
		view.Books = books
	}

	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.WriteHeader(status)
	if err = api.views.ExecuteTemplate(w, "libros", view); err != nil {
		logger.Error("failed to render list view", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(
		map[string]interface{}{
			"requestid": requestID,
			"status":    "up & running since " + uptime(api.clock, api.stats.started),
			"message":   "Hello. Libros front is available. Enjoy :)",
		},
	); err != nil {
		api.logger.Error("failed to send status response", zap.String("request.id", requestID), zap.Error(err))
	}
}
