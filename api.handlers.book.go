package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// backendFailure picks the status and message relayed to the caller when a
// backend call failed. Client-side rejections keep the backend status.
func backendFailure(err error, fallback string) (int, string, interface{}) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return http.StatusBadGateway, fallback, EmptyData
	}

	var data interface{} = EmptyData
	if len(httpErr.Body) != 0 {
		if json.Valid(httpErr.Body) {
			data = json.RawMessage(httpErr.Body)
		} else {
			data = string(httpErr.Body)
		}
	}

	switch {
	case httpErr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, "book does not exist", data
	case httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
		return httpErr.StatusCode, fallback, data
	default:
		return http.StatusBadGateway, fallback, data
	}
}

// sendError logs the failure then writes the error envelope.
func (api *APIHandler) sendError(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}, fields ...zap.Field) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger := api.GetLoggerFromContext(r.Context())
	logger.Error(message, append(fields, zap.String("request.id", requestID), zap.Int("status", status))...)
	errResp := NewAPIError(requestID, status, message, data)
	if err := WriteJSON(r.Context(), w, errResp.Status, errResp); err != nil {
		logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// sendResponse writes the success envelope.
func (api *APIHandler) sendResponse(w http.ResponseWriter, r *http.Request, resp *APIResponse) {
	if err := WriteJSON(r.Context(), w, resp.Status, resp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send response", zap.String("request.id", resp.RequestID), zap.Error(err))
	}
}

// GetAllBooks godoc
// @Summary      List books
// @Description  Returns the whole collection served by the backend.
// @Tags         libros
// @Produce      json
// @Success      200  {object}  APIResponse
// @Failure      502  {object}  APIError
// @Router       /v1/libros [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	books, err := api.bookService.List(r.Context())
	if err != nil {
		status, message, data := backendFailure(err, "failed to get all books")
		api.sendError(w, r, status, message, data, zap.Error(err))
		return
	}
	if books == nil {
		books = []Book{}
	}
	api.GetLoggerFromContext(r.Context()).Info("success to get all books", zap.String("request.id", requestID))
	total := len(books)
	api.sendResponse(w, r, NewAPIResponse(requestID, http.StatusOK, "All books fetched successfully.", &total, books))
}

// GetOneBook godoc
// @Summary      Get a book
// @Tags         libros
// @Produce      json
// @Param        id   path      int  true  "Book ID"
// @Success      200  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Failure      502  {object}  APIError
// @Router       /v1/libros/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error(), EmptyData, zap.String("book.id", ps.ByName("id")))
		return
	}

	book, err := api.bookService.Get(r.Context(), id)
	if err != nil {
		status, message, data := backendFailure(err, "failed to get the book")
		api.sendError(w, r, status, message, data, zap.Int("book.id", id), zap.Error(err))
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to get book", zap.Int("book.id", id), zap.String("request.id", requestID))
	api.sendResponse(w, r, NewAPIResponse(requestID, http.StatusOK, "Book fetched successfully.", nil, book))
}

// CreateBook godoc
// @Summary      Create a book
// @Description  Only titulo, autor, editorial and fecha_publicacion are forwarded.
// @Tags         libros
// @Accept       json
// @Produce      json
// @Param        book  body      BookPayload  true  "Book fields"
// @Success      201   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      502   {object}  APIError
// @Router       /v1/libros [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload BookPayload
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	if err := DecodeBookPayload(r, &payload); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", payload, zap.Error(err))
		return
	}

	if err := ValidateBookPayload(&payload); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", err.Error(), zap.Error(err))
		return
	}

	book, err := api.bookService.Create(r.Context(), payload)
	if err != nil {
		status, message, data := backendFailure(err, "failed to create the book")
		api.sendError(w, r, status, message, data, zap.Error(err))
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to create book", zap.Int("book.id", book.ID), zap.String("request.id", requestID))
	api.sendResponse(w, r, NewAPIResponse(requestID, http.StatusCreated, "Book created successfully.", nil, book))
}

// UpdateBook godoc
// @Summary      Replace a book
// @Tags         libros
// @Accept       json
// @Produce      json
// @Param        id    path      int          true  "Book ID"
// @Param        book  body      BookPayload  true  "Book fields"
// @Success      200   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      404   {object}  APIError
// @Failure      502   {object}  APIError
// @Router       /v1/libros/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var payload BookPayload
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error(), EmptyData, zap.String("book.id", ps.ByName("id")))
		return
	}

	if err = DecodeBookPayload(r, &payload); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to update the book", payload, zap.Int("book.id", id), zap.Error(err))
		return
	}

	if err = ValidateBookPayload(&payload); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to update the book", err.Error(), zap.Int("book.id", id), zap.Error(err))
		return
	}

	book, err := api.bookService.Update(r.Context(), id, payload)
	if err != nil {
		status, message, data := backendFailure(err, "failed to update the book")
		api.sendError(w, r, status, message, data, zap.Int("book.id", id), zap.Error(err))
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to update book", zap.Int("book.id", id), zap.String("request.id", requestID))
	api.sendResponse(w, r, NewAPIResponse(requestID, http.StatusOK, "Book updated successfully.", nil, book))
}

// DeleteOneBook godoc
// @Summary      Delete a book
// @Description  The data field carries the backend answer, as a string when it is not JSON, or an empty object.
// @Tags         libros
// @Produce      json
// @Param        id   path      int  true  "Book ID"
// @Success      200  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Failure      502  {object}  APIError
// @Router       /v1/libros/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error(), EmptyData, zap.String("book.id", ps.ByName("id")))
		return
	}

	raw, err := api.bookService.Delete(r.Context(), id)
	if err != nil {
		status, message, data := backendFailure(err, "failed to delete the book")
		api.sendError(w, r, status, message, data, zap.Int("book.id", id), zap.Error(err))
		return
	}

	var data interface{} = EmptyData
	if len(raw) != 0 {
		if json.Valid(raw) {
			data = raw
		} else {
			data = string(raw)
		}
	}
	api.GetLoggerFromContext(r.Context()).Info("success to delete book", zap.Int("book.id", id), zap.String("request.id", requestID))
	api.sendResponse(w, r, NewAPIResponse(requestID, http.StatusOK, "Book deleted successfully.", nil, data))
}
