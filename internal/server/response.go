package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ButyrinIA/blog/internal/blog"
	"github.com/ButyrinIA/blog/internal/storage"
)

const (
	msgNotFound     = "Post not found"
	msgUnauthorized = "Authentication required"
	msgBadRequest   = "bad request"
	msgValidation   = "validation failed"
)

type Response struct {
	Message string `json:"message"`
}

type ErrorsResponse struct {
	Message string            `json:"message"`
	Errors  []*blog.FieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	w.Write(body)
}

func WriteResponse(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, &Response{Message: msg})
}

// writeError переводит ошибку сервиса в HTTP ответ
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, &ErrorsResponse{Message: msgValidation, Errors: verr.Errors})
	case errors.Is(err, storage.ErrNotFound):
		WriteResponse(w, msgNotFound, http.StatusNotFound)
	case errors.Is(err, blog.ErrUnauthorized):
		WriteResponse(w, msgUnauthorized, http.StatusUnauthorized)
	default:
		s.logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteResponse(w, storeMessage(err), http.StatusInternalServerError)
	}
}

// storeMessage - текст исходной ошибки хранилища без обертки сервиса
func storeMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// decodeBody читает JSON тело запроса не больше maxBodySize байт
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteResponse(w, msgBadRequest, http.StatusBadRequest)
		return false
	}
	return true
}
