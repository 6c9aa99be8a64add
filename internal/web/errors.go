package web

// errors.go turns service errors into responses. The technical error is
// logged with the request id; the client gets the core.MapError message as
// JSON for /api and API clients, and as an HTML page otherwise.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/JonMunkholm/efile/internal/logging"
	"github.com/JonMunkholm/efile/internal/web/templates"
)

var (
	errNotFound  = errors.New("not found")
	errBadID     = errors.New("invalid document id")
	errBadUpload = errors.New("invalid upload form")
)

// ErrorResponse is the JSON body of API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		maxBytes  *http.MaxBytesError
		rowWidth  *efile.RowWidthError
		readErr   *efile.FileReadError
		encodeErr *efile.EncodeError
	)
	switch {
	case errors.Is(err, core.ErrDocumentNotFound),
		errors.Is(err, core.ErrTableNotFound),
		errors.Is(err, errNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrUnknownFormat),
		errors.Is(err, core.ErrTableRequired),
		errors.Is(err, errBadID),
		errors.Is(err, errBadUpload),
		errors.As(err, &readErr):
		return http.StatusBadRequest

	case errors.As(err, &rowWidth), errors.As(err, &encodeErr):
		return http.StatusUnprocessableEntity

	case errors.Is(err, core.ErrTooManyParses):
		return http.StatusServiceUnavailable

	case errors.Is(err, core.ErrStoreDisabled):
		return http.StatusNotImplemented

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := userMessage(err)

	logger := logging.FromContext(r.Context())
	log := logger.Warn
	if status >= http.StatusInternalServerError {
		log = logger.Error
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		respondErrorJSON(w, msg, status)
		return
	}
	respondErrorHTML(w, r, msg, status)
}

// userMessage extends core.MapError with the web layer's own errors.
func userMessage(err error) core.UserMessage {
	switch {
	case errors.Is(err, errNotFound):
		return core.UserMessage{Message: "Page not found.", Action: "Check the address and try again.", Code: "WEB001"}
	case errors.Is(err, errBadID):
		return core.UserMessage{Message: "The document id is not valid.", Action: "Use the id returned when the document was parsed.", Code: "WEB002"}
	case errors.Is(err, errBadUpload):
		return core.UserMessage{Message: "The upload form could not be read.", Action: "Send the document as multipart form field \"file\".", Code: "WEB003"}
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return core.MapError(core.ErrFileTooLarge)
	}
	return core.MapError(err)
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.ErrorPage(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// wantsJSON reports whether the client expects a JSON error.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
