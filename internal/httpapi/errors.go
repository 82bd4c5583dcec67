package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes carried in the envelope. The api client surfaces them as
// StatusError.Code.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeQueueUnavailable = "queue_unavailable"
	codeRedisUnavailable = "redis_unavailable"
	codeDBError          = "db_error"
	codeInternal         = "internal_error"
)

// APIError is the body of every non-2xx relay response:
//
//	{"error": {"code": "db_error", "message": "reset failed", "request_id": "..."}}
type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError answers with an APIError stamped with the request id that
// RequestID put on the context, so a client report can be matched to the
// relay log.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	body := APIError{}
	body.Error.Code = code
	body.Error.Message = message
	body.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, body)
}

// failWith logs err under the request id and then writes the envelope. The
// client only sees message; err stays in the log.
func failWith(w http.ResponseWriter, r *http.Request, l *slog.Logger, status int, code, message string, err error, attrs ...any) {
	args := append([]any{"request_id", RequestIDFrom(r.Context()), "code", code}, attrs...)
	args = append(args, "err", err)
	if status >= http.StatusInternalServerError {
		l.Error(message, args...)
	} else {
		l.Warn(message, args...)
	}
	WriteError(w, r, status, code, message)
}
