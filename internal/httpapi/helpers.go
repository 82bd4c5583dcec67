package httpapi

import (
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}

func methodMux(m map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m[r.Method]; ok {
			h(w, r)
			return
		}
		WriteError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	}
}

// jobAction splits /jobs/{id}/{action}.
func jobAction(path string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, "/jobs/")
	if rest == path {
		return "", "", false
	}
	i := strings.LastIndex(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
