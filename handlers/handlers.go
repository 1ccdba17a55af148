package handlers

import (
	"net/http"

	"github.com/upb/chat-fallback-router/utils"
)

// NotFound answers unknown routes with a JSON 404
func NotFound(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteNotFound(w, "No route for "+r.Method+" "+r.URL.Path)
}

// MethodNotAllowed answers known routes hit with the wrong method
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed on "+r.URL.Path, nil)
}
