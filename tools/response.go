package tools

import (
	"encoding/json"
	"net/http"
)

// DefaultTranslator is used by RespErr. The composition root replaces it
// with one that knows the active dialect's error codes.
var DefaultTranslator = NewTranslator()

// RespErr writes the boundary triple for err with its HTTP status.
func RespErr(w http.ResponseWriter, err error) {
	RespBoundary(w, DefaultTranslator.Boundary(err))
}

// RespBoundary writes an already translated error.
func RespBoundary(w http.ResponseWriter, b BoundaryError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.HTTPCode)
	json.NewEncoder(w).Encode(b)
}

// RespData writes {"data": v} with the given status.
func RespData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": v})
}
