package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError answers with the same {"error": msg} body the API handlers use.
func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
