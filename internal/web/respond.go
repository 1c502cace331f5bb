package web

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ayush/taskboard/backend/internal/apperr"
)

// ErrorResponse is the JSON body for every error response.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes an error response using the taxonomy code and status.
// Unexpected errors are logged and reported as SERVER_ERROR.
func Error(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	if e.Code == apperr.CodeServer {
		log.Printf("server error: %v", err)
	}
	JSON(w, e.Code.HTTPStatus(), ErrorResponse{Code: string(e.Code), Error: e.Message})
}
