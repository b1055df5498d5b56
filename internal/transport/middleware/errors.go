package middleware

import (
	"encoding/json"
	"net/http"

	errors "github.com/frahmantamala/loan-servicing/internal"
)

func writeAppError(w http.ResponseWriter, appErr *errors.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
