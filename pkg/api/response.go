package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/smartcom/smartcom-go/pkg/models"
)

// maxBodyBytes caps request bodies read by the handlers.
const maxBodyBytes = 1 << 20

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes an error response with the given status code and message
func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, map[string]any{
		"error":  message,
		"status": "error",
	})
}

// writeBadRequestResponse writes a 400 Bad Request response
func writeBadRequestResponse(w http.ResponseWriter, message string) {
	writeErrorResponse(w, http.StatusBadRequest, message)
}

// writeStoreErrorResponse reports a failed triplestore round trip
func writeStoreErrorResponse(w http.ResponseWriter, err error) {
	writeErrorResponse(w, http.StatusBadGateway, err.Error())
}

// writeOperationResponse writes a cart or order result. Rejected operations
// carry a status derived from their failure code.
func writeOperationResponse(w http.ResponseWriter, code models.FailureCode, success bool, data any) {
	if success {
		writeJSONResponse(w, http.StatusOK, data)
		return
	}
	writeJSONResponse(w, failureStatus(code), data)
}

func failureStatus(code models.FailureCode) int {
	switch code {
	case models.FailureInvalidQuantity, models.FailureInvalidProduct:
		return http.StatusBadRequest
	case models.FailureItemNotFound, models.FailureOrderNotFound:
		return http.StatusNotFound
	case models.FailureCartEmpty, models.FailureOrderNotCancelable:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// decodeJSON decodes a bounded request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

// pathSegments splits the path below prefix into its non-empty segments
func pathSegments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
