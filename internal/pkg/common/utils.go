package common

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID generates a UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// WriteErrorResponse writes a JSON error response
func WriteErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// StringSliceToString joins a string slice into a comma-separated string
func StringSliceToString(slice []string) string {
	if len(slice) == 0 {
		return ""
	}
	return strings.Join(slice, ", ")
}

// NormalizeTerm lower-cases and trims a matching term
func NormalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ContainsFold reports whether s contains substr, case-insensitively
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
