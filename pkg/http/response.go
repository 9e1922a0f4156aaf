package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// SuccessResponse wraps a successful payload
type SuccessResponse struct {
	Success  bool                   `json:"success"`
	Data     interface{}            `json:"data"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// WriteSuccess writes data in the success envelope with a timestamp in metadata.
func WriteSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	WriteSuccessWithMetadata(w, statusCode, data, nil)
}

func WriteSuccessWithMetadata(w http.ResponseWriter, statusCode int, data interface{}, metadata map[string]interface{}) {
	meta := make(map[string]interface{}, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	writeJSON(w, statusCode, SuccessResponse{
		Success:  true,
		Data:     data,
		Metadata: meta,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding errors are not reported to the client
	_ = json.NewEncoder(w).Encode(body)
}
