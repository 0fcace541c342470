package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lixing-Zhang/catalog-service/pkg/logger"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedLevel string
	}{
		{"success", http.StatusOK, "INFO"},
		{"not found", http.StatusNotFound, "INFO"},
		{"server error", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "debug")

			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			})
			handler := chimiddleware.RequestID(Logger(log)(testHandler))

			req := httptest.NewRequest(http.MethodGet, "/api/products?category=tools", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			var record map[string]any
			if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
				t.Fatalf("failed to decode log record %q: %v", buf.String(), err)
			}

			if record["level"] != tt.expectedLevel {
				t.Errorf("level = %v, want %s", record["level"], tt.expectedLevel)
			}
			if record["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", record["status"], tt.status)
			}
			if record["path"] != "/api/products" {
				t.Errorf("path = %v, want /api/products", record["path"])
			}
			if record["bytes"] != float64(4) {
				t.Errorf("bytes = %v, want 4", record["bytes"])
			}
			if id, _ := record["request_id"].(string); id == "" {
				t.Error("expected request_id to be logged")
			}
		})
	}
}
