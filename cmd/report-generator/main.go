package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/incidentreportflow/internal/models"
	"github.com/Lllllllleong/incidentreportflow/internal/services"
)

var (
	generatorInstance *services.ReportGeneratorFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleGenerateReport", handleGenerateReport)
}

// main is required by the Go Functions Framework.
func main() {}

func handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		generatorInstance, initErr = services.NewReportGenerator(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := generatorInstance.Process(r.Context(), &req)
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, services.ErrRecordNotFound), errors.Is(err, services.ErrOwnerMismatch):
		http.Error(w, "Not Found: incident record", http.StatusNotFound)
		return
	case err != nil:
		// Process already logged the underlying error.
		http.Error(w, "Internal Server Error: report generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
