package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

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

	functions.CloudEvent("GenerateOnRequest", generateOnRequest)
}

// main is required by the Go Functions Framework.
func main() {}

// generateOnRequest runs when a report request object is finalized in the
// request bucket.
func generateOnRequest(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		generatorInstance, initErr = services.NewReportGenerator(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return generatorInstance.ProcessObject(ctx, gcsEvent)
}
