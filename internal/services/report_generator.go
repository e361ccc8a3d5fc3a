package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/google/uuid"

	"github.com/Lllllllleong/incidentreportflow/internal/gcp"
	"github.com/Lllllllleong/incidentreportflow/internal/models"
	"github.com/Lllllllleong/incidentreportflow/internal/pdfform"
	"github.com/Lllllllleong/incidentreportflow/internal/pipeline"
	"github.com/Lllllllleong/incidentreportflow/internal/remotefill"
	"github.com/Lllllllleong/incidentreportflow/internal/render"
)

// ErrInvalidRequest is returned for a request missing its identifiers.
var ErrInvalidRequest = errors.New("invalid report request")

// Fill modes.
const (
	FillLocal  = "local"
	FillRemote = "remote"
)

type ReportGeneratorConfig struct {
	ProjectID               string
	TemplateBucket          string
	ReportBucket            string
	ImageBucket             string
	IncidentCollection      string
	UserCollection          string
	ReportCollection        string
	MainTemplateObject      string
	RepeatingTemplateObject string
	VertexAIRegion          string
	ProseFallback           bool
	WorkflowID              string
	WorkflowLocation        string
	FillMode                string
	RemoteFillURL           string
	RemoteFillToken         string
	DeclaredOnStates        bool
	ChromePath              string
	RenderBaseURL           string
	SignedURLTTL            time.Duration
}

type ReportGeneratorFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	vertexClient     *gcp.VertexClient
	browser          *render.Browser
	pipeline         *pipeline.Pipeline
	records          RecordSource
	config           ReportGeneratorConfig

	tmplMu    sync.Mutex
	templates map[string][]byte
}

// GCSEvent is the payload of a storage object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func loadReportGeneratorConfig() (*ReportGeneratorConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	config := &ReportGeneratorConfig{
		ProjectID:               projectID,
		TemplateBucket:          gcp.GetEnv("TEMPLATE_BUCKET", ""),
		ReportBucket:            gcp.GetEnv("REPORT_BUCKET", ""),
		ImageBucket:             gcp.GetEnv("IMAGE_BUCKET", ""),
		IncidentCollection:      gcp.GetEnv("FIRESTORE_COLLECTION", "incidents"),
		UserCollection:          gcp.GetEnv("USER_COLLECTION", "users"),
		ReportCollection:        gcp.GetEnv("REPORT_COLLECTION", "reports"),
		MainTemplateObject:      gcp.GetEnv("MAIN_TEMPLATE_OBJECT", "templates/incident-report.pdf"),
		RepeatingTemplateObject: gcp.GetEnv("REPEATING_TEMPLATE_OBJECT", "templates/witness-vehicle.pdf"),
		VertexAIRegion:          gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ProseFallback:           gcp.GetEnvBool("PROSE_FALLBACK", false),
		WorkflowID:              gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:        gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		FillMode:                strings.ToLower(gcp.GetEnv("FILL_MODE", FillLocal)),
		RemoteFillURL:           gcp.GetEnv("REMOTE_FILL_URL", ""),
		RemoteFillToken:         gcp.GetEnv("REMOTE_FILL_TOKEN", ""),
		DeclaredOnStates:        gcp.GetEnvBool("DECLARED_ON_STATES", false),
		ChromePath:              gcp.GetEnv("CHROME_PATH", ""),
		RenderBaseURL:           gcp.GetEnv("RENDER_BASE_URL", ""),
		SignedURLTTL:            7 * 24 * time.Hour,
	}
	if config.TemplateBucket == "" {
		return nil, fmt.Errorf("TEMPLATE_BUCKET environment variable must be set")
	}
	if config.ReportBucket == "" {
		return nil, fmt.Errorf("REPORT_BUCKET environment variable must be set")
	}
	if config.ImageBucket == "" {
		config.ImageBucket = config.ReportBucket
	}
	if config.RenderBaseURL == "" {
		config.RenderBaseURL = bucketOrigin(config.ImageBucket)
	}
	switch config.FillMode {
	case FillLocal:
	case FillRemote:
		if config.RemoteFillURL == "" || config.RemoteFillToken == "" {
			return nil, fmt.Errorf("REMOTE_FILL_URL and REMOTE_FILL_TOKEN must be set when FILL_MODE is remote")
		}
	default:
		return nil, fmt.Errorf("unknown FILL_MODE %q", config.FillMode)
	}
	return config, nil
}

// bucketOrigin is the public origin of a bucket's objects. Narrative pages
// load with it as their base so relative references never resolve on disk.
func bucketOrigin(bucket string) string {
	return "https://storage.googleapis.com/" + url.PathEscape(bucket) + "/"
}

func newFiller(config *ReportGeneratorConfig) (pdfform.FormFiller, error) {
	if config.FillMode == FillRemote {
		return remotefill.NewClient(config.RemoteFillURL, config.RemoteFillToken)
	}
	return pdfform.NewFiller(pdfform.WithDeclaredStates(config.DeclaredOnStates)), nil
}

func NewReportGenerator(ctx context.Context) (*ReportGeneratorFunction, error) {
	config, err := loadReportGeneratorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	var executionsClient *executions.Client
	if config.WorkflowID != "" {
		if executionsClient, err = executions.NewClient(ctx); err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}
	var vertexClient *gcp.VertexClient
	if config.ProseFallback {
		if vertexClient, err = gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion); err != nil {
			return nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
	}
	filler, err := newFiller(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create form filler: %w", err)
	}

	browser := render.NewBrowser(config.ChromePath)
	renderOpts := render.DefaultOptions()
	renderOpts.BaseURL = config.RenderBaseURL

	f := &ReportGeneratorFunction{
		storageClient:    storageClient,
		firestoreClient:  firestoreClient,
		executionsClient: executionsClient,
		vertexClient:     vertexClient,
		browser:          browser,
		pipeline:         pipeline.New(filler, render.NewRenderer(browser, renderOpts, slog.Default())),
		records:          NewFirestoreRecords(firestoreClient, config.IncidentCollection, config.UserCollection),
		config:           *config,
		templates:        make(map[string][]byte),
	}
	slog.Info("Report generator initialized.", "fillMode", config.FillMode, "proseFallback", config.ProseFallback, "workflowId", config.WorkflowID)
	return f, nil
}

// Process generates, stores and hands off one report.
func (f *ReportGeneratorFunction) Process(ctx context.Context, req *models.ReportRequest) (*models.ReportResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	reportID := uuid.NewString()
	logCtx := slog.With("reportId", reportID, "incidentId", req.IncidentID, "executionId", req.ExecutionID)
	logCtx.Info("Starting report generation.")

	docRef := f.firestoreClient.Collection(f.config.ReportCollection).Doc(reportID)
	if _, err := docRef.Set(ctx, models.ReportDocument{
		IncidentID:          req.IncidentID,
		UserID:              req.UserID,
		Status:              models.StatusGenerating,
		WorkflowExecutionID: req.ExecutionID,
		CreatedAt:           time.Now(),
	}); err != nil {
		logCtx.Error("Failed to create report document", "error", err)
		return nil, fmt.Errorf("failed to create report document: %w", err)
	}

	rec, err := f.records.Load(ctx, req.IncidentID, req.UserID)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to load incident record", err)
	}
	imageBucket := f.storageClient.Bucket(f.config.ImageBucket)
	rec.Images = ResolveImages(rec.Images, func(object string) (string, error) {
		return gcp.SignedURL(imageBucket, object, f.config.SignedURLTTL)
	}, logCtx)
	if f.vertexClient != nil {
		if n := FillMissingProse(ctx, rec, f.vertexClient, logCtx); n > 0 {
			logCtx.Info("Generated missing prose.", "sections", n)
		}
	}

	mainTemplate, err := f.template(ctx, f.config.MainTemplateObject)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to load main template", err)
	}
	repeatingTemplate, err := f.template(ctx, f.config.RepeatingTemplateObject)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to load repeating template", err)
	}

	result, err := f.pipeline.Generate(ctx, rec, mainTemplate, repeatingTemplate)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to generate report", err)
	}

	hash := contentHash(result.Bytes)
	objectName := reportObjectName(req.IncidentID, reportID)
	if err := f.saveReport(ctx, logCtx, objectName, result.Bytes); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to save report", err)
	}
	outputURI := fmt.Sprintf("gs://%s/%s", f.config.ReportBucket, objectName)

	updates := []firestore.Update{
		{Path: "status", Value: models.StatusComplete},
		{Path: "pageCount", Value: result.PageCount},
		{Path: "witnessCount", Value: len(rec.Witnesses)},
		{Path: "vehicleCount", Value: len(rec.Vehicles)},
		{Path: "fileHash", Value: hash},
		{Path: "outputGcsUri", Value: outputURI},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to COMPLETE", err)
	}
	logCtx.Info("Report stored.", "outputGcsUri", outputURI, "pageCount", result.PageCount, "fileHash", hash)

	if err := f.triggerDelivery(ctx, logCtx, docRef, models.DeliveryWorkflowArgs{
		ReportID:     reportID,
		IncidentID:   req.IncidentID,
		UserID:       req.UserID,
		OutputGCSUri: outputURI,
		PageCount:    result.PageCount,
	}); err != nil {
		return nil, err
	}

	return &models.ReportResponse{
		Status:       models.StatusComplete,
		ReportID:     reportID,
		OutputGCSUri: outputURI,
		PageCount:    result.PageCount,
	}, nil
}

// ProcessObject handles a request file dropped into a bucket.
func (f *ReportGeneratorFunction) ProcessObject(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.HasSuffix(e.Name, ".json") {
		logCtx.Info("Ignoring non-request object.")
		return nil
	}
	data, err := gcp.ReadObject(ctx, f.storageClient.Bucket(e.Bucket), e.Name)
	if err != nil {
		logCtx.Error("Failed to read report request", "error", err)
		return err
	}
	var req models.ReportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		logCtx.Error("Failed to decode report request", "error", err)
		return fmt.Errorf("failed to decode report request: %w", err)
	}
	res, err := f.Process(ctx, &req)
	if err != nil {
		return err
	}
	logCtx.Info("Report request processed.", "reportId", res.ReportID)
	return nil
}

// Close releases the browser and the clients.
func (f *ReportGeneratorFunction) Close() error {
	f.browser.Shutdown()
	var errs []error
	if f.vertexClient != nil {
		errs = append(errs, f.vertexClient.Close())
	}
	if f.executionsClient != nil {
		errs = append(errs, f.executionsClient.Close())
	}
	errs = append(errs, f.firestoreClient.Close(), f.storageClient.Close())
	return errors.Join(errs...)
}

// template returns a template from the template bucket, cached for the
// lifetime of the instance.
func (f *ReportGeneratorFunction) template(ctx context.Context, objectName string) ([]byte, error) {
	f.tmplMu.Lock()
	defer f.tmplMu.Unlock()
	if data, ok := f.templates[objectName]; ok {
		return data, nil
	}
	data, err := gcp.ReadObject(ctx, f.storageClient.Bucket(f.config.TemplateBucket), objectName)
	if err != nil {
		return nil, err
	}
	f.templates[objectName] = data
	return data, nil
}

func (f *ReportGeneratorFunction) saveReport(ctx context.Context, logCtx *slog.Logger, objectName string, data []byte) error {
	bucket := f.storageClient.Bucket(f.config.ReportBucket)
	return retry(ctx, logCtx, objectName, 4, time.Second, func(ctx context.Context) error {
		writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
		defer cancel()
		err := gcp.SaveObject(writeCtx, bucket, objectName, "application/pdf", data)
		if errors.Is(err, gcp.ErrObjectExists) {
			// An earlier attempt finalized the object but its response was lost.
			logCtx.Info("SKIPPING: Report object already exists.", "gcsObject", objectName)
			return nil
		}
		return err
	})
}

// retry runs fn up to attempts times, doubling backoff between failures.
func retry(ctx context.Context, logCtx *slog.Logger, what string, attempts int, backoff time.Duration, fn func(context.Context) error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		logCtx.Warn(
			"Upload failed, will retry.",
			"gcsObject", what,
			"attempt", i+1,
			"maxRetries", attempts,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			logCtx.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", what, "error", ctx.Err())
			return ctx.Err()
		}
	}
	logCtx.Error("Upload failed after all retries.", "gcsObject", what, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", what, lastErr)
}

func (f *ReportGeneratorFunction) triggerDelivery(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, args models.DeliveryWorkflowArgs) error {
	if f.executionsClient == nil {
		logCtx.Info("No delivery workflow configured.")
		return nil
	}
	payloadBytes, err := json.Marshal(args)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to marshal workflow payload", err)
	}
	exec, err := f.executionsClient.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent: workflowParent(f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	})
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to trigger delivery workflow", err)
	}
	logCtx.Info("Delivery workflow triggered.", "execution", exec.GetName())
	return nil
}

func (f *ReportGeneratorFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, models.StatusFailed, fmt.Sprintf("%s: %v", message, originalErr)); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func (f *ReportGeneratorFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func validateRequest(req *models.ReportRequest) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.IncidentID) == "" || strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("%w: incidentId and userId are required", ErrInvalidRequest)
	}
	if strings.ContainsAny(req.IncidentID+req.UserID, "/") {
		return fmt.Errorf("%w: identifiers must not contain '/'", ErrInvalidRequest)
	}
	return nil
}

func reportObjectName(incidentID, reportID string) string {
	return fmt.Sprintf("reports/%s/%s.pdf", incidentID, reportID)
}

func workflowParent(projectID, location, workflowID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID)
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
