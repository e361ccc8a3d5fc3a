package models

import "time"

// ReportDocument is the Firestore record tracking one report generation request.
type ReportDocument struct {
	IncidentID          string    `firestore:"incidentId,omitempty"`
	UserID              string    `firestore:"userId,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	WitnessCount        int       `firestore:"witnessCount,omitempty"`
	VehicleCount        int       `firestore:"vehicleCount,omitempty"`
	FileHash            string    `firestore:"fileHash,omitempty"`
	OutputGCSUri        string    `firestore:"outputGcsUri,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}

// Report status values.
const (
	StatusGenerating = "GENERATING"
	StatusComplete   = "COMPLETE"
	StatusFailed     = "FAILED"
)
