package models

// These structs define the JSON payloads exchanged with the report generator
// function, either over HTTP or as a request object dropped into a bucket.

// ReportRequest is the input for the report-generator function.
type ReportRequest struct {
	IncidentID  string `json:"incidentId"`
	UserID      string `json:"userId"`
	ExecutionID string `json:"executionId,omitempty"`
}

// ReportResponse is the output of the report-generator function.
type ReportResponse struct {
	Status       string `json:"status"`
	ReportID     string `json:"reportId"`
	OutputGCSUri string `json:"outputGcsUri"`
	PageCount    int    `json:"pageCount"`
}

// DeliveryWorkflowArgs is handed to the delivery workflow once a report is stored.
type DeliveryWorkflowArgs struct {
	ReportID     string `json:"reportId"`
	IncidentID   string `json:"incidentId"`
	UserID       string `json:"userId"`
	OutputGCSUri string `json:"outputGcsUri"`
	PageCount    int    `json:"pageCount"`
}
