// Package batch implements the batch orchestrator (C12): adaptive batch
// sizing, batch coordination and fan-out over the queue, progress tracking
// with threshold-crossing notifications, and coordination health
// monitoring.
package batch

import "time"

// Status is the lifecycle state of a batch or coordination run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// HealthStatus classifies a coordination's operational health.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStalled  HealthStatus = "stalled"
	HealthError    HealthStatus = "error"
)

// Coordination is the top-level record for one batch run: a processing_type
// (e.g. "opportunity_scoring", "csv_ingest") split into one or more batches.
type Coordination struct {
	CoordinationID        string    `json:"coordinationId"`
	ProcessingType        string    `json:"processingType"`
	Status                Status    `json:"status"`
	TotalBatches          int       `json:"totalBatches"`
	TotalItems            int       `json:"totalItems"`
	CompletedBatches      int       `json:"completedBatches"`
	FailedBatches         int       `json:"failedBatches"`
	ItemsProcessed        int       `json:"itemsProcessed"`
	ItemsTotal            int       `json:"itemsTotal"`
	Errors                int       `json:"errors"`
	ProgressPercentage    float64   `json:"progressPercentage"`
	LastNotifiedThreshold int       `json:"lastNotifiedThreshold"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// BatchRecord is one partition of a Coordination's work.
type BatchRecord struct {
	CoordinationID string    `json:"coordinationId"`
	BatchID        string    `json:"batchId"`
	BatchIndex     int       `json:"batchIndex"`
	Status         Status    `json:"status"`
	ItemsProcessed int       `json:"itemsProcessed"`
	ItemsTotal     int       `json:"itemsTotal"`
	Errors         int       `json:"errors"`
	RetryCount     int       `json:"retryCount"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Message is the queue payload for one batch.
type Message struct {
	CoordinationID string   `json:"coordination_id"`
	BatchID        string   `json:"batch_id"`
	BatchIndex     int      `json:"batch_index"`
	BatchData      []string `json:"batch_data"`
}

// ErrorInfo describes why a batch failed, for the retry/failure handler.
type ErrorInfo struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
	RetryCount   int    `json:"retryCount"`
}

// notificationThresholds mirrors the progress-percentage milestones that
// trigger a notification, checked in ascending order so a single update
// that jumps several milestones at once (e.g. 10% -> 95%) fires every
// crossed threshold exactly once.
var notificationThresholds = []int{25, 50, 75, 90, 100}
