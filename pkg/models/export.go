package models

import "time"

// ExportOutcome distinguishes the terminal states of an export run.
// A user cancel is not an error; a delivery timeout is neither a
// success nor a failure.
type ExportOutcome string

const (
	ExportCompleted ExportOutcome = "completed"
	ExportStopped   ExportOutcome = "stopped"
	ExportFailed    ExportOutcome = "failed"
)

// ArchiveRef describes one delivered archive.
type ArchiveRef struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Bytes   int    `json:"bytes"`
	SinkID  string `json:"sink_id,omitempty"`
}

// ExportReport is the summary handed back to the caller when the
// pipeline finishes, stops or fails.
type ExportReport struct {
	Outcome           ExportOutcome `json:"outcome"`
	Archives          []ArchiveRef  `json:"archives,omitempty"`
	Exported          int           `json:"exported"`
	SkippedDuplicates int           `json:"skipped_duplicates"`
	FailedItems       []string      `json:"failed_items,omitempty"`
	DeliveryUnknown   int           `json:"delivery_unknown,omitempty"` // batches whose delivery never confirmed
	RetryOffered      bool          `json:"retry_offered,omitempty"`    // delivery failed; whole-run retry offered
	ReExportOffered   bool          `json:"re_export_offered,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	FinishedAt        time.Time     `json:"finished_at"`
}
