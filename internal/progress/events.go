package progress

import "time"

// Event types emitted by the export pipeline.
const (
	EventProgress = "export.progress"
	EventArchive  = "export.archive"
	EventDone     = "export.done"
	EventStopped  = "export.stopped"
	EventFailed   = "export.failed"
)

// ExportEvent is broadcast to every connected TCP/WebSocket client
// whenever the pipeline crosses a batch boundary or finishes.
type ExportEvent struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id,omitempty"`
	Category  string    `json:"category"`
	Batch     int       `json:"batch,omitempty"`
	Batches   int       `json:"batches,omitempty"`
	Delivered int       `json:"delivered,omitempty"`
	Failed    int       `json:"failed,omitempty"`
	Archive   string    `json:"archive,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}
