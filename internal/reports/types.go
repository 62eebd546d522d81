package reports

import (
	"context"
	"errors"
	"time"

	"github.com/closeguard/closeguard/internal/engine"
)

// ErrNotFound is returned when a report ID is unknown to the store.
var ErrNotFound = errors.New("report not found")

// Metadata describes the analyzed document.
type Metadata struct {
	Filename     string    `json:"filename"`
	TextLength   int       `json:"text_length"`
	UploadedAt   time.Time `json:"upload_timestamp"`
	ProcessingMS float64   `json:"processing_time_ms"`
}

// Report is one completed analysis, addressable by opaque ID.
type Report struct {
	ID        string              `json:"id"`
	Status    string              `json:"status"`
	Flags     []engine.Finding    `json:"flags"`
	Analytics engine.Analytics    `json:"analytics"`
	Metadata  Metadata            `json:"metadata"`
	Context   *engine.UserContext `json:"user_context,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Summary is the listing view of a report.
type Summary struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Filename  string `json:"filename"`
	FlagCount int    `json:"flags_count"`
}

// Store persists analysis reports keyed by ID.
type Store interface {
	Save(ctx context.Context, report *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
