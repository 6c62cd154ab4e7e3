package domain

import (
	"fmt"
	"strings"
	"time"
)

type RunID string

// RunSummary is what the run ledger keeps about a completed generation run.
type RunSummary struct {
	ID         RunID
	Topic      string
	Sink       string
	Format     string
	Schema     string
	Requested  int
	Produced   int
	Delivered  int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
	Err        string
}

func (s RunSummary) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(s.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if s.Produced < 0 || s.Delivered < 0 || s.Failed < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	if s.Delivered+s.Failed > s.Produced {
		return fmt.Errorf("delivered and failed exceed produced")
	}
	return nil
}

func (s RunSummary) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Pending is the number of messages handed to the sink without a reported outcome.
func (s RunSummary) Pending() int {
	pending := s.Produced - s.Delivered - s.Failed
	if pending < 0 {
		return 0
	}
	return pending
}
