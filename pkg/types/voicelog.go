package types

import (
	"fmt"
	"strings"
	"time"
)

// Voice log intent keys produced by the external intent classifier. Intent
// is an open string; these are the well-known values.
const (
	IntentCreateContact = "create_contact"
	IntentCreateTask    = "create_task"
	IntentCreateNote    = "create_note"
	IntentQuery         = "query"
	IntentGreeting      = "greeting"
	IntentError         = "error"
)

// VoiceLog records a single voice interaction: what the user said, how the
// classifier labelled it, and what the assistant answered. Voice logs are
// immutable once created; the log is append-only.
type VoiceLog struct {
	ID            string    `json:"id"` // Unique identifier (format: vl:<slug>)
	Transcription string    `json:"transcription"`
	Intent        string    `json:"intent"`
	Response      string    `json:"response"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the voice log's required fields.
func (v *VoiceLog) Validate() error {
	if strings.TrimSpace(v.Transcription) == "" {
		return fmt.Errorf("%w: transcription is required", ErrValidation)
	}
	if strings.TrimSpace(v.Intent) == "" {
		return fmt.Errorf("%w: intent is required", ErrValidation)
	}
	return nil
}
