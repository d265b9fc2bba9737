package types_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ekkohq/ekko/pkg/types"
)

func TestContactValidate(t *testing.T) {
	cases := []struct {
		name    string
		contact types.Contact
		wantErr bool
	}{
		{"valid", types.Contact{FirstName: "Ada", LastName: "Lovelace"}, false},
		{"missing first name", types.Contact{LastName: "Lovelace"}, true},
		{"missing last name", types.Contact{FirstName: "Ada"}, true},
		{"whitespace only", types.Contact{FirstName: "  ", LastName: "Lovelace"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.contact.Validate()
			if tc.wantErr && !errors.Is(err, types.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestContactNormalizeTags(t *testing.T) {
	c := types.Contact{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Tags:      []string{"investor", "", "founder", "investor", " founder "},
	}
	c.NormalizeTags()

	want := []string{"founder", "investor"}
	if len(c.Tags) != len(want) {
		t.Fatalf("got %d tags %v, want %d", len(c.Tags), c.Tags, len(want))
	}
	for i, tag := range want {
		if c.Tags[i] != tag {
			t.Errorf("tag[%d] = %q, want %q", i, c.Tags[i], tag)
		}
	}
}

func TestTaskValidate(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		task    types.Task
		wantErr bool
	}{
		{"valid pending", types.Task{Title: "Call Marcus", Priority: types.PriorityHigh}, false},
		{"valid completed", types.Task{Title: "Send deck", Completed: true, CompletedAt: &now}, false},
		{"empty priority defaults later", types.Task{Title: "Follow up"}, false},
		{"missing title", types.Task{Priority: types.PriorityLow}, true},
		{"unknown priority", types.Task{Title: "x", Priority: "urgent"}, true},
		{"completed without timestamp", types.Task{Title: "x", Completed: true}, true},
		{"timestamp without flag", types.Task{Title: "x", CompletedAt: &now}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.task.Validate()
			if tc.wantErr && !errors.Is(err, types.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNoteValidate(t *testing.T) {
	valid := types.Note{Title: "Ideas", Content: "…"}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	invalid := types.Note{Content: "orphan body"}
	if err := invalid.Validate(); !errors.Is(err, types.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestVoiceLogValidate(t *testing.T) {
	valid := types.VoiceLog{Transcription: "add a task", Intent: types.IntentCreateTask, Response: "Done"}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	missing := types.VoiceLog{Intent: types.IntentQuery}
	if err := missing.Validate(); !errors.Is(err, types.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	c := types.Contact{FirstName: "Grace", LastName: "Hopper"}
	if got := c.DisplayName(); got != "Grace Hopper" {
		t.Errorf("DisplayName() = %q, want %q", got, "Grace Hopper")
	}
}
