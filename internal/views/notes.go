package views

import (
	"sort"
	"strings"

	"github.com/ekkohq/ekko/pkg/types"
)

// NoteBoard is the display partition of notes: pinned notes always precede
// unpinned ones, and each group is independently ordered by most recent
// update. Group membership is the sole authority for position; a freshly
// edited unpinned note never climbs above a stale pinned one.
type NoteBoard struct {
	Pinned []types.Note `json:"pinned"`
	Others []types.Note `json:"others"`
}

// PartitionNotes splits notes into the pinned and unpinned groups, each
// sorted by UpdatedAt descending.
func PartitionNotes(notes []types.Note) NoteBoard {
	board := NoteBoard{
		Pinned: make([]types.Note, 0, len(notes)),
		Others: make([]types.Note, 0, len(notes)),
	}

	for _, n := range notes {
		if n.Pinned {
			board.Pinned = append(board.Pinned, n)
		} else {
			board.Others = append(board.Others, n)
		}
	}

	byUpdatedDesc := func(s []types.Note) func(i, j int) bool {
		return func(i, j int) bool { return s[i].UpdatedAt.After(s[j].UpdatedAt) }
	}
	sort.SliceStable(board.Pinned, byUpdatedDesc(board.Pinned))
	sort.SliceStable(board.Others, byUpdatedDesc(board.Others))

	return board
}

// FilterNotes returns notes whose title or content contains the query,
// case-insensitively. An empty query matches everything.
func FilterNotes(notes []types.Note, query string) []types.Note {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]types.Note, len(notes))
		copy(out, notes)
		return out
	}

	out := make([]types.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), query) ||
			strings.Contains(strings.ToLower(n.Content), query) {
			out = append(out, n)
		}
	}
	return out
}
