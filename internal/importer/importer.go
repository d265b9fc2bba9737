// Package importer loads contacts and notes from a directory of Markdown
// files with YAML frontmatter. Each file declares its entity kind in
// frontmatter (`type: contact` or `type: note`, defaulting to note); the
// body becomes the contact's notes or the note's content.
package importer

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ekkohq/ekko/internal/engine"
	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/pkg/types"
	"github.com/google/uuid"
)

// ImportResult is the final summary produced by a completed import job.
type ImportResult struct {
	JobID           string        `json:"job_id"`
	FilesFound      int           `json:"files_found"`
	FilesProcessed  int           `json:"files_processed"`
	FilesSkipped    int           `json:"files_skipped"`
	FilesFailed     int           `json:"files_failed"`
	ContactsCreated int           `json:"contacts_created"`
	NotesCreated    int           `json:"notes_created"`
	Errors          []string      `json:"errors,omitempty"`
	Duration        time.Duration `json:"duration_ms"`
}

// ImportProgress carries live progress data for a running job.
type ImportProgress struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"` // "running" | "complete" | "failed"
	FilesFound     int    `json:"files_found"`
	FilesProcessed int    `json:"files_processed"`
	FilesTotal     int    `json:"files_total"`
	CurrentFile    string `json:"current_file,omitempty"`
	Message        string `json:"message,omitempty"`
}

// ImportJob tracks the state of an async import operation.
type ImportJob struct {
	mu       sync.RWMutex
	Progress ImportProgress
	Result   *ImportResult
	Done     chan struct{}
}

func newImportJob(jobID string) *ImportJob {
	return &ImportJob{
		Progress: ImportProgress{
			JobID:  jobID,
			Status: "running",
		},
		Done: make(chan struct{}),
	}
}

// GetProgress returns a snapshot of the current import progress.
func (j *ImportJob) GetProgress() ImportProgress {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Progress
}

// ContactOpener is called for each imported contact so enrichment can be
// scheduled for it. A nil opener disables enrichment during import.
type ContactOpener func(ctx context.Context, contact *types.Contact)

// MarkdownImporter walks a directory of Markdown files and creates Ekko
// contacts and notes from what it finds.
type MarkdownImporter struct {
	store  storage.Store
	opener ContactOpener

	// mu protects jobs.
	mu   sync.RWMutex
	jobs map[string]*ImportJob
}

// NewMarkdownImporter creates an importer writing to the given store.
func NewMarkdownImporter(store storage.Store, opener ContactOpener) *MarkdownImporter {
	return &MarkdownImporter{
		store:  store,
		opener: opener,
		jobs:   make(map[string]*ImportJob),
	}
}

// StartImport begins an asynchronous import of the directory at dirPath.
// It returns a job ID that callers can use with GetJobProgress / GetJobResult.
func (imp *MarkdownImporter) StartImport(ctx context.Context, dirPath string) (string, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return "", fmt.Errorf("cannot access directory %q: %w", dirPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", dirPath)
	}

	jobID := uuid.New().String()
	job := newImportJob(jobID)

	imp.mu.Lock()
	imp.jobs[jobID] = job
	imp.mu.Unlock()

	go func() {
		result := imp.runImport(ctx, job, dirPath)
		job.mu.Lock()
		job.Result = result
		if len(result.Errors) > 0 && result.FilesProcessed == 0 {
			job.Progress.Status = "failed"
			job.Progress.Message = "Import failed"
		} else {
			job.Progress.Status = "complete"
			job.Progress.Message = fmt.Sprintf("Imported %d contacts and %d notes from %d files",
				result.ContactsCreated, result.NotesCreated, result.FilesProcessed)
		}
		job.mu.Unlock()
		close(job.Done)
	}()

	return jobID, nil
}

// GetJobProgress returns the live progress for a job, or false if unknown.
func (imp *MarkdownImporter) GetJobProgress(jobID string) (ImportProgress, bool) {
	imp.mu.RLock()
	job, ok := imp.jobs[jobID]
	imp.mu.RUnlock()
	if !ok {
		return ImportProgress{}, false
	}
	return job.GetProgress(), true
}

// GetJobResult returns the final result for a completed job.
// Returns nil if the job is still running or not found.
func (imp *MarkdownImporter) GetJobResult(jobID string) *ImportResult {
	imp.mu.RLock()
	job, ok := imp.jobs[jobID]
	imp.mu.RUnlock()
	if !ok {
		return nil
	}
	job.mu.RLock()
	defer job.mu.RUnlock()
	return job.Result
}

// ErrEmptyFile is returned by ImportFile when the file has no content.
var ErrEmptyFile = errors.New("file is empty")

// ImportFile imports a single Markdown file outside of any job and
// returns the kind of entity created ("contact" or "note"). The drop
// folder watcher uses this for files as they arrive.
func (imp *MarkdownImporter) ImportFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", ErrEmptyFile
	}

	parsed, err := ParseMarkdownFile(data, path, filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}

	switch parsed.Kind {
	case "contact":
		if err := imp.storeContact(ctx, parsed); err != nil {
			return "", err
		}
	default:
		if err := imp.storeNote(ctx, parsed); err != nil {
			return "", err
		}
	}
	return parsed.Kind, nil
}

// runImport is the synchronous import logic executed in a goroutine.
func (imp *MarkdownImporter) runImport(ctx context.Context, job *ImportJob, dirPath string) *ImportResult {
	start := time.Now()
	result := &ImportResult{JobID: job.Progress.JobID}

	files, err := collectMarkdownFiles(dirPath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("walk error: %v", err))
		return result
	}

	result.FilesFound = len(files)
	job.mu.Lock()
	job.Progress.FilesFound = len(files)
	job.Progress.FilesTotal = len(files)
	job.mu.Unlock()

	if len(files) == 0 {
		result.Duration = time.Since(start)
		return result
	}

	for i, absPath := range files {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		rel, _ := filepath.Rel(dirPath, absPath)

		job.mu.Lock()
		job.Progress.FilesProcessed = i
		job.Progress.CurrentFile = rel
		job.mu.Unlock()

		data, err := os.ReadFile(absPath)
		if err != nil {
			log.Printf("import: skip %s: read error: %v", rel, err)
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: read error: %v", rel, err))
			continue
		}

		if len(strings.TrimSpace(string(data))) == 0 {
			result.FilesSkipped++
			continue
		}

		parsed, err := ParseMarkdownFile(data, absPath, rel)
		if err != nil {
			log.Printf("import: skip %s: parse error: %v", rel, err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: parse error: %v", rel, err))
			continue
		}

		switch parsed.Kind {
		case "contact":
			err = imp.storeContact(ctx, parsed)
			if err == nil {
				result.ContactsCreated++
			}
		default:
			err = imp.storeNote(ctx, parsed)
			if err == nil {
				result.NotesCreated++
			}
		}
		if err != nil {
			log.Printf("import: failed to store %s: %v", rel, err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: store error: %v", rel, err))
			continue
		}

		result.FilesProcessed++
	}

	result.Duration = time.Since(start)
	return result
}

// storeContact converts a ParsedFile into a types.Contact and stores it.
// First and last name come from frontmatter when present, otherwise from
// splitting the title on its first space.
func (imp *MarkdownImporter) storeContact(ctx context.Context, pf *ParsedFile) error {
	first := extractString(pf.Frontmatter, "first_name", "")
	last := extractString(pf.Frontmatter, "last_name", "")
	if first == "" || last == "" {
		splitFirst, splitLast := splitName(pf.Title)
		if first == "" {
			first = splitFirst
		}
		if last == "" {
			last = splitLast
		}
	}

	now := time.Now().UTC()
	ts := pf.Timestamp
	if ts.IsZero() {
		ts = now
	}

	contact := &types.Contact{
		ID:          engine.NewID("ct"),
		FirstName:   first,
		LastName:    last,
		Company:     extractString(pf.Frontmatter, "company", ""),
		Role:        extractString(pf.Frontmatter, "role", ""),
		Email:       extractString(pf.Frontmatter, "email", ""),
		Phone:       extractString(pf.Frontmatter, "phone", ""),
		LinkedIn:    extractString(pf.Frontmatter, "linkedin", ""),
		Notes:       pf.Content,
		Tags:        pf.Tags,
		AvatarColor: extractString(pf.Frontmatter, "avatar_color", pickAvatarColor(pf.Title)),
		CreatedAt:   ts,
		UpdatedAt:   now,
	}
	contact.NormalizeTags()

	if err := contact.Validate(); err != nil {
		return err
	}
	if err := imp.store.CreateContact(ctx, contact); err != nil {
		return err
	}
	if imp.opener != nil {
		imp.opener(ctx, contact)
	}
	return nil
}

// storeNote converts a ParsedFile into a types.Note and stores it.
func (imp *MarkdownImporter) storeNote(ctx context.Context, pf *ParsedFile) error {
	now := time.Now().UTC()
	ts := pf.Timestamp
	if ts.IsZero() {
		ts = now
	}

	note := &types.Note{
		ID:        engine.NewID("nt"),
		Title:     pf.Title,
		Content:   pf.Content,
		Color:     extractString(pf.Frontmatter, "color", ""),
		Pinned:    extractBool(pf.Frontmatter, "pinned"),
		CreatedAt: ts,
		UpdatedAt: now,
	}

	if err := note.Validate(); err != nil {
		return err
	}
	return imp.store.CreateNote(ctx, note)
}

// splitName splits a display name into first and last on the first space.
// Single-word names repeat the word so validation passes.
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], parts[0]
	}
	return parts[0], strings.TrimSpace(parts[1])
}

// pickAvatarColor assigns a stable default color from the display name.
func pickAvatarColor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	return types.DefaultAvatarColors[int(h.Sum32())%len(types.DefaultAvatarColors)]
}

// collectMarkdownFiles walks dirPath and returns all .md / .markdown files found.
// Hidden directories (e.g. .git, .obsidian) are skipped.
func collectMarkdownFiles(dirPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dirPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".md" || ext == ".markdown" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
