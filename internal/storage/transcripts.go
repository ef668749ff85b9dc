// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/konsulton-tui/internal/model"
	"github.com/jeranaias/konsulton-tui/internal/util"
)

// DefaultMaxTranscripts is used when the store is created with a limit < 0.
const DefaultMaxTranscripts = 100

// =============================================================================
// STORED TRANSCRIPT TYPE
// =============================================================================

// Transcript is a saved conversation.
type Transcript struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []model.ChatMessage `json:"messages"`
}

// TranscriptMeta contains metadata for listing transcripts.
type TranscriptMeta struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// TranscriptStore keeps one JSON file per transcript in BaseDir.
type TranscriptStore struct {
	BaseDir string

	// MaxTranscripts limits stored transcripts (0 = unlimited)
	MaxTranscripts int
}

// NewTranscriptStore creates the directory if needed. A negative limit
// selects DefaultMaxTranscripts.
func NewTranscriptStore(baseDir string, maxTranscripts int) (*TranscriptStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	if maxTranscripts < 0 {
		maxTranscripts = DefaultMaxTranscripts
	}
	return &TranscriptStore{
		BaseDir:        baseDir,
		MaxTranscripts: maxTranscripts,
	}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save stores messages as a new transcript and returns its ID. Loading
// placeholders are dropped. modelFile is the file name of the model that
// produced the replies.
func (s *TranscriptStore) Save(messages []model.ChatMessage, modelFile string) (string, error) {
	kept := make([]model.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if !m.IsLoading {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return "", ErrEmptyTranscript
	}
	return s.SaveTranscript(&Transcript{Model: modelFile, Messages: kept})
}

// SaveTranscript writes t, assigning an ID and summary when missing.
func (s *TranscriptStore) SaveTranscript(t *Transcript) (string, error) {
	if t.ID == "" {
		t.ID = generateTranscriptID()
	}
	if t.Summary == "" {
		t.Summary = generateSummary(t.Messages)
	}

	t.UpdatedAt = time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}
	if err := util.AtomicWriteFile(s.filePath(t.ID), data, 0600); err != nil {
		return "", err
	}

	if s.MaxTranscripts > 0 {
		s.enforceLimit()
	}
	return t.ID, nil
}

// generateSummary uses the first user message, flattened to one line.
func generateSummary(messages []model.ChatMessage) string {
	for _, msg := range messages {
		if msg.IsUser && strings.TrimSpace(msg.Content) != "" {
			content := strings.ReplaceAll(msg.Content, "\r", "")
			content = strings.ReplaceAll(content, "\n", " ")
			return util.TruncateRunes(content, 50)
		}
	}
	return "New conversation"
}

// enforceLimit removes the oldest transcripts if over limit.
func (s *TranscriptStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxTranscripts {
		return
	}
	// List is newest first.
	for _, m := range metas[s.MaxTranscripts:] {
		s.Delete(m.ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a transcript by ID.
func (s *TranscriptStore) Load(id string) (*Transcript, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTranscriptNotFound
		}
		return nil, err
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadByIndex loads a transcript by its position in List (0 = most recent).
func (s *TranscriptStore) LoadByIndex(index int) (*Transcript, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrTranscriptNotFound
	}
	return s.Load(metas[index].ID)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved transcripts, most recent first. Unreadable files
// are skipped.
func (s *TranscriptStore) List() ([]TranscriptMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TranscriptMeta{}, nil
		}
		return nil, err
	}

	metas := make([]TranscriptMeta, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		t, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		metas = append(metas, TranscriptMeta{
			ID:           t.ID,
			Summary:      t.Summary,
			Model:        t.Model,
			CreatedAt:    t.CreatedAt,
			UpdatedAt:    t.UpdatedAt,
			MessageCount: len(t.Messages),
			Preview:      t.Preview(),
		})
	}

	sort.SliceStable(metas, func(i, j int) bool {
		if metas[i].UpdatedAt.Equal(metas[j].UpdatedAt) {
			return metas[i].ID > metas[j].ID
		}
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Search finds transcripts whose summary or any message contains query
// (case-insensitive). An empty query returns everything.
func (s *TranscriptStore) Search(query string) ([]TranscriptMeta, error) {
	all, err := s.List()
	if err != nil || query == "" {
		return all, err
	}

	query = strings.ToLower(query)
	var results []TranscriptMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Summary), query) {
			results = append(results, meta)
			continue
		}
		t, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, msg := range t.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a transcript by ID.
func (s *TranscriptStore) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrTranscriptNotFound
		}
		return err
	}
	return nil
}

// Clear removes all saved transcripts.
func (s *TranscriptStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Path returns where the transcript with id is stored.
func (s *TranscriptStore) Path(id string) string {
	return s.filePath(id)
}

// filePath returns the file path for a transcript ID. IDs are reduced to
// their base name so they cannot escape BaseDir.
func (s *TranscriptStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, filepath.Base(id)+".json")
}

func generateTranscriptID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return time.Now().UTC().Format("20060102-150405") + "_" + hex.EncodeToString(b)
}

// =============================================================================
// EXPORT
// =============================================================================

// Preview returns the first user message, truncated for listings.
func (t *Transcript) Preview() string {
	for _, msg := range t.Messages {
		if msg.IsUser && msg.Content != "" {
			return msg.Preview(80)
		}
	}
	return ""
}

// ExportMarkdown renders the transcript with role labels and times.
func (t *Transcript) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + t.Summary + "\n\n")
	if t.Model != "" {
		sb.WriteString("Model: `" + t.Model + "`\n\n")
	}
	sb.WriteString("Created: " + t.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range t.Messages {
		sb.WriteString("**" + msg.Role().PromptLabel() + "** (" + msg.Time().Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// FormatList renders transcripts as a plain table.
func FormatList(metas []TranscriptMeta) string {
	if len(metas) == 0 {
		return "No transcripts found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("ID", 32) + " " + util.PadRight("Saved", 17) + " " + util.PadRight("Msgs", 5) + " Preview\n")
	for _, m := range metas {
		sb.WriteString(util.PadRight(m.ID, 32) + " " +
			util.PadRight(m.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(strconv.Itoa(m.MessageCount), 5) + " " +
			util.TruncateWidth(m.Preview, 40) + "\n")
	}
	return sb.String()
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTranscriptNotFound is returned when a transcript doesn't exist.
	// Use errors.Is(err, ErrTranscriptNotFound) to check for this error.
	ErrTranscriptNotFound = &TranscriptError{Message: "transcript not found"}

	// ErrEmptyTranscript is returned when there is nothing to save.
	ErrEmptyTranscript = &TranscriptError{Message: "nothing to save"}
)

// TranscriptError represents a transcript-related error.
type TranscriptError struct {
	Message string
}

// Error implements the error interface.
func (e *TranscriptError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing transcript errors.
func (e *TranscriptError) Is(target error) bool {
	t, ok := target.(*TranscriptError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
