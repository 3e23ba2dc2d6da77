// Package service ties extraction and storage together for the CLI and the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/at-ishikawa/actionnotes/internal/actionitem"
	"github.com/at-ishikawa/actionnotes/internal/database"
	"github.com/at-ishikawa/actionnotes/internal/extract"
	"github.com/at-ishikawa/actionnotes/internal/metrics"
	"github.com/at-ishikawa/actionnotes/internal/note"
)

// ExtractResult is the outcome of one extraction call.
// NoteID is set only when the text was saved as a note.
type ExtractResult struct {
	NoteID *int64                  `json:"note_id" yaml:"note_id,omitempty"`
	Items  []actionitem.ActionItem `json:"items" yaml:"items"`
}

// MarkDoneResult is the new status of an action item.
type MarkDoneResult struct {
	ID   int64 `json:"id" yaml:"id"`
	Done bool  `json:"done" yaml:"done"`
}

type Service struct {
	notes          note.Repository
	actionItems    actionitem.Repository
	modelExtractor *extract.ModelExtractor
	metrics        *metrics.Metrics
}

// New creates a Service. m may be nil.
func New(
	notes note.Repository,
	actionItems actionitem.Repository,
	modelExtractor *extract.ModelExtractor,
	m *metrics.Metrics,
) *Service {
	return &Service{
		notes:          notes,
		actionItems:    actionItems,
		modelExtractor: modelExtractor,
		metrics:        m,
	}
}

// Extract runs the deterministic extractor over text and stores the items.
func (s *Service) Extract(ctx context.Context, text string, saveNote bool) (*ExtractResult, error) {
	return s.extractAndStore(ctx, text, saveNote, metrics.StrategyHeuristic, func(ctx context.Context, text string) []string {
		return extract.Extract(text)
	})
}

// ExtractWithModel runs the model extractor over text and stores the items.
// A failing model yields a result with no items, not an error.
func (s *Service) ExtractWithModel(ctx context.Context, text string, saveNote bool) (*ExtractResult, error) {
	if s.modelExtractor == nil {
		return nil, errors.New("model extraction is not configured")
	}
	return s.extractAndStore(ctx, text, saveNote, metrics.StrategyModel, s.modelExtractor.Extract)
}

func (s *Service) extractAndStore(
	ctx context.Context,
	text string,
	saveNote bool,
	strategy string,
	extractFunc func(ctx context.Context, text string) []string,
) (*ExtractResult, error) {
	text, err := requireText("text", text)
	if err != nil {
		return nil, err
	}

	var noteID *int64
	if saveNote {
		id, err := s.notes.Create(ctx, text)
		if err != nil {
			return nil, s.storageError("notes.Create", err)
		}
		noteID = &id
		slog.Default().InfoContext(ctx, "saved note", "id", id)
	}

	texts := extractFunc(ctx, text)
	s.metrics.RecordExtraction(strategy, len(texts))
	slog.Default().InfoContext(ctx, "extracted action items",
		"strategy", strategy,
		"count", len(texts),
	)

	ids, err := s.actionItems.BatchCreate(ctx, texts, noteID)
	if err != nil {
		return nil, s.storageError("actionItems.BatchCreate", err)
	}
	items, err := s.actionItems.FindByIDs(ctx, ids)
	if err != nil {
		return nil, s.storageError("actionItems.FindByIDs", err)
	}
	return &ExtractResult{NoteID: noteID, Items: items}, nil
}

// CreateNote stores content as a note and returns it.
func (s *Service) CreateNote(ctx context.Context, content string) (*note.Note, error) {
	content, err := requireText("content", content)
	if err != nil {
		return nil, err
	}

	id, err := s.notes.Create(ctx, content)
	if err != nil {
		return nil, s.storageError("notes.Create", err)
	}
	slog.Default().InfoContext(ctx, "created note", "id", id)

	created, err := s.notes.FindByID(ctx, id)
	if err != nil {
		return nil, s.storageError("notes.FindByID", err)
	}
	if created == nil {
		return nil, fmt.Errorf("failed to retrieve created note %d", id)
	}
	return created, nil
}

// GetNote returns the note or a *NotFoundError.
func (s *Service) GetNote(ctx context.Context, id int64) (*note.Note, error) {
	found, err := s.notes.FindByID(ctx, id)
	if err != nil {
		return nil, s.storageError("notes.FindByID", err)
	}
	if found == nil {
		return nil, &NotFoundError{Resource: ResourceNote, ID: id}
	}
	return found, nil
}

// ListNotes returns every note, newest first.
func (s *Service) ListNotes(ctx context.Context) ([]note.Note, error) {
	notes, err := s.notes.FindAll(ctx)
	if err != nil {
		return nil, s.storageError("notes.FindAll", err)
	}
	return notes, nil
}

// ListActionItems returns action items newest first, optionally only those of one note.
func (s *Service) ListActionItems(ctx context.Context, noteID *int64) ([]actionitem.ActionItem, error) {
	items, err := s.actionItems.FindAll(ctx, noteID)
	if err != nil {
		return nil, s.storageError("actionItems.FindAll", err)
	}
	return items, nil
}

// MarkActionItemDone sets the done flag of an existing action item.
// Unlike the repository, a missing item is reported as a *NotFoundError.
func (s *Service) MarkActionItemDone(ctx context.Context, id int64, done bool) (*MarkDoneResult, error) {
	found, err := s.actionItems.FindByID(ctx, id)
	if err != nil {
		return nil, s.storageError("actionItems.FindByID", err)
	}
	if found == nil {
		return nil, &NotFoundError{Resource: ResourceActionItem, ID: id}
	}

	if err := s.actionItems.UpdateDone(ctx, id, done); err != nil {
		return nil, s.storageError("actionItems.UpdateDone", err)
	}
	slog.Default().InfoContext(ctx, "marked action item", "id", id, "done", done)
	return &MarkDoneResult{ID: id, Done: done}, nil
}

func (s *Service) storageError(call string, err error) error {
	var dbErr *database.Error
	if errors.As(err, &dbErr) {
		s.metrics.RecordStorageError(dbErr.Op)
	}
	return fmt.Errorf("%s > %w", call, err)
}

func requireText(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", &ValidationError{Field: field, Message: "cannot be empty or only whitespace"}
	}
	return trimmed, nil
}
