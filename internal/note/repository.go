// Package note provides the note model and its repository.
package note

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/actionnotes/internal/database"
)

//go:generate mockgen -source=repository.go -destination=../mocks/note/mock_repository.go -package=mock_note

// Note is the original text block that action items are extracted from.
type Note struct {
	ID        int64     `json:"id" yaml:"id"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

type noteRow struct {
	ID        int64              `db:"id"`
	Content   string             `db:"content"`
	CreatedAt database.Timestamp `db:"created_at"`
}

func (r noteRow) toNote() Note {
	return Note{ID: r.ID, Content: r.Content, CreatedAt: r.CreatedAt.Time}
}

// Repository defines operations for managing notes.
type Repository interface {
	Create(ctx context.Context, content string) (int64, error)
	FindByID(ctx context.Context, id int64) (*Note, error)
	FindAll(ctx context.Context) ([]Note, error)
}

// DBRepository implements Repository on top of sqlx.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

// Create inserts a note and returns its id.
func (r *DBRepository) Create(ctx context.Context, content string) (int64, error) {
	var noteID int64
	err := database.Transact(ctx, r.db, "insert note", func(ctx context.Context, tx *sqlx.Tx) error {
		if strings.TrimSpace(content) == "" {
			return errors.New("note content must not be empty or whitespace only")
		}
		result, err := tx.ExecContext(ctx, "INSERT INTO notes (content) VALUES (?)", content)
		if err != nil {
			return fmt.Errorf("tx.ExecContext(insert note) > %w", err)
		}
		noteID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("result.LastInsertId() > %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.Default().DebugContext(ctx, "inserted note", "id", noteID)
	return noteID, nil
}

// FindByID returns the note with the id, or nil if it does not exist.
func (r *DBRepository) FindByID(ctx context.Context, id int64) (*Note, error) {
	var found *Note
	err := database.Transact(ctx, r.db, "get note", func(ctx context.Context, tx *sqlx.Tx) error {
		var row noteRow
		err := tx.GetContext(ctx, &row, "SELECT id, content, created_at FROM notes WHERE id = ?", id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tx.GetContext(note) > %w", err)
		}
		n := row.toNote()
		found = &n
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		slog.Default().DebugContext(ctx, "note not found", "id", id)
	}
	return found, nil
}

// FindAll returns every note, newest first.
func (r *DBRepository) FindAll(ctx context.Context) ([]Note, error) {
	var notes []Note
	err := database.Transact(ctx, r.db, "list notes", func(ctx context.Context, tx *sqlx.Tx) error {
		var rows []noteRow
		if err := tx.SelectContext(ctx, &rows, "SELECT id, content, created_at FROM notes ORDER BY id DESC"); err != nil {
			return fmt.Errorf("tx.SelectContext(notes) > %w", err)
		}
		notes = make([]Note, 0, len(rows))
		for _, row := range rows {
			notes = append(notes, row.toNote())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}
