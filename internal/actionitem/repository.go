// Package actionitem provides the action item model and its repository.
package actionitem

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

//go:generate mockgen -source=repository.go -destination=../mocks/actionitem/mock_repository.go -package=mock_actionitem

// ActionItem is a single task extracted from text.
// NoteID is a weak reference: it is checked when the item is written and never afterwards.
type ActionItem struct {
	ID        int64     `json:"id" yaml:"id"`
	NoteID    *int64    `json:"note_id" yaml:"note_id,omitempty"`
	Text      string    `json:"text" yaml:"text"`
	Done      bool      `json:"done" yaml:"done"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

type actionItemRow struct {
	ID        int64              `db:"id"`
	NoteID    sql.NullInt64      `db:"note_id"`
	Text      string             `db:"text"`
	Done      bool               `db:"done"`
	CreatedAt database.Timestamp `db:"created_at"`
}

func (r actionItemRow) toActionItem() ActionItem {
	item := ActionItem{ID: r.ID, Text: r.Text, Done: r.Done, CreatedAt: r.CreatedAt.Time}
	if r.NoteID.Valid {
		noteID := r.NoteID.Int64
		item.NoteID = &noteID
	}
	return item
}

const selectColumns = "SELECT id, note_id, text, done, created_at FROM action_items"

// Repository defines operations for managing action items.
type Repository interface {
	BatchCreate(ctx context.Context, texts []string, noteID *int64) ([]int64, error)
	FindAll(ctx context.Context, noteID *int64) ([]ActionItem, error)
	FindByID(ctx context.Context, id int64) (*ActionItem, error)
	FindByIDs(ctx context.Context, ids []int64) ([]ActionItem, error)
	UpdateDone(ctx context.Context, id int64, done bool) error
}

// DBRepository implements Repository on top of sqlx.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

// BatchCreate inserts texts in order and returns their ids in the same order.
// When noteID is set, the note must exist at insertion time.
func (r *DBRepository) BatchCreate(ctx context.Context, texts []string, noteID *int64) ([]int64, error) {
	if len(texts) == 0 {
		return []int64{}, nil
	}

	var noteArg sql.NullInt64
	if noteID != nil {
		noteArg = sql.NullInt64{Int64: *noteID, Valid: true}
	}

	ids := make([]int64, 0, len(texts))
	err := database.Transact(ctx, r.db, "insert action items", func(ctx context.Context, tx *sqlx.Tx) error {
		if noteID != nil {
			var exists int
			err := tx.GetContext(ctx, &exists, "SELECT 1 FROM notes WHERE id = ?", *noteID)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("note %d: %w", *noteID, database.ErrReferenceNotFound)
			}
			if err != nil {
				return fmt.Errorf("tx.GetContext(note exists) > %w", err)
			}
		}

		for _, text := range texts {
			if strings.TrimSpace(text) == "" {
				return errors.New("action item text must not be empty or whitespace only")
			}
			result, err := tx.ExecContext(ctx, "INSERT INTO action_items (note_id, text) VALUES (?, ?)", noteArg, text)
			if err != nil {
				return fmt.Errorf("tx.ExecContext(insert action_item) > %w", err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("result.LastInsertId() > %w", err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Default().DebugContext(ctx, "inserted action items", "count", len(ids))
	return ids, nil
}

// FindAll returns action items newest first, restricted to one note when noteID is set.
func (r *DBRepository) FindAll(ctx context.Context, noteID *int64) ([]ActionItem, error) {
	var items []ActionItem
	err := database.Transact(ctx, r.db, "list action items", func(ctx context.Context, tx *sqlx.Tx) error {
		var rows []actionItemRow
		var err error
		if noteID == nil {
			err = tx.SelectContext(ctx, &rows, selectColumns+" ORDER BY id DESC")
		} else {
			err = tx.SelectContext(ctx, &rows, selectColumns+" WHERE note_id = ? ORDER BY id DESC", *noteID)
		}
		if err != nil {
			return fmt.Errorf("tx.SelectContext(action_items) > %w", err)
		}
		items = make([]ActionItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, row.toActionItem())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindByID returns the action item with the id, or nil if it does not exist.
func (r *DBRepository) FindByID(ctx context.Context, id int64) (*ActionItem, error) {
	var found *ActionItem
	err := database.Transact(ctx, r.db, "get action item", func(ctx context.Context, tx *sqlx.Tx) error {
		var row actionItemRow
		err := tx.GetContext(ctx, &row, selectColumns+" WHERE id = ?", id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tx.GetContext(action_item) > %w", err)
		}
		item := row.toActionItem()
		found = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindByIDs returns the action items with the ids in the order of ids. Unknown ids are skipped.
func (r *DBRepository) FindByIDs(ctx context.Context, ids []int64) ([]ActionItem, error) {
	if len(ids) == 0 {
		return []ActionItem{}, nil
	}

	var items []ActionItem
	err := database.Transact(ctx, r.db, "get action items", func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := sqlx.In(selectColumns+" WHERE id IN (?)", ids)
		if err != nil {
			return fmt.Errorf("sqlx.In > %w", err)
		}
		var rows []actionItemRow
		if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("tx.SelectContext(action_items by ids) > %w", err)
		}

		byID := make(map[int64]actionItemRow, len(rows))
		for _, row := range rows {
			byID[row.ID] = row
		}
		items = make([]ActionItem, 0, len(rows))
		for _, id := range ids {
			if row, ok := byID[id]; ok {
				items = append(items, row.toActionItem())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateDone sets the done flag. A missing id is logged and is not an error.
func (r *DBRepository) UpdateDone(ctx context.Context, id int64, done bool) error {
	var affected int64
	err := database.Transact(ctx, r.db, "update action item", func(ctx context.Context, tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, "UPDATE action_items SET done = ? WHERE id = ?", done, id)
		if err != nil {
			return fmt.Errorf("tx.ExecContext(update action_item) > %w", err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("result.RowsAffected() > %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		slog.Default().WarnContext(ctx, "action item not found for update", "id", id)
		return nil
	}
	slog.Default().DebugContext(ctx, "updated action item", "id", id, "done", done)
	return nil
}
