package service

import (
	"context"
	"errors"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/actionnotes/internal/actionitem"
	"github.com/at-ishikawa/actionnotes/internal/database"
	"github.com/at-ishikawa/actionnotes/internal/extract"
	"github.com/at-ishikawa/actionnotes/internal/inference"
	"github.com/at-ishikawa/actionnotes/internal/metrics"
	mock_actionitem "github.com/at-ishikawa/actionnotes/internal/mocks/actionitem"
	mock_inference "github.com/at-ishikawa/actionnotes/internal/mocks/inference"
	mock_note "github.com/at-ishikawa/actionnotes/internal/mocks/note"
	"github.com/at-ishikawa/actionnotes/internal/note"
	"github.com/at-ishikawa/actionnotes/internal/testutil"
)

func newSQLiteService(t *testing.T, client inference.Client, m *metrics.Metrics) *Service {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	var modelExtractor *extract.ModelExtractor
	if client != nil {
		modelExtractor = extract.NewModelExtractor(client, m)
	}
	return New(note.NewDBRepository(db), actionitem.NewDBRepository(db), modelExtractor, m)
}

func itemTexts(items []actionitem.ActionItem) []string {
	got := make([]string, 0, len(items))
	for _, item := range items {
		got = append(got, item.Text)
	}
	return got
}

func TestService_Extract(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		saveNote  bool
		wantItems []string
		wantNote  bool
	}{
		{
			name:      "without saving the note",
			text:      "- [ ] Set up database\n* implement API extract endpoint\n1. Write tests\nSome narrative sentence.",
			wantItems: []string{"Set up database", "implement API extract endpoint", "Write tests"},
		},
		{
			name:      "saving the note",
			text:      "  todo: Review the code\nnext: Deploy  ",
			saveNote:  true,
			wantItems: []string{"Review the code", "Deploy"},
			wantNote:  true,
		},
		{
			name:      "nothing found",
			text:      "We had lunch.",
			saveNote:  true,
			wantItems: []string{},
			wantNote:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := metrics.New()
			svc := newSQLiteService(t, nil, m)

			got, err := svc.Extract(ctx, tt.text, tt.saveNote)
			require.NoError(t, err)
			assert.Equal(t, tt.wantItems, itemTexts(got.Items))
			for _, item := range got.Items {
				assert.False(t, item.Done)
				assert.False(t, item.CreatedAt.IsZero())
				assert.Equal(t, got.NoteID, item.NoteID)
			}
			assert.Equal(t, 1.0, promtestutil.ToFloat64(m.ExtractionsTotal.WithLabelValues(metrics.StrategyHeuristic)))

			if !tt.wantNote {
				assert.Nil(t, got.NoteID)
				notes, err := svc.ListNotes(ctx)
				require.NoError(t, err)
				assert.Empty(t, notes)
				return
			}

			require.NotNil(t, got.NoteID)
			saved, err := svc.GetNote(ctx, *got.NoteID)
			require.NoError(t, err)
			assert.Equal(t, trimmedOrSelf(tt.text), saved.Content)

			linked, err := svc.ListActionItems(ctx, got.NoteID)
			require.NoError(t, err)
			assert.Len(t, linked, len(tt.wantItems))
		})
	}
}

func trimmedOrSelf(s string) string {
	got, err := requireText("text", s)
	if err != nil {
		return s
	}
	return got
}

func TestService_Extract_RejectsBlankText(t *testing.T) {
	ctrl := gomock.NewController(t)
	notes := mock_note.NewMockRepository(ctrl)
	items := mock_actionitem.NewMockRepository(ctrl)
	svc := New(notes, items, nil, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.Extract(context.Background(), text, true)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "text", validationErr.Field)
	}
}

func TestService_ExtractWithModel(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(m *mock_inference.MockClient)
		wantItems []string
	}{
		{
			name: "model items are stored",
			setupMock: func(m *mock_inference.MockClient) {
				m.EXPECT().
					ExtractActionItems(gomock.Any(), inference.ExtractActionItemsRequest{Text: "call Bob and book a room"}).
					Return(inference.ExtractActionItemsResponse{ActionItems: []string{"Call Bob", "call bob", "Book a room"}}, nil)
			},
			wantItems: []string{"Call Bob", "Book a room"},
		},
		{
			name: "model failure stores nothing and keeps the note",
			setupMock: func(m *mock_inference.MockClient) {
				m.EXPECT().
					ExtractActionItems(gomock.Any(), gomock.Any()).
					Return(inference.ExtractActionItemsResponse{}, errors.New("i/o timeout"))
			},
			wantItems: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ctrl := gomock.NewController(t)
			client := mock_inference.NewMockClient(ctrl)
			tt.setupMock(client)
			svc := newSQLiteService(t, client, metrics.New())

			got, err := svc.ExtractWithModel(ctx, " call Bob and book a room ", true)
			require.NoError(t, err)
			require.NotNil(t, got.NoteID)
			assert.Equal(t, tt.wantItems, itemTexts(got.Items))

			saved, err := svc.GetNote(ctx, *got.NoteID)
			require.NoError(t, err)
			assert.Equal(t, "call Bob and book a room", saved.Content)
		})
	}
}

func TestService_ExtractWithModel_NotConfigured(t *testing.T) {
	svc := newSQLiteService(t, nil, nil)

	_, err := svc.ExtractWithModel(context.Background(), "- task", false)
	assert.Error(t, err)
}

func TestService_CreateNote(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t, nil, nil)

	created, err := svc.CreateNote(ctx, "  weekly sync  ")
	require.NoError(t, err)
	assert.Equal(t, "weekly sync", created.Content)
	assert.NotZero(t, created.ID)

	_, err = svc.CreateNote(ctx, " ")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "content", validationErr.Field)

	notes, err := svc.ListNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []note.Note{*created}, notes)
}

func TestService_GetNote_NotFound(t *testing.T) {
	svc := newSQLiteService(t, nil, nil)

	_, err := svc.GetNote(context.Background(), 7)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, ResourceNote, notFound.Resource)
	assert.Equal(t, int64(7), notFound.ID)
	assert.Equal(t, "Note with id 7 not found", err.Error())
}

func TestService_MarkActionItemDone(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t, nil, nil)

	extracted, err := svc.Extract(ctx, "- Review PR", false)
	require.NoError(t, err)
	require.Len(t, extracted.Items, 1)
	id := extracted.Items[0].ID

	got, err := svc.MarkActionItemDone(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, &MarkDoneResult{ID: id, Done: true}, got)

	items, err := svc.ListActionItems(ctx, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Done)

	_, err = svc.MarkActionItemDone(ctx, id+100, true)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, ResourceActionItem, notFound.Resource)
}

func TestService_StorageErrors(t *testing.T) {
	storageErr := &database.Error{Op: "list notes", Err: errors.New("disk I/O error")}

	tests := []struct {
		name   string
		setup  func(notes *mock_note.MockRepository, items *mock_actionitem.MockRepository)
		call   func(svc *Service) error
		wantOp string
	}{
		{
			name: "list notes",
			setup: func(notes *mock_note.MockRepository, items *mock_actionitem.MockRepository) {
				notes.EXPECT().FindAll(gomock.Any()).Return(nil, storageErr)
			},
			call: func(svc *Service) error {
				_, err := svc.ListNotes(context.Background())
				return err
			},
			wantOp: "list notes",
		},
		{
			name: "save note before extraction",
			setup: func(notes *mock_note.MockRepository, items *mock_actionitem.MockRepository) {
				notes.EXPECT().Create(gomock.Any(), "- task").
					Return(int64(0), &database.Error{Op: "insert note", Err: errors.New("locked")})
			},
			call: func(svc *Service) error {
				_, err := svc.Extract(context.Background(), "- task", true)
				return err
			},
			wantOp: "insert note",
		},
		{
			name: "store items",
			setup: func(notes *mock_note.MockRepository, items *mock_actionitem.MockRepository) {
				items.EXPECT().BatchCreate(gomock.Any(), []string{"task"}, nil).
					Return(nil, &database.Error{Op: "insert action items", Err: errors.New("locked")})
			},
			call: func(svc *Service) error {
				_, err := svc.Extract(context.Background(), "- task", false)
				return err
			},
			wantOp: "insert action items",
		},
		{
			name: "mark done lookup",
			setup: func(notes *mock_note.MockRepository, items *mock_actionitem.MockRepository) {
				items.EXPECT().FindByID(gomock.Any(), int64(1)).
					Return(nil, &database.Error{Op: "get action item", Err: errors.New("locked")})
				items.EXPECT().UpdateDone(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			call: func(svc *Service) error {
				_, err := svc.MarkActionItemDone(context.Background(), 1, true)
				return err
			},
			wantOp: "get action item",
		},
		{
			name: "mark done update",
			setup: func(notes *mock_note.MockRepository, items *mock_actionitem.MockRepository) {
				items.EXPECT().FindByID(gomock.Any(), int64(1)).
					Return(&actionitem.ActionItem{ID: 1, Text: "task"}, nil)
				items.EXPECT().UpdateDone(gomock.Any(), int64(1), false).
					Return(&database.Error{Op: "update action item", Err: errors.New("read-only")})
			},
			call: func(svc *Service) error {
				_, err := svc.MarkActionItemDone(context.Background(), 1, false)
				return err
			},
			wantOp: "update action item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			notes := mock_note.NewMockRepository(ctrl)
			items := mock_actionitem.NewMockRepository(ctrl)
			tt.setup(notes, items)
			m := metrics.New()

			err := tt.call(New(notes, items, nil, m))
			var dbErr *database.Error
			require.ErrorAs(t, err, &dbErr)
			assert.Equal(t, tt.wantOp, dbErr.Op)
			assert.Equal(t, 1.0, promtestutil.ToFloat64(m.StorageErrorsTotal.WithLabelValues(tt.wantOp)))
		})
	}
}
