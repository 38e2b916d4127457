package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/dashboard"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleState() dashboard.State {
	o := dashboard.New()
	o.AddVisualization(core.VizKPICard, dashboard.VizOptions{Title: "Revenue"})
	o.AddVisualization(core.VizBarChart, dashboard.VizOptions{Title: "Sales by Product"})
	return o.State()
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	d := &SavedDashboard{Name: "Weekly", Template: "ecommerce-sales", State: sampleState()}
	require.NoError(t, s.Save(ctx, d))
	assert.NotEmpty(t, d.ID)
	assert.False(t, d.CreatedAt.IsZero())

	got, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekly", got.Name)
	assert.Equal(t, "ecommerce-sales", got.Template)
	require.Len(t, got.State.CanvasItems, 2)
	assert.Equal(t, "Revenue", got.State.CanvasItems[0].Title)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Items)

	require.NoError(t, s.Delete(ctx, d.ID))
	_, err = s.Get(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	d := &SavedDashboard{Name: "First", State: dashboard.NewState()}
	require.NoError(t, s.Save(ctx, d))
	created := d.CreatedAt

	d.Name = "Renamed"
	d.State = sampleState()
	require.NoError(t, s.Save(ctx, d))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Name)
	assert.Equal(t, 2, list[0].Items)

	got, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestSQLiteStore_ListOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, name := range []string{"old", "mid", "new"} {
		require.NoError(t, s.Save(ctx, &SavedDashboard{Name: name, State: dashboard.NewState()}))
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "new", list[0].Name)
	assert.Equal(t, "old", list[2].Name)
}

func TestSQLiteStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	assert.Error(t, s.Save(ctx, &SavedDashboard{}))
	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Save(context.Background(), &SavedDashboard{Name: "tmp", State: dashboard.NewState()}))
	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLiteStore_DriverFailures(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		run       func(s *SQLiteStore) error
		errMsg    string
	}{
		{
			name: "save exec error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO saved_dashboards").WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				return s.Save(context.Background(), &SavedDashboard{ID: "a", Name: "A", State: dashboard.NewState()})
			},
			errMsg: "failed to save dashboard a",
		},
		{
			name: "list query error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, name").WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.List(context.Background())
				return err
			},
			errMsg: "failed to list dashboards",
		},
		{
			name: "get corrupt state",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name", "description", "template", "state", "created_at", "updated_at"}).
					AddRow("a", "A", "", "", "{not json", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z")
				mock.ExpectQuery("SELECT id, name").WithArgs("a").WillReturnRows(rows)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.Get(context.Background(), "a")
				return err
			},
			errMsg: "failed to decode state for a",
		},
		{
			name: "list bad timestamp",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name", "description", "template", "item_count", "updated_at"}).
					AddRow("a", "A", "", "", 0, "yesterday")
				mock.ExpectQuery("SELECT id, name").WillReturnRows(rows)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.List(context.Background())
				return err
			},
			errMsg: "invalid timestamp",
		},
		{
			name: "delete exec error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM saved_dashboards").WithArgs("a").WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				return s.Delete(context.Background(), "a")
			},
			errMsg: "failed to delete dashboard a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			err = tt.run(New(db))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMigrate_NilDB(t *testing.T) {
	s := &SQLiteStore{}
	assert.Error(t, s.Migrate(context.Background()))
	assert.NoError(t, s.Close())
}
