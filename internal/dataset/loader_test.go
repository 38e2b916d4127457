package dataset

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/marcboeker/go-duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdash/pkg/schema"
)

func TestSelectQuery(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		limit    int
		contains string
		wantErr  error
	}{
		{name: "csv", path: "data/sales.csv", limit: 10, contains: "read_csv_auto("},
		{name: "tsv", path: "data/sales.TSV", limit: 10, contains: "delim='\\t'"},
		{name: "json", path: "events.ndjson", limit: 10, contains: "read_json_auto("},
		{name: "parquet", path: "orders.parquet", limit: 10, contains: "read_parquet("},
		{name: "default limit", path: "a.csv", limit: 0, contains: "LIMIT 1000"},
		{name: "quotes escaped", path: "o'brien.csv", limit: 5, contains: "o''brien.csv"},
		{name: "unknown", path: "notes.txt", wantErr: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := SelectQuery(tt.path, tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, q, tt.contains)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "bytes", in: []byte("abc"), want: "abc"},
		{name: "int32", in: int32(7), want: int64(7)},
		{name: "float32", in: float32(1.5), want: 1.5},
		{name: "bigint", in: big.NewInt(42), want: 42.0},
		{name: "decimal", in: duckdb.Decimal{Width: 10, Scale: 2, Value: big.NewInt(1234)}, want: 12.34},
		{name: "date", in: time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), want: "2024-02-03"},
		{name: "timestamp", in: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), want: "2024-02-03T04:05:06Z"},
		{name: "nil", in: nil, want: nil},
		{name: "string", in: "x", want: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.in)
			if f, ok := tt.want.(float64); ok {
				assert.InDelta(t, f, got, 1e-9)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_ReadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	csv := "date,product,revenue\n2024-01-01,Widget,120.5\n2024-01-08,Gadget,98\n2024-01-15,Widget,143.25\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	ld, err := Open(context.Background(), WithSettings(map[string]string{"threads": "1"}))
	require.NoError(t, err)
	defer func() { _ = ld.Close() }()

	tbl, err := ld.Read(context.Background(), path, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "product", "revenue"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "2024-01-01", tbl.Rows[0]["date"])
	assert.Equal(t, "Widget", tbl.Rows[0]["product"])

	s := schema.AnalyzeColumns(tbl.Rows, tbl.Columns)
	col, ok := s.Column("date")
	require.True(t, ok)
	assert.Equal(t, schema.TypeDate, col.Type)
	col, ok = s.Column("revenue")
	require.True(t, ok)
	assert.Equal(t, schema.TypeNumber, col.Type)
}

func TestLoader_Failures(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		_, err := (&Loader{}).Read(context.Background(), "a.csv", 1)
		assert.Error(t, err)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectQuery("SELECT \\* FROM read_csv_auto").WillReturnError(assert.AnError)

		_, err = New(db).Load(context.Background(), "missing.csv", 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read missing.csv")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("settings error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectExec("SET threads").WillReturnError(assert.AnError)

		err = New(db, WithSettings(map[string]string{"threads": "2"})).applySettings(context.Background())
		assert.ErrorContains(t, err, "failed to apply setting threads")
	})
}
