// Package dataset reads local data files into rows using an embedded DuckDB.
package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// DefaultLimit caps rows read when the caller passes a non-positive limit.
const DefaultLimit = 1000

// ErrUnsupportedFormat is returned for files DuckDB has no reader for.
var ErrUnsupportedFormat = errors.New("unsupported data file format")

// Table is a file read into memory with its column order preserved.
type Table struct {
	Path    string
	Columns []string
	Rows    []core.Row
}

// Loader owns an in-memory DuckDB connection used purely as a file reader.
type Loader struct {
	db       *sql.DB
	settings map[string]string
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithSettings applies session settings such as threads or memory_limit.
func WithSettings(settings map[string]string) Option {
	return func(ld *Loader) { ld.settings = settings }
}

// Open starts an in-memory DuckDB session.
func Open(ctx context.Context, opts ...Option) (*Loader, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	ld := New(db, opts...)
	if err := ld.applySettings(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ld, nil
}

// New wraps an existing connection.
func New(db *sql.DB, opts ...Option) *Loader {
	ld := &Loader{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Close releases the DuckDB session.
func (ld *Loader) Close() error {
	if ld.db == nil {
		return nil
	}
	return ld.db.Close()
}

func (ld *Loader) applySettings(ctx context.Context) error {
	keys := make([]string, 0, len(ld.settings))
	for k := range ld.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		stmt := fmt.Sprintf("SET %s = %s", k, quote(ld.settings[k]))
		if _, err := ld.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

// Load implements builder.RowLoader.
func (ld *Loader) Load(ctx context.Context, path string, limit int) ([]core.Row, error) {
	t, err := ld.Read(ctx, path, limit)
	if err != nil {
		return nil, err
	}
	return t.Rows, nil
}

// Read returns at most limit rows of the file at path.
func (ld *Loader) Read(ctx context.Context, path string, limit int) (*Table, error) {
	if ld.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	query, err := SelectQuery(path, limit)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := ld.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", path, err)
	}

	t := &Table{Path: path, Columns: cols, Rows: []core.Row{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", path, err)
		}
		row := make(core.Row, len(cols))
		for i, c := range cols {
			row[c] = normalize(vals[i])
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", path, err)
	}

	ld.logger.Debug("dataset loaded",
		slog.String("path", path),
		slog.Int("rows", len(t.Rows)),
		slog.Int("columns", len(cols)),
		slog.Duration("elapsed", time.Since(start)))
	return t, nil
}

// SelectQuery builds the DuckDB query that reads path, picking the reader
// from the file extension.
func SelectQuery(path string, limit int) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var reader string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		reader = fmt.Sprintf("read_csv_auto(%s, header=true)", quote(abs))
	case ".tsv":
		reader = fmt.Sprintf("read_csv_auto(%s, header=true, delim='\\t')", quote(abs))
	case ".json", ".jsonl", ".ndjson":
		reader = fmt.Sprintf("read_json_auto(%s)", quote(abs))
	case ".parquet":
		reader = fmt.Sprintf("read_parquet(%s)", quote(abs))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", reader, limit), nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// normalize turns driver values into the plain types the schema analyzer
// and chart builders understand.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case duckdb.Decimal:
		return x.Float64()
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.UTC().Format(time.RFC3339)
	default:
		return v
	}
}
