// Package expr evaluates Starlark expressions against tabular rows.
//
// Custom pipeline transforms carry an expression such as
// `revenue - cost` or `month(date)`. Compile parses it once; EvalRows binds
// each row's columns as globals (plus a `row` dict for names that are not
// valid identifiers) and returns the Go value of every result.
package expr

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/leapdash/pkg/schema"
)

// cellValue converts one row cell to Starlark. Go integers stay Starlark ints
// so floor division and modulo keep integer semantics; every other numeric
// kind becomes a float. Strings are never coerced: num() does that on request.
// Dates become strings in the same form the dataset reader produces.
func cellValue(v any) (starlark.Value, error) {
	switch c := v.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(c), nil
	case bool:
		return starlark.Bool(c), nil
	case int:
		return starlark.MakeInt(c), nil
	case int32:
		return starlark.MakeInt64(int64(c)), nil
	case int64:
		return starlark.MakeInt64(c), nil
	case uint64:
		return starlark.MakeUint64(c), nil
	case time.Time:
		return starlark.String(dateString(c)), nil
	case []string:
		elems := make([]starlark.Value, len(c))
		for i, s := range c {
			elems[i] = starlark.String(s)
		}
		return starlark.NewList(elems), nil
	case []any:
		elems := make([]starlark.Value, len(c))
		for i, e := range c {
			sv, err := cellValue(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		return rowDict(c)
	}
	if f, ok := schema.NumericValue(v); ok {
		return starlark.Float(f), nil
	}
	return nil, fmt.Errorf("unsupported cell type %T", v)
}

// rowDict converts a row (or a nested object cell) to a Starlark dict.
func rowDict(m map[string]any) (*starlark.Dict, error) {
	d := starlark.NewDict(len(m))
	for k, v := range m {
		sv, err := cellValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		if err := d.SetKey(starlark.String(k), sv); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
	}
	return d, nil
}

func dateString(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

// goValue converts an expression result back to a row cell: nil, string,
// bool, int64, float64, []any or map[string]any. Ints beyond int64 and
// values of other Starlark types come back as their string form.
func goValue(v starlark.Value) (any, error) {
	switch r := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(r), nil
	case starlark.Bool:
		return bool(r), nil
	case starlark.Int:
		if n, ok := r.Int64(); ok {
			return n, nil
		}
		return r.String(), nil
	case starlark.Float:
		return float64(r), nil
	case *starlark.Dict:
		out := make(map[string]any, r.Len())
		for _, kv := range r.Items() {
			k, ok := kv[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("object keys must be strings, got %s", kv[0].Type())
			}
			gv, err := goValue(kv[1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[string(k)] = gv
		}
		return out, nil
	case starlark.Indexable:
		out := make([]any, r.Len())
		for i := range out {
			gv, err := goValue(r.Index(i))
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	}
	return v.String(), nil
}
