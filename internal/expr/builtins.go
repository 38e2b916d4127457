package expr

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/leapdash/pkg/schema"
)

// Builtins are the functions available to every expression in addition to
// the Starlark universe.
var Builtins = starlark.StringDict{
	"month": starlark.NewBuiltin("month", monthFn),
	"year":  starlark.NewBuiltin("year", yearFn),
	"round": starlark.NewBuiltin("round", roundFn),
	"num":   starlark.NewBuiltin("num", numFn),
}

func dateArg(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (string, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return "", err
	}
	s, ok := starlark.AsString(v)
	if !ok {
		return "", fmt.Errorf("%s: want date string, got %s", b.Name(), v.Type())
	}
	return s, nil
}

// monthFn returns the "YYYY-MM" bucket of a date string.
func monthFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	s, err := dateArg(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	t, ok := schema.ParseDate(s)
	if !ok {
		return starlark.None, nil
	}
	return starlark.String(t.Format("2006-01")), nil
}

func yearFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	s, err := dateArg(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	t, ok := schema.ParseDate(s)
	if !ok {
		return starlark.None, nil
	}
	return starlark.MakeInt(t.Year()), nil
}

func roundFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	digits := 0
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &x, "digits?", &digits); err != nil {
		return nil, err
	}
	f, ok := starlark.AsFloat(x)
	if !ok {
		return nil, fmt.Errorf("round: want number, got %s", x.Type())
	}
	return starlark.Float(roundTo(f, digits)), nil
}

// numFn coerces numeric strings, as found in CSV and API payloads, to floats.
func numFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	goVal, err := goValue(v)
	if err != nil {
		return nil, err
	}
	f, ok := schema.NumericValue(goVal)
	if !ok {
		return starlark.None, nil
	}
	return starlark.Float(f), nil
}
