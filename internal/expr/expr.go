package expr

import (
	"fmt"
	"math"
	"regexp"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// fileOptions enables the language features custom transforms rely on.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           false,
	TopLevelControl: false,
	GlobalReassign:  false,
}

// Program is a parsed expression ready for evaluation.
type Program struct {
	name string
	expr syntax.Expr
}

// Compile parses src as a single Starlark expression.
func Compile(name, src string) (*Program, error) {
	e, err := fileOptions.ParseExpr(name, src, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", src, err)
	}
	return &Program{name: name, expr: e}, nil
}

func (p *Program) evalWith(thread *starlark.Thread, row core.Row) (any, error) {
	env, err := rowGlobals(row)
	if err != nil {
		return nil, err
	}
	v, err := starlark.EvalExprOptions(fileOptions, thread, p.expr, env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	return goValue(v)
}

func rowGlobals(row core.Row) (starlark.StringDict, error) {
	env := make(starlark.StringDict, len(row)+len(Builtins)+1)
	for name, fn := range Builtins {
		env[name] = fn
	}
	dict, err := rowDict(row)
	if err != nil {
		return nil, fmt.Errorf("row: %w", err)
	}
	env["row"] = dict
	for k, v := range row {
		if !identRe.MatchString(k) {
			continue
		}
		sv, err := cellValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		env[k] = sv
	}
	return env, nil
}

// Result is the outcome of evaluating one row.
type Result struct {
	Index int
	Value any
	Err   error
}

// EvalRows evaluates p over rows using up to workers goroutines. Results are
// returned in row order.
func (p *Program) EvalRows(rows []core.Row, workers int) []Result {
	if workers <= 0 {
		workers = 4
	}
	pool := newThreadPool(workers)
	results := make([]Result, len(rows))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, row := range rows {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, r core.Row) {
			defer wg.Done()
			defer func() { <-sem }()

			thread := pool.get(p.name)
			defer pool.put(thread)

			v, err := p.evalWith(thread, r)
			results[idx] = Result{Index: idx, Value: v, Err: err}
		}(i, row)
	}
	wg.Wait()
	return results
}

// threadPool recycles Starlark threads between row evaluations.
type threadPool struct {
	mu      sync.Mutex
	threads []*starlark.Thread
	maxSize int
}

func newThreadPool(maxSize int) *threadPool {
	return &threadPool{threads: make([]*starlark.Thread, 0, maxSize), maxSize: maxSize}
}

func (tp *threadPool) get(name string) *starlark.Thread {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if n := len(tp.threads); n > 0 {
		t := tp.threads[n-1]
		tp.threads = tp.threads[:n-1]
		t.Name = name
		return t
	}
	return &starlark.Thread{Name: name, Print: func(*starlark.Thread, string) {}}
}

func (tp *threadPool) put(t *starlark.Thread) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if len(tp.threads) < tp.maxSize {
		t.Name = ""
		tp.threads = append(tp.threads, t)
	}
}

func roundTo(f float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(f*p) / p
}
