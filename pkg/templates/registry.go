// Package templates is a catalog of named dashboard recipes.
//
// A Registry is an explicit instance; nothing is registered at package load.
// Call RegisterBuiltins to seed the stock templates.
package templates

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/layout"
	"github.com/leapstack-labs/leapdash/pkg/pipeline"
	"github.com/leapstack-labs/leapdash/pkg/viz"
)

// Params are the caller-supplied template parameters, such as a customer id
// or store domain.
type Params map[string]any

// String returns p[key] formatted as a string, or def when absent or empty.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	s := fmt.Sprint(v)
	if s == "" {
		return def
	}
	return s
}

// Definition is everything a template produces: the data pipeline, the
// visualizations it feeds and presentation hints.
type Definition struct {
	Title          string            `json:"title,omitempty" yaml:"title,omitempty"`
	Theme          string            `json:"theme,omitempty" yaml:"theme,omitempty"`
	Layout         layout.Archetype  `json:"layout" yaml:"layout"`
	Pipeline       pipeline.Pipeline `json:"pipeline" yaml:"pipeline"`
	Visualizations []viz.Config      `json:"visualizations" yaml:"visualizations"`
}

// Template is a named, parameterised dashboard recipe.
type Template struct {
	Name                string
	Description         string
	Keywords            []string
	RequiredDataSources []core.SourceType
	OptionalDataSources []core.SourceType
	Build               func(Params) Definition
}

// Match is a Find result.
type Match struct {
	Template *Template
	Score    int
}

// Registry holds templates by name. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Template
	order  []string
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byName: make(map[string]*Template),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds t. Registering an existing name replaces the entry but keeps
// its original position in List order.
func (r *Registry) Register(t *Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[t.Name]; !ok {
		r.order = append(r.order, t.Name)
	}
	r.byName[t.Name] = t
}

// Get returns the template called name.
func (r *Registry) Get(name string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// List returns every template in registration order.
func (r *Registry) List() []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Template, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Find ranks templates against a free-text query. A template scores 10 when
// its name (or the name with dashes read as spaces) occurs in the query, 5
// when its description does, and 3 for each keyword that contains or is
// contained in the query. Only positive scores are returned, best first;
// ties keep registration order.
func (r *Registry) Find(query string) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []Match
	for _, t := range r.List() {
		if s := score(t, q); s > 0 {
			out = append(out, Match{Template: t, Score: s})
		}
	}
	slices.SortStableFunc(out, func(a, b Match) int { return cmp.Compare(b.Score, a.Score) })
	return out
}

func score(t *Template, q string) int {
	s := 0
	name := strings.ToLower(t.Name)
	if strings.Contains(q, name) || strings.Contains(q, strings.ReplaceAll(name, "-", " ")) {
		s += 10
	}
	if d := strings.ToLower(t.Description); d != "" && strings.Contains(q, d) {
		s += 5
	}
	for _, kw := range t.Keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(q, kw) || strings.Contains(kw, q) {
			s += 3
		}
	}
	return s
}
