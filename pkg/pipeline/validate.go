package pipeline

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdash/internal/expr"
)

// Report is the result of validating a pipeline. Validation never fails with
// an error; callers decide whether to proceed with an invalid pipeline.
type Report struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks the builder's pipeline.
func (b *Builder) Validate() Report {
	return Validate(b.Pipeline())
}

// Validate checks p for:
//   - at least one source and one output node
//   - every non-source node appearing in at least one edge
//   - edges that reference unknown nodes
//   - cycles
//   - custom expressions that do not compile
func Validate(p Pipeline) Report {
	errs := []string{}

	var sources, outputs int
	known := make(map[string]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		known[n.ID] = true
		switch n.Type {
		case NodeSource:
			sources++
		case NodeOutput:
			outputs++
		}
	}
	if sources == 0 {
		errs = append(errs, "pipeline has no source nodes")
	}
	if outputs == 0 {
		errs = append(errs, "pipeline has no output nodes")
	}

	connected := make(map[string]bool)
	for _, e := range p.Edges {
		connected[e.Source] = true
		connected[e.Target] = true
		for _, end := range []string{e.Source, e.Target} {
			if !known[end] {
				errs = append(errs, fmt.Sprintf("edge %s -> %s references unknown node %s", e.Source, e.Target, end))
			}
		}
	}
	for _, n := range p.Nodes {
		if n.Type != NodeSource && !connected[n.ID] {
			errs = append(errs, fmt.Sprintf("node %s (%s) is not connected to the pipeline", n.ID, n.Operation))
		}
	}

	if cyclic, path := NewGraph(p).HasCycle(); cyclic {
		errs = append(errs, fmt.Sprintf("pipeline contains a cycle: %s", strings.Join(path, " -> ")))
	}

	for _, n := range p.Nodes {
		src, ok := n.Config["expression"].(string)
		if !ok {
			continue
		}
		if _, err := expr.Compile(n.ID, src); err != nil {
			errs = append(errs, fmt.Sprintf("node %s: %v", n.ID, err))
		}
	}

	return Report{Valid: len(errs) == 0, Errors: errs}
}

// TopologicalOrder returns the builder's node ids in dependency order.
func (b *Builder) TopologicalOrder() ([]string, error) {
	return NewGraph(b.Pipeline()).TopologicalOrder()
}
