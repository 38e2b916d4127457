// Package core defines the shared language of the LeapDash system.
//
// This package contains:
//   - Tabular input (Row)
//   - Visualization and data source kinds
//   - Geometry shared by the layout engine and the orchestrator (Position)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
