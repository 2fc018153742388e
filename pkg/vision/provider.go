// Package vision defines the scene-understanding collaborator boundary.
// The core only ever needs a textual scene description and object lookup;
// real providers (camera + model) live outside this repository.
package vision

import "context"

// Object is a detected object with a recognition confidence in [0,1].
type Object struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Manager describes a scene-understanding provider. Implementations return
// explicit errors rather than panicking across the boundary; a nil error
// with an empty description means "nothing notable".
type Manager interface {
	// AnalyzeScene returns a free-text description of the current view.
	AnalyzeScene(ctx context.Context) (string, error)

	// FindObject looks for a named object in the current view.
	// A nil Object with nil error means the object is not visible.
	FindObject(ctx context.Context, name string) (*Object, error)
}

// Nop is the null provider used when no camera is attached.
type Nop struct{}

// NewNop creates a provider that sees nothing.
func NewNop() *Nop { return &Nop{} }

// AnalyzeScene implements Manager.
func (n *Nop) AnalyzeScene(ctx context.Context) (string, error) { return "", nil }

// FindObject implements Manager.
func (n *Nop) FindObject(ctx context.Context, name string) (*Object, error) { return nil, nil }

var _ Manager = (*Nop)(nil)
