package callbacks

import (
	"context"
	"fmt"
	"path"

	"paidagogos/internal/params"
)

// Pattern decides whether a parameter name is selected.
type Pattern func(name string) bool

// Glob compiles a shell-glob pattern (`*`, `?`, `[seq]`) into a Pattern.
// Malformed patterns are rejected here rather than silently never matching.
func Glob(pattern string) (Pattern, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return func(name string) bool {
		ok, _ := path.Match(pattern, name)
		return ok
	}, nil
}

// Globs compiles several glob patterns at once.
func Globs(patterns ...string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(patterns))
	for _, pattern := range patterns {
		p, err := Glob(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Condition is a predicate over host state, used to decide when a mapper
// fires.
type Condition func(c *Context) bool

// Schedule maps host state to the transform to apply this epoch.
type Schedule func(c *Context) params.Transform

// ParamMapper applies a transform to every module parameter whose name
// matches at least one pattern, once per epoch begin. The transform to
// apply is chosen by a schedule; the default schedule applies Fn when the
// trigger condition holds and a no-op otherwise.
//
// A mapper triggered by absolute epoch number (At) keys off the history
// length. Resuming from a parameter snapshot without restoring the history
// resets that counter, so the trigger fires again and repeats the freeze or
// initialization. Restore the history alongside the parameters to avoid it.
type ParamMapper struct {
	Base

	Patterns []Pattern
	Fn       params.Transform
	At       int
	When     Condition
	Schedule Schedule

	name     string
	schedule Schedule
}

// NewParamMapper returns a mapper over the given patterns that fires on the
// first epoch with a no-op transform; callers override Fn, At, When, or
// Schedule before Initialize.
func NewParamMapper(patterns ...Pattern) *ParamMapper {
	return &ParamMapper{Patterns: patterns, At: 1}
}

func (m *ParamMapper) Name() string {
	if m.name == "" {
		return "param_mapper"
	}
	return m.name
}

func (m *ParamMapper) Initialize() error {
	if m.Fn == nil {
		m.Fn = params.Noop
	}
	if m.Schedule != nil {
		m.schedule = m.Schedule
		return nil
	}

	when := m.When
	if when == nil {
		if m.At <= 0 {
			return fmt.Errorf("invalid value for at (at=%d): the first possible epoch number is 1", m.At)
		}
		at := m.At
		when = func(c *Context) bool {
			return c.History.Len() == at
		}
	}
	m.schedule = func(c *Context) params.Transform {
		if when(c) {
			return m.Fn
		}
		return params.Noop
	}
	return nil
}

func (m *ParamMapper) OnEpochBegin(_ context.Context, c *Context) error {
	if m.schedule == nil {
		return fmt.Errorf("%s is not initialized", m.Name())
	}

	fn := m.schedule(c)
	for _, np := range c.Module.NamedParameters() {
		for _, pattern := range m.Patterns {
			if pattern(np.Name) {
				fn(np.Param)
				break
			}
		}
	}
	return nil
}

// NewFreezer maps Freeze over the matching parameters at the start of the
// first epoch.
func NewFreezer(patterns ...string) (*ParamMapper, error) {
	m, err := newGlobMapper("freezer", patterns)
	if err != nil {
		return nil, err
	}
	m.Fn = params.Freeze
	return m, nil
}

// NewUnfreezer is the inverse of NewFreezer.
func NewUnfreezer(patterns ...string) (*ParamMapper, error) {
	m, err := newGlobMapper("unfreezer", patterns)
	if err != nil {
		return nil, err
	}
	m.Fn = params.Unfreeze
	return m, nil
}

// NewInitializer applies a caller-supplied transform to the matching
// parameters at the start of the first epoch.
func NewInitializer(fn params.Transform, patterns ...string) (*ParamMapper, error) {
	if fn == nil {
		return nil, fmt.Errorf("initializer requires a transform")
	}
	m, err := newGlobMapper("initializer", patterns)
	if err != nil {
		return nil, err
	}
	m.Fn = fn
	return m, nil
}

func newGlobMapper(name string, patterns []string) (*ParamMapper, error) {
	compiled, err := Globs(patterns...)
	if err != nil {
		return nil, err
	}
	m := NewParamMapper(compiled...)
	m.name = name
	return m, nil
}
