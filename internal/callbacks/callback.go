package callbacks

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"paidagogos/internal/history"
	"paidagogos/internal/params"
)

// ErrStopTraining is the graceful-stop signal. A callback returns it from
// OnEpochEnd to ask the host loop to end the run; it is matched with
// errors.Is and is not a failure.
var ErrStopTraining = errors.New("stop training")

// Context is the host state handed to every lifecycle hook: the run
// identifier, the epoch history, and the module whose parameters policies
// may mutate in place.
type Context struct {
	RunID   string
	History *history.History
	Module  params.Module
}

// Callback reacts to training lifecycle events. All hooks are invoked
// sequentially by a single host loop; implementations need no locking.
type Callback interface {
	Name() string
	Initialize() error
	OnTrainBegin(ctx context.Context, c *Context) error
	OnEpochBegin(ctx context.Context, c *Context) error
	OnEpochEnd(ctx context.Context, c *Context) error
	OnTrainEnd(ctx context.Context, c *Context) error
}

// Base provides no-op hook implementations for embedding.
type Base struct{}

func (Base) Initialize() error                            { return nil }
func (Base) OnTrainBegin(context.Context, *Context) error { return nil }
func (Base) OnEpochBegin(context.Context, *Context) error { return nil }
func (Base) OnEpochEnd(context.Context, *Context) error   { return nil }
func (Base) OnTrainEnd(context.Context, *Context) error   { return nil }

// MessageSink receives the human-readable notices policies emit, for
// example the early-stopping notice. Defaults discard them.
type MessageSink func(msg string)

func Discard(string) {}

// LogSink adapts a zerolog logger into a message sink.
func LogSink(logger zerolog.Logger) MessageSink {
	return func(msg string) {
		logger.Info().Msg(msg)
	}
}
