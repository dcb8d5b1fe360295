package callbacks

import (
	"context"
	"fmt"
	"math"
)

const (
	ThresholdRel = "rel"
	ThresholdAbs = "abs"
)

// EarlyStopping halts training when the monitored metric has not improved
// for Patience consecutive epochs. The improvement bar is a dynamic
// threshold recentered on every improvement rather than the raw best score,
// so relative thresholds track the score's magnitude without keeping the
// whole history.
type EarlyStopping struct {
	Base

	Monitor       string
	Patience      int
	Threshold     float64
	ThresholdMode string
	LowerIsBetter bool
	Sink          MessageSink

	misses           int
	dynamicThreshold float64
}

// NewEarlyStopping returns an early-stopping policy with the conventional
// defaults: valid_loss monitored, patience 5, relative threshold 1e-4,
// lower is better.
func NewEarlyStopping() *EarlyStopping {
	return &EarlyStopping{
		Monitor:       "valid_loss",
		Patience:      5,
		Threshold:     1e-4,
		ThresholdMode: ThresholdRel,
		LowerIsBetter: true,
		Sink:          Discard,
	}
}

func (e *EarlyStopping) Name() string {
	return "early_stopping"
}

func (e *EarlyStopping) Initialize() error {
	if e.Patience <= 0 {
		return fmt.Errorf("patience must be positive, got %d", e.Patience)
	}
	return nil
}

func (e *EarlyStopping) OnTrainBegin(_ context.Context, _ *Context) error {
	switch e.ThresholdMode {
	case ThresholdRel, ThresholdAbs:
	default:
		return fmt.Errorf("invalid threshold mode: %q", e.ThresholdMode)
	}

	e.misses = 0
	if e.LowerIsBetter {
		e.dynamicThreshold = math.Inf(1)
	} else {
		e.dynamicThreshold = math.Inf(-1)
	}
	return nil
}

func (e *EarlyStopping) OnEpochEnd(_ context.Context, c *Context) error {
	score, err := c.History.Float(-1, e.Monitor)
	if err != nil {
		return fmt.Errorf("early stopping monitor %q: %w", e.Monitor, err)
	}

	if e.improved(score) {
		e.misses = 0
		e.dynamicThreshold = e.newThreshold(score)
	} else {
		e.misses++
	}

	if e.misses == e.Patience {
		e.sink(fmt.Sprintf("Stopping since %s has not improved in the last %d epochs.",
			e.Monitor, e.Patience))
		return ErrStopTraining
	}
	return nil
}

// improved requires a strict inequality; ties never count.
func (e *EarlyStopping) improved(score float64) bool {
	if e.LowerIsBetter {
		return score < e.dynamicThreshold
	}
	return score > e.dynamicThreshold
}

func (e *EarlyStopping) newThreshold(score float64) float64 {
	delta := e.Threshold
	if e.ThresholdMode == ThresholdRel {
		delta = e.Threshold * score
	}
	if e.LowerIsBetter {
		return score - delta
	}
	return score + delta
}

func (e *EarlyStopping) sink(msg string) {
	if e.Sink != nil {
		e.Sink(msg)
	}
}
