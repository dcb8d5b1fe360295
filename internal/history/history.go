package history

import (
	"errors"
	"fmt"
)

var (
	ErrNoEpochs    = errors.New("history has no epochs")
	ErrNoBatches   = errors.New("epoch has no batches")
	ErrKeyNotFound = errors.New("history key not found")
)

// Record holds the metrics written during one epoch or one batch.
type Record map[string]any

// Epoch is a single entry of the training history: the per-epoch metric
// values plus the ordered batch records collected while it was current.
type Epoch struct {
	Values  Record   `json:"values"`
	Batches []Record `json:"batches,omitempty"`
}

// History is the append-only log the host training loop owns. Epochs are
// appended in order; offset -1 always addresses the most recently started
// epoch. Policies treat it as read-only apart from flag columns they are
// documented to write (for example "event_cp").
type History struct {
	epochs []Epoch
}

func New() *History {
	return &History{}
}

func (h *History) Len() int {
	return len(h.epochs)
}

// NewEpoch appends a fresh epoch record and makes it current.
func (h *History) NewEpoch() {
	h.epochs = append(h.epochs, Epoch{Values: make(Record)})
}

// NewBatch appends a fresh batch record to the current epoch.
func (h *History) NewBatch() error {
	if len(h.epochs) == 0 {
		return ErrNoEpochs
	}
	last := len(h.epochs) - 1
	h.epochs[last].Batches = append(h.epochs[last].Batches, make(Record))
	return nil
}

// RecordMetric writes a value into the current epoch record.
func (h *History) RecordMetric(key string, value any) error {
	if len(h.epochs) == 0 {
		return ErrNoEpochs
	}
	h.epochs[len(h.epochs)-1].Values[key] = value
	return nil
}

// RecordBatchMetric writes a value into the current batch of the current epoch.
func (h *History) RecordBatchMetric(key string, value any) error {
	if len(h.epochs) == 0 {
		return ErrNoEpochs
	}
	batches := h.epochs[len(h.epochs)-1].Batches
	if len(batches) == 0 {
		return ErrNoBatches
	}
	batches[len(batches)-1][key] = value
	return nil
}

// At looks up a key in the epoch addressed by offset. Negative offsets count
// from the end, so At(-1, key) reads the most recent epoch.
func (h *History) At(offset int, key string) (any, error) {
	epoch, err := h.epochAt(offset)
	if err != nil {
		return nil, err
	}
	value, ok := epoch.Values[key]
	if !ok {
		return nil, fmt.Errorf("epoch %d key %q: %w", offset, key, ErrKeyNotFound)
	}
	return value, nil
}

// Float reads a numeric metric. Integers recorded directly and float64 values
// decoded from JSON are both accepted.
func (h *History) Float(offset int, key string) (float64, error) {
	value, err := h.At(offset, key)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("epoch %d key %q: value %T is not numeric", offset, key, value)
	}
}

// Bool reads a boolean flag column such as "event_cp".
func (h *History) Bool(offset int, key string) (bool, error) {
	value, err := h.At(offset, key)
	if err != nil {
		return false, err
	}
	flag, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("epoch %d key %q: value %T is not a bool", offset, key, value)
	}
	return flag, nil
}

// EpochAt returns a shallow copy of the epoch addressed by offset.
func (h *History) EpochAt(offset int) (Epoch, error) {
	return h.epochAt(offset)
}

// LastBatch returns the most recent batch record of the epoch addressed by
// offset.
func (h *History) LastBatch(offset int) (Record, error) {
	epoch, err := h.epochAt(offset)
	if err != nil {
		return nil, err
	}
	if len(epoch.Batches) == 0 {
		return nil, ErrNoBatches
	}
	return epoch.Batches[len(epoch.Batches)-1], nil
}

// Epochs returns a copy of all epoch records, oldest first. The copy shares
// the underlying value maps; it exists for serialization, not mutation.
func (h *History) Epochs() []Epoch {
	out := make([]Epoch, len(h.epochs))
	copy(out, h.epochs)
	return out
}

// Replace swaps the full epoch log, used when restoring a history snapshot.
func (h *History) Replace(epochs []Epoch) {
	h.epochs = make([]Epoch, len(epochs))
	copy(h.epochs, epochs)
}

func (h *History) epochAt(offset int) (Epoch, error) {
	if len(h.epochs) == 0 {
		return Epoch{}, ErrNoEpochs
	}
	index := offset
	if index < 0 {
		index = len(h.epochs) + index
	}
	if index < 0 || index >= len(h.epochs) {
		return Epoch{}, fmt.Errorf("epoch offset %d out of range for %d epochs", offset, len(h.epochs))
	}
	return h.epochs[index], nil
}
