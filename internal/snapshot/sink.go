package snapshot

import "context"

// Sink persists training snapshots. Parameters, history, and full-object
// snapshots are three independent channels; each entry is addressed by a
// caller-chosen name.
type Sink interface {
	Init(ctx context.Context) error
	SaveParams(ctx context.Context, name string, snap ParamsSnapshot) error
	GetParams(ctx context.Context, name string) (ParamsSnapshot, bool, error)
	SaveHistory(ctx context.Context, name string, snap HistorySnapshot) error
	GetHistory(ctx context.Context, name string) (HistorySnapshot, bool, error)
	SaveObject(ctx context.Context, name string, snap ObjectSnapshot) error
	GetObject(ctx context.Context, name string) (ObjectSnapshot, bool, error)
	ListParams(ctx context.Context) ([]string, error)
}

func CloseIfSupported(sink Sink) error {
	closer, ok := sink.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
