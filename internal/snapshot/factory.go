package snapshot

import "fmt"

// NewSink builds a snapshot sink. Kind "" or "memory" keeps snapshots in
// process, "file" writes them under path (optionally zstd-compressed), and
// "sqlite" stores them in the database at path.
func NewSink(kind, path string, compress bool) (Sink, error) {
	switch kind {
	case "", "memory":
		return NewMemorySink(), nil
	case "file":
		return NewFileSink(path, compress), nil
	case "sqlite":
		return newSQLiteSink(path)
	default:
		return nil, fmt.Errorf("unsupported snapshot backend: %s", kind)
	}
}
