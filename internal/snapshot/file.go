package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const compressedExt = ".zst"

// FileSink writes each snapshot as a JSON document under its channel
// directory. With Compress enabled payloads are zstd-encoded and stored
// with a .zst suffix; reads accept both forms.
type FileSink struct {
	dir      string
	compress bool
}

func NewFileSink(dir string, compress bool) *FileSink {
	return &FileSink{dir: dir, compress: compress}
}

func (s *FileSink) Init(_ context.Context) error {
	if s.dir == "" {
		return errors.New("snapshot directory is required")
	}
	for _, channel := range []string{"params", "history", "objects"} {
		if err := os.MkdirAll(filepath.Join(s.dir, channel), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSink) SaveParams(_ context.Context, name string, snap ParamsSnapshot) error {
	data, err := EncodeParams(snap)
	if err != nil {
		return err
	}
	return s.write("params", name, data)
}

func (s *FileSink) GetParams(_ context.Context, name string) (ParamsSnapshot, bool, error) {
	data, ok, err := s.read("params", name)
	if err != nil || !ok {
		return ParamsSnapshot{}, ok, err
	}
	snap, err := DecodeParams(data)
	if err != nil {
		return ParamsSnapshot{}, false, fmt.Errorf("decode params snapshot %s: %w", name, err)
	}
	return snap, true, nil
}

func (s *FileSink) SaveHistory(_ context.Context, name string, snap HistorySnapshot) error {
	data, err := EncodeHistory(snap)
	if err != nil {
		return err
	}
	return s.write("history", name, data)
}

func (s *FileSink) GetHistory(_ context.Context, name string) (HistorySnapshot, bool, error) {
	data, ok, err := s.read("history", name)
	if err != nil || !ok {
		return HistorySnapshot{}, ok, err
	}
	snap, err := DecodeHistory(data)
	if err != nil {
		return HistorySnapshot{}, false, fmt.Errorf("decode history snapshot %s: %w", name, err)
	}
	return snap, true, nil
}

func (s *FileSink) SaveObject(_ context.Context, name string, snap ObjectSnapshot) error {
	data, err := EncodeObject(snap)
	if err != nil {
		return err
	}
	return s.write("objects", name, data)
}

func (s *FileSink) GetObject(_ context.Context, name string) (ObjectSnapshot, bool, error) {
	data, ok, err := s.read("objects", name)
	if err != nil || !ok {
		return ObjectSnapshot{}, ok, err
	}
	snap, err := DecodeObject(data)
	if err != nil {
		return ObjectSnapshot{}, false, fmt.Errorf("decode object snapshot %s: %w", name, err)
	}
	return snap, true, nil
}

func (s *FileSink) ListParams(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "params"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), compressedExt))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileSink) write(channel, name string, data []byte) error {
	path, err := s.path(channel, name)
	if err != nil {
		return err
	}
	if s.compress {
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return err
		}
		data = encoder.EncodeAll(data, nil)
		_ = encoder.Close()
		path += compressedExt
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *FileSink) read(channel, name string) ([]byte, bool, error) {
	path, err := s.path(channel, name)
	if err != nil {
		return nil, false, err
	}

	if data, err := os.ReadFile(path); err == nil {
		return data, true, nil
	} else if !os.IsNotExist(err) {
		return nil, false, err
	}

	data, err := os.ReadFile(path + compressedExt)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, false, err
	}
	defer decoder.Close()
	plain, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompress snapshot %s: %w", name, err)
	}
	return plain, true, nil
}

func (s *FileSink) path(channel, name string) (string, error) {
	if name == "" {
		return "", errors.New("snapshot name is required")
	}
	if filepath.Base(name) != name {
		return "", fmt.Errorf("snapshot name %q must not contain path separators", name)
	}
	return filepath.Join(s.dir, channel, name), nil
}
