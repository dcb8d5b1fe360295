package snapshot

import (
	"encoding/json"
	"errors"

	"paidagogos/internal/history"
	"paidagogos/internal/params"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("snapshot version mismatch")

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

func NewVersion() VersionedRecord {
	return VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

// ParamsSnapshot is the persisted parameter state of a module at one epoch.
type ParamsSnapshot struct {
	VersionedRecord
	RunID  string         `json:"run_id"`
	Epoch  int            `json:"epoch"`
	Params []params.Saved `json:"params"`
}

// HistorySnapshot is the persisted epoch log of a run.
type HistorySnapshot struct {
	VersionedRecord
	RunID  string          `json:"run_id"`
	Epochs []history.Epoch `json:"epochs"`
}

// ObjectSnapshot carries an opaque full-object payload, the closest analogue
// to pickling the whole training wrapper.
type ObjectSnapshot struct {
	VersionedRecord
	RunID   string          `json:"run_id"`
	Epoch   int             `json:"epoch"`
	Payload json.RawMessage `json:"payload"`
}

func EncodeParams(s ParamsSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeParams(data []byte) (ParamsSnapshot, error) {
	var snap ParamsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ParamsSnapshot{}, err
	}
	if err := checkVersion(snap.VersionedRecord); err != nil {
		return ParamsSnapshot{}, err
	}
	return snap, nil
}

func EncodeHistory(s HistorySnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeHistory(data []byte) (HistorySnapshot, error) {
	var snap HistorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return HistorySnapshot{}, err
	}
	if err := checkVersion(snap.VersionedRecord); err != nil {
		return HistorySnapshot{}, err
	}
	return snap, nil
}

func EncodeObject(s ObjectSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeObject(data []byte) (ObjectSnapshot, error) {
	var snap ObjectSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ObjectSnapshot{}, err
	}
	if err := checkVersion(snap.VersionedRecord); err != nil {
		return ObjectSnapshot{}, err
	}
	return snap, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
