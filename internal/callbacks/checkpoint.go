package callbacks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"

	"paidagogos/internal/history"
	"paidagogos/internal/params"
	"paidagogos/internal/snapshot"
)

const DefaultCheckpointMonitor = "valid_loss_best"

// Checkpoint persists the module during training whenever the monitored
// condition holds. Parameters, history, and a full-object payload are three
// independent channels: each is written only when its filename template is
// set. The bool flag "event_cp" is recorded into every epoch, whether or
// not a checkpoint was written.
type Checkpoint struct {
	Base

	// Monitor names a per-epoch bool column (typically "valid_loss_best").
	// Empty monitors every epoch. MonitorFn supersedes Monitor when set.
	Monitor   string
	MonitorFn Condition

	// Filename templates, executed against TemplateData.
	FParams  string
	FHistory string
	FObject  string

	Store snapshot.Sink
	Sink  MessageSink

	tmplParams  *template.Template
	tmplHistory *template.Template
	tmplObject  *template.Template
}

// TemplateData is the context available to checkpoint filename templates,
// for example "params_{{.Epoch}}.json".
type TemplateData struct {
	RunID     string
	Epoch     int
	LastEpoch history.Record
	LastBatch history.Record
}

// NewCheckpoint saves parameter snapshots to "params.json" in the given
// sink whenever the valid_loss_best flag is set.
func NewCheckpoint(store snapshot.Sink) *Checkpoint {
	return &Checkpoint{
		Monitor: DefaultCheckpointMonitor,
		FParams: "params.json",
		Store:   store,
		Sink:    Discard,
	}
}

func (cp *Checkpoint) Name() string {
	return "checkpoint"
}

func (cp *Checkpoint) Initialize() error {
	if cp.FParams == "" && cp.FHistory == "" && cp.FObject == "" {
		return errors.New("checkpoint has no snapshot channel configured")
	}
	if cp.Store == nil {
		return errors.New("checkpoint requires a snapshot sink")
	}

	var err error
	if cp.tmplParams, err = parseTarget("params", cp.FParams); err != nil {
		return err
	}
	if cp.tmplHistory, err = parseTarget("history", cp.FHistory); err != nil {
		return err
	}
	if cp.tmplObject, err = parseTarget("object", cp.FObject); err != nil {
		return err
	}
	return nil
}

func (cp *Checkpoint) OnEpochEnd(ctx context.Context, c *Context) error {
	do, err := cp.shouldCheckpoint(c)
	if err != nil {
		return err
	}

	if do {
		if err := cp.save(ctx, c); err != nil {
			return err
		}
		cp.sink(fmt.Sprintf("A checkpoint was triggered in epoch %d.", c.History.Len()))
	}
	return c.History.RecordMetric("event_cp", do)
}

func (cp *Checkpoint) shouldCheckpoint(c *Context) (bool, error) {
	if cp.MonitorFn != nil {
		return cp.MonitorFn(c), nil
	}
	if cp.Monitor == "" {
		return true, nil
	}
	flag, err := c.History.Bool(-1, cp.Monitor)
	if err != nil {
		return false, fmt.Errorf("checkpoint monitor %q: %w", cp.Monitor, err)
	}
	return flag, nil
}

func (cp *Checkpoint) save(ctx context.Context, c *Context) error {
	data := cp.templateData(c)

	if cp.tmplParams != nil {
		name, err := formatTarget(cp.tmplParams, data)
		if err != nil {
			return err
		}
		snap := snapshot.ParamsSnapshot{
			VersionedRecord: snapshot.NewVersion(),
			RunID:           c.RunID,
			Epoch:           data.Epoch,
			Params:          params.Snapshot(c.Module),
		}
		if err := cp.Store.SaveParams(ctx, name, snap); err != nil {
			return fmt.Errorf("save params snapshot: %w", err)
		}
	}

	if cp.tmplHistory != nil {
		name, err := formatTarget(cp.tmplHistory, data)
		if err != nil {
			return err
		}
		snap := snapshot.HistorySnapshot{
			VersionedRecord: snapshot.NewVersion(),
			RunID:           c.RunID,
			Epochs:          c.History.Epochs(),
		}
		if err := cp.Store.SaveHistory(ctx, name, snap); err != nil {
			return fmt.Errorf("save history snapshot: %w", err)
		}
	}

	if cp.tmplObject != nil {
		name, err := formatTarget(cp.tmplObject, data)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(struct {
			Params []params.Saved  `json:"params"`
			Epochs []history.Epoch `json:"epochs"`
		}{
			Params: params.Snapshot(c.Module),
			Epochs: c.History.Epochs(),
		})
		if err != nil {
			return err
		}
		snap := snapshot.ObjectSnapshot{
			VersionedRecord: snapshot.NewVersion(),
			RunID:           c.RunID,
			Epoch:           data.Epoch,
			Payload:         payload,
		}
		if err := cp.Store.SaveObject(ctx, name, snap); err != nil {
			return fmt.Errorf("save object snapshot: %w", err)
		}
	}
	return nil
}

func (cp *Checkpoint) templateData(c *Context) TemplateData {
	data := TemplateData{RunID: c.RunID, Epoch: c.History.Len()}
	if epoch, err := c.History.EpochAt(-1); err == nil {
		data.LastEpoch = epoch.Values
	}
	if batch, err := c.History.LastBatch(-1); err == nil {
		data.LastBatch = batch
	}
	return data
}

func (cp *Checkpoint) sink(msg string) {
	if cp.Sink != nil {
		cp.Sink(msg)
	}
}

func parseTarget(channel, text string) (*template.Template, error) {
	if text == "" {
		return nil, nil
	}
	tmpl, err := template.New(channel).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid %s filename template %q: %w", channel, text, err)
	}
	return tmpl, nil
}

func formatTarget(tmpl *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("format %s filename: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
