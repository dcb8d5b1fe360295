package callbacks

import (
	"context"
	"errors"
	"testing"

	"paidagogos/internal/history"
	"paidagogos/internal/snapshot"
)

func newCheckpointFixture(t *testing.T) (*Checkpoint, *snapshot.MemorySink, *Context) {
	t.Helper()
	sink := snapshot.NewMemorySink()
	if err := sink.Init(context.Background()); err != nil {
		t.Fatalf("init sink: %v", err)
	}
	cp := NewCheckpoint(sink)
	c := newTestContext(newStubModule("dense0.weight", "dense0.bias"))
	return cp, sink, c
}

func endEpoch(t *testing.T, cp *Checkpoint, c *Context, best bool) {
	t.Helper()
	c.History.NewEpoch()
	if err := c.History.RecordMetric(DefaultCheckpointMonitor, best); err != nil {
		t.Fatalf("record flag: %v", err)
	}
	if err := cp.OnEpochEnd(context.Background(), c); err != nil {
		t.Fatalf("on epoch end: %v", err)
	}
}

func TestCheckpointFollowsMonitorFlag(t *testing.T) {
	cp, sink, c := newCheckpointFixture(t)
	if err := cp.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	endEpoch(t, cp, c, true)
	if _, ok, _ := sink.GetParams(context.Background(), "params.json"); !ok {
		t.Fatal("expected params snapshot after best epoch")
	}
	if flag, err := c.History.Bool(-1, "event_cp"); err != nil || !flag {
		t.Fatalf("expected event_cp=true, got=%v err=%v", flag, err)
	}

	mutateMarker := c.Module.NamedParameters()[0].Param
	mutateMarker.Data[0] = 42

	endEpoch(t, cp, c, false)
	if flag, err := c.History.Bool(-1, "event_cp"); err != nil || flag {
		t.Fatalf("expected event_cp=false, got=%v err=%v", flag, err)
	}
	snap, ok, err := sink.GetParams(context.Background(), "params.json")
	if err != nil || !ok {
		t.Fatalf("get params: ok=%v err=%v", ok, err)
	}
	if snap.Params[0].Data[0] == 42 {
		t.Fatal("non-best epoch must not overwrite the snapshot")
	}
}

func TestCheckpointEveryEpochWhenMonitorEmpty(t *testing.T) {
	cp, sink, c := newCheckpointFixture(t)
	cp.Monitor = ""
	cp.FParams = "params_{{.Epoch}}.json"
	if err := cp.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	for i := 0; i < 3; i++ {
		c.History.NewEpoch()
		if err := cp.OnEpochEnd(context.Background(), c); err != nil {
			t.Fatalf("on epoch end: %v", err)
		}
	}

	names, err := sink.ListParams(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"params_1.json", "params_2.json", "params_3.json"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got=%v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got=%v", want, names)
		}
	}
}

func TestCheckpointMonitorFnSupersedes(t *testing.T) {
	cp, sink, c := newCheckpointFixture(t)
	cp.MonitorFn = func(c *Context) bool { return c.History.Len() == 2 }
	if err := cp.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// no monitor column recorded at all: MonitorFn alone decides
	for i := 0; i < 3; i++ {
		c.History.NewEpoch()
		if err := cp.OnEpochEnd(context.Background(), c); err != nil {
			t.Fatalf("on epoch end: %v", err)
		}
	}

	names, err := sink.ListParams(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("expected a single checkpoint from epoch 2, got=%v", names)
	}
}

func TestCheckpointMissingMonitorError(t *testing.T) {
	cp, _, c := newCheckpointFixture(t)
	if err := cp.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c.History.NewEpoch()
	err := cp.OnEpochEnd(context.Background(), c)
	if !errors.Is(err, history.ErrKeyNotFound) {
		t.Fatalf("expected monitor-not-found error, got=%v", err)
	}
}

func TestCheckpointHistoryAndObjectChannels(t *testing.T) {
	cp, sink, c := newCheckpointFixture(t)
	cp.Monitor = ""
	cp.FParams = ""
	cp.FHistory = "history.json"
	cp.FObject = "net_{{.RunID}}.json"
	if err := cp.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c.History.NewEpoch()
	_ = c.History.RecordMetric("train_loss", 0.5)
	if err := cp.OnEpochEnd(context.Background(), c); err != nil {
		t.Fatalf("on epoch end: %v", err)
	}

	hist, ok, err := sink.GetHistory(context.Background(), "history.json")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%v err=%v", ok, err)
	}
	if len(hist.Epochs) != 1 {
		t.Fatalf("expected one epoch in snapshot, got=%d", len(hist.Epochs))
	}
	if _, ok, _ := sink.GetObject(context.Background(), "net_run-test.json"); !ok {
		t.Fatal("expected object snapshot addressed by run id")
	}
	if _, ok, _ := sink.GetParams(context.Background(), "params.json"); ok {
		t.Fatal("params channel disabled, nothing should be saved there")
	}
}

func TestCheckpointSinkMessage(t *testing.T) {
	cp, _, c := newCheckpointFixture(t)
	var messages []string
	cp.Monitor = ""
	cp.Sink = func(msg string) { messages = append(messages, msg) }
	if err := cp.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c.History.NewEpoch()
	if err := cp.OnEpochEnd(context.Background(), c); err != nil {
		t.Fatalf("on epoch end: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected one checkpoint notice, got=%v", messages)
	}
}

func TestCheckpointInitializeValidation(t *testing.T) {
	cp := NewCheckpoint(nil)
	if err := cp.Initialize(); err == nil {
		t.Fatal("expected error for missing sink")
	}

	cp = NewCheckpoint(snapshot.NewMemorySink())
	cp.FParams = ""
	if err := cp.Initialize(); err == nil {
		t.Fatal("expected error when no channel is configured")
	}

	cp = NewCheckpoint(snapshot.NewMemorySink())
	cp.FParams = "params_{{.Epoch"
	if err := cp.Initialize(); err == nil {
		t.Fatal("expected error for malformed template")
	}
}
