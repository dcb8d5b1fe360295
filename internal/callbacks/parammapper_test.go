package callbacks

import (
	"context"
	"strings"
	"testing"

	"paidagogos/internal/params"
)

func beginEpoch(t *testing.T, m *ParamMapper, c *Context) {
	t.Helper()
	c.History.NewEpoch()
	if err := m.OnEpochBegin(context.Background(), c); err != nil {
		t.Fatalf("on epoch begin: %v", err)
	}
}

func TestFreezerMatchesOnlyPattern(t *testing.T) {
	module := newStubModule("linear.weight", "linear.bias", "conv.weight")
	freezer, err := NewFreezer("linear*.weight")
	if err != nil {
		t.Fatalf("new freezer: %v", err)
	}
	if err := freezer.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c := newTestContext(module)
	beginEpoch(t, freezer, c)

	for _, np := range module.NamedParameters() {
		wantFrozen := np.Name == "linear.weight"
		if gotFrozen := !np.Param.RequiresGrad(); gotFrozen != wantFrozen {
			t.Fatalf("parameter %s: frozen=%v want=%v", np.Name, gotFrozen, wantFrozen)
		}
	}
}

func TestUnfreezerReenablesGradients(t *testing.T) {
	module := newStubModule("linear.weight")
	params.Freeze(module.named[0].Param)

	unfreezer, err := NewUnfreezer("linear.*")
	if err != nil {
		t.Fatalf("new unfreezer: %v", err)
	}
	if err := unfreezer.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c := newTestContext(module)
	beginEpoch(t, unfreezer, c)
	if !module.named[0].Param.RequiresGrad() {
		t.Fatal("expected parameter unfrozen")
	}
}

func TestAtTriggersExactlyOnce(t *testing.T) {
	module := newStubModule("dense0.weight")
	applied := 0
	m := NewParamMapper(func(string) bool { return true })
	m.Fn = func(*params.Tensor) { applied++ }
	m.At = 2
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c := newTestContext(module)
	beginEpoch(t, m, c) // epoch 1
	if applied != 0 {
		t.Fatalf("expected no application at epoch 1, got=%d", applied)
	}
	beginEpoch(t, m, c) // epoch 2
	if applied != 1 {
		t.Fatalf("expected one application at epoch 2, got=%d", applied)
	}
	beginEpoch(t, m, c) // epoch 3
	if applied != 1 {
		t.Fatalf("expected no further applications, got=%d", applied)
	}
}

func TestAtZeroIsConfigError(t *testing.T) {
	m := NewParamMapper(func(string) bool { return true })
	m.At = 0
	err := m.Initialize()
	if err == nil {
		t.Fatal("expected config error for at=0")
	}
	if !strings.Contains(err.Error(), "at=0") {
		t.Fatalf("expected error to name the bad value, got=%v", err)
	}
}

func TestMultiplePatternsApplyOnce(t *testing.T) {
	module := newStubModule("linear0.weight")
	applied := 0
	patterns, err := Globs("linear0.*", "linear*.weight")
	if err != nil {
		t.Fatalf("globs: %v", err)
	}
	m := NewParamMapper(patterns...)
	m.Fn = func(*params.Tensor) { applied++ }
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c := newTestContext(module)
	beginEpoch(t, m, c)
	if applied != 1 {
		t.Fatalf("parameter matching two patterns must be transformed once, got=%d", applied)
	}
}

func TestCallablePattern(t *testing.T) {
	module := newStubModule("embedding.weight", "linear.weight")
	var touched []string
	m := NewParamMapper(func(name string) bool {
		return strings.HasPrefix(name, "embedding")
	})
	m.Fn = func(*params.Tensor) { touched = append(touched, "hit") }
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c := newTestContext(module)
	beginEpoch(t, m, c)
	if len(touched) != 1 {
		t.Fatalf("expected exactly the embedding parameter, got=%d hits", len(touched))
	}
}

func TestScheduleSupersedesAtAndFn(t *testing.T) {
	module := newStubModule("dense0.weight")
	var order []string
	m := NewParamMapper(func(string) bool { return true })
	m.Fn = func(*params.Tensor) { order = append(order, "fn") }
	m.Schedule = func(c *Context) params.Transform {
		if c.History.Len()%2 == 0 {
			return func(*params.Tensor) { order = append(order, "even") }
		}
		return func(*params.Tensor) { order = append(order, "odd") }
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c := newTestContext(module)
	beginEpoch(t, m, c)
	beginEpoch(t, m, c)
	beginEpoch(t, m, c)
	want := []string{"odd", "even", "odd"}
	if len(order) != len(want) {
		t.Fatalf("expected %d applications, got=%v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected schedule sequence %v, got=%v", want, order)
		}
	}
}

func TestWhenPredicateTrigger(t *testing.T) {
	module := newStubModule("dense0.weight")
	applied := 0
	m := NewParamMapper(func(string) bool { return true })
	m.Fn = func(*params.Tensor) { applied++ }
	m.When = func(c *Context) bool {
		loss, err := c.History.Float(-1, "train_loss")
		return err == nil && loss < 0.1
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c := newTestContext(module)
	c.History.NewEpoch()
	_ = c.History.RecordMetric("train_loss", 0.5)
	if err := m.OnEpochBegin(context.Background(), c); err != nil {
		t.Fatalf("on epoch begin: %v", err)
	}
	if applied != 0 {
		t.Fatalf("predicate false, expected no application, got=%d", applied)
	}

	c.History.NewEpoch()
	_ = c.History.RecordMetric("train_loss", 0.05)
	if err := m.OnEpochBegin(context.Background(), c); err != nil {
		t.Fatalf("on epoch begin: %v", err)
	}
	if applied != 1 {
		t.Fatalf("predicate true, expected one application, got=%d", applied)
	}
}

func TestZeroMatchesIsNoop(t *testing.T) {
	module := newStubModule("conv.weight")
	freezer, err := NewFreezer("linear*")
	if err != nil {
		t.Fatalf("new freezer: %v", err)
	}
	if err := freezer.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c := newTestContext(module)
	beginEpoch(t, freezer, c)
	if !module.named[0].Param.RequiresGrad() {
		t.Fatal("non-matching parameter must stay untouched")
	}
}

func TestInvalidGlobRejectedEagerly(t *testing.T) {
	if _, err := Glob("linear["); err == nil {
		t.Fatal("expected invalid pattern error")
	}
	if _, err := NewFreezer("linear["); err == nil {
		t.Fatal("expected freezer construction to fail on bad pattern")
	}
}

func TestInitializerRequiresTransform(t *testing.T) {
	if _, err := NewInitializer(nil, "dense*"); err == nil {
		t.Fatal("expected error for nil transform")
	}
}

func TestInitializerOverwritesValues(t *testing.T) {
	module := newStubModule("dense0.weight", "dense1.weight")
	init, err := NewInitializer(params.Uniform(1, 2, 3), "dense0.*")
	if err != nil {
		t.Fatalf("new initializer: %v", err)
	}
	if err := init.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	c := newTestContext(module)
	beginEpoch(t, init, c)

	for _, v := range module.named[0].Param.Data {
		if v < 1 || v > 2 {
			t.Fatalf("expected dense0.weight initialized into [1,2], got=%v", v)
		}
	}
	for _, v := range module.named[1].Param.Data {
		if v != 0 {
			t.Fatalf("expected dense1.weight untouched, got=%v", v)
		}
	}
}

func TestUninitializedMapperFails(t *testing.T) {
	m := NewParamMapper(func(string) bool { return true })
	c := newTestContext(newStubModule("w"))
	c.History.NewEpoch()
	if err := m.OnEpochBegin(context.Background(), c); err == nil {
		t.Fatal("expected error for uninitialized mapper")
	}
}
