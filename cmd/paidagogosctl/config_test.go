package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTrainRequestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	payload := `
dataset: sine
hidden: [16, 8]
activation: relu
max_epochs: 40
learning_rate: 0.05
seed: 7
early_stopping:
  monitor: valid_loss
  patience: 3
  threshold: 0.001
  threshold_mode: abs
checkpoint:
  monitor: valid_loss_best
  f_params: "params_{{.Epoch}}.json"
  f_history: history.json
init:
  patterns: ["dense0.*"]
  dist: normal
  mu: 0.0
  sigma: 0.1
freeze: ["dense1.weight"]
unfreeze: ["dense1.weight"]
unfreeze_at: 10
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	req, err := loadTrainRequest(path)
	if err != nil {
		t.Fatalf("loadTrainRequest: %v", err)
	}

	if req.Dataset != "sine" {
		t.Fatalf("dataset = %q, want sine", req.Dataset)
	}
	if len(req.Hidden) != 2 || req.Hidden[0] != 16 || req.Hidden[1] != 8 {
		t.Fatalf("hidden = %v, want [16 8]", req.Hidden)
	}
	if req.Activation != "relu" {
		t.Fatalf("activation = %q, want relu", req.Activation)
	}
	if req.MaxEpochs != 40 {
		t.Fatalf("max epochs = %d, want 40", req.MaxEpochs)
	}
	if req.LearningRate != 0.05 {
		t.Fatalf("learning rate = %v, want 0.05", req.LearningRate)
	}
	if req.Seed != 7 {
		t.Fatalf("seed = %d, want 7", req.Seed)
	}

	if req.EarlyStopping == nil {
		t.Fatal("early stopping spec missing")
	}
	if req.EarlyStopping.Monitor != "valid_loss" || req.EarlyStopping.Patience != 3 {
		t.Fatalf("early stopping = %+v", *req.EarlyStopping)
	}
	if req.EarlyStopping.Threshold == nil || *req.EarlyStopping.Threshold != 0.001 {
		t.Fatalf("threshold = %v", req.EarlyStopping.Threshold)
	}
	if req.EarlyStopping.ThresholdMode != "abs" {
		t.Fatalf("threshold mode = %q, want abs", req.EarlyStopping.ThresholdMode)
	}

	if req.Checkpoint == nil {
		t.Fatal("checkpoint spec missing")
	}
	if req.Checkpoint.FParams != "params_{{.Epoch}}.json" || req.Checkpoint.FHistory != "history.json" {
		t.Fatalf("checkpoint = %+v", *req.Checkpoint)
	}

	if req.Init == nil {
		t.Fatal("init spec missing")
	}
	if req.Init.Dist != "normal" || req.Init.Sigma != 0.1 {
		t.Fatalf("init = %+v", *req.Init)
	}
	if len(req.Init.Patterns) != 1 || req.Init.Patterns[0] != "dense0.*" {
		t.Fatalf("init patterns = %v", req.Init.Patterns)
	}

	if len(req.Freeze) != 1 || req.Freeze[0] != "dense1.weight" {
		t.Fatalf("freeze = %v", req.Freeze)
	}
	if req.UnfreezeAt != 10 {
		t.Fatalf("unfreeze at = %d, want 10", req.UnfreezeAt)
	}
}

func TestLoadTrainRequestMissingFile(t *testing.T) {
	if _, err := loadTrainRequest(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadTrainRequestMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("dataset: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadTrainRequest(path); err == nil {
		t.Fatal("expected parse error for malformed config")
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"bogus"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}
