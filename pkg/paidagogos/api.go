package paidagogos

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"paidagogos/internal/callbacks"
	"paidagogos/internal/nn"
	"paidagogos/internal/params"
	"paidagogos/internal/snapshot"
	"paidagogos/internal/train"
)

// Options configures a client: which snapshot backend to use and where it
// lives.
type Options struct {
	StoreKind string
	StorePath string
	Compress  bool
	Logger    *zerolog.Logger
}

type Client struct {
	store  snapshot.Sink
	logger zerolog.Logger
}

func New(ctx context.Context, opts Options) (*Client, error) {
	store, err := snapshot.NewSink(opts.StoreKind, opts.StorePath, opts.Compress)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init snapshot sink: %w", err)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{store: store, logger: logger}, nil
}

func (c *Client) Close() error {
	return snapshot.CloseIfSupported(c.store)
}

// EarlyStoppingSpec enables the early-stopping policy for a run. Zero
// fields fall back to the policy defaults. Threshold is a pointer so an
// explicit zero threshold is distinguishable from unset.
type EarlyStoppingSpec struct {
	Monitor        string
	Patience       int
	Threshold      *float64
	ThresholdMode  string
	HigherIsBetter bool
}

// CheckpointSpec enables checkpointing for a run. Empty templates keep the
// channel disabled, except FParams which defaults to "params.json".
type CheckpointSpec struct {
	Monitor  string
	Every    bool
	FParams  string
	FHistory string
	FObject  string
}

// InitSpec re-initializes matching parameters at the start of the first
// epoch.
type InitSpec struct {
	Patterns []string
	Dist     string // "uniform", "normal", or "xavier"
	Min, Max float64
	Mu       float64
	Sigma    float64
}

// TrainRequest describes one demo training run over a builtin dataset.
type TrainRequest struct {
	Dataset      string
	Hidden       []int
	Activation   string
	MaxEpochs    int
	LearningRate float64
	Seed         uint64
	Verbose      bool

	EarlyStopping *EarlyStoppingSpec
	Checkpoint    *CheckpointSpec
	Init          *InitSpec
	Freeze        []string
	Unfreeze      []string
	UnfreezeAt    int
}

type TrainSummary struct {
	RunID          string
	Epochs         int
	Stopped        bool
	StoppedEpoch   int
	Validated      bool
	FinalTrainLoss float64
	FinalValidLoss float64
	Snapshots      []string
}

func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	dataset := req.Dataset
	if dataset == "" {
		dataset = "xor"
	}
	ds, err := train.BuiltinDataset(dataset)
	if err != nil {
		return TrainSummary{}, err
	}
	if ds.Len() == 0 {
		return TrainSummary{}, errors.New("dataset is empty")
	}

	activation := req.Activation
	if activation == "" {
		activation = "tanh"
	}
	hidden := req.Hidden
	if len(hidden) == 0 {
		hidden = []int{8}
	}
	sizes := append([]int{len(ds.Inputs[0])}, hidden...)
	sizes = append(sizes, len(ds.Targets[0]))

	network, err := nn.NewNetwork(sizes, activation)
	if err != nil {
		return TrainSummary{}, err
	}
	seed := req.Seed
	if seed == 0 {
		seed = 1
	}
	xavier := params.XavierUniform(seed)
	for _, np := range network.NamedParameters() {
		xavier(np.Param)
	}

	cbs, err := c.buildCallbacks(req)
	if err != nil {
		return TrainSummary{}, err
	}

	maxEpochs := req.MaxEpochs
	if maxEpochs == 0 {
		maxEpochs = 100
	}
	lr := req.LearningRate
	if lr == 0 {
		lr = 0.1
	}

	trainer := train.New(network, train.Config{
		MaxEpochs:    maxEpochs,
		LearningRate: lr,
		Verbose:      req.Verbose,
	}, cbs...)
	trainer.Logger = c.logger

	report, err := trainer.Fit(ctx, ds, ds)
	if err != nil {
		return TrainSummary{}, err
	}

	names, err := c.store.ListParams(ctx)
	if err != nil {
		return TrainSummary{}, err
	}
	return TrainSummary{
		RunID:          report.RunID,
		Epochs:         report.Epochs,
		Stopped:        report.Stopped,
		StoppedEpoch:   report.StoppedEpoch,
		FinalTrainLoss: report.FinalTrainLoss,
		Validated:      report.Validated,
		FinalValidLoss: report.FinalValidLoss,
		Snapshots:      names,
	}, nil
}

// Snapshots lists the stored parameter snapshot names.
func (c *Client) Snapshots(ctx context.Context) ([]string, error) {
	return c.store.ListParams(ctx)
}

// RunHistory loads a stored history snapshot by name.
func (c *Client) RunHistory(ctx context.Context, name string) (snapshot.HistorySnapshot, bool, error) {
	return c.store.GetHistory(ctx, name)
}

// ParamsSnapshot loads a stored parameter snapshot by name.
func (c *Client) ParamsSnapshot(ctx context.Context, name string) (snapshot.ParamsSnapshot, bool, error) {
	return c.store.GetParams(ctx, name)
}

func (c *Client) buildCallbacks(req TrainRequest) ([]callbacks.Callback, error) {
	var cbs []callbacks.Callback

	if len(req.Freeze) > 0 {
		freezer, err := callbacks.NewFreezer(req.Freeze...)
		if err != nil {
			return nil, err
		}
		cbs = append(cbs, freezer)
	}
	if len(req.Unfreeze) > 0 {
		unfreezer, err := callbacks.NewUnfreezer(req.Unfreeze...)
		if err != nil {
			return nil, err
		}
		if req.UnfreezeAt > 0 {
			unfreezer.At = req.UnfreezeAt
		}
		cbs = append(cbs, unfreezer)
	}
	if req.Init != nil {
		fn, err := initTransform(req.Init, req.Seed)
		if err != nil {
			return nil, err
		}
		init, err := callbacks.NewInitializer(fn, req.Init.Patterns...)
		if err != nil {
			return nil, err
		}
		cbs = append(cbs, init)
	}
	if req.Checkpoint != nil {
		cp := callbacks.NewCheckpoint(c.store)
		cp.Sink = callbacks.LogSink(c.logger)
		if req.Checkpoint.Every {
			cp.Monitor = ""
		} else if req.Checkpoint.Monitor != "" {
			cp.Monitor = req.Checkpoint.Monitor
		}
		if req.Checkpoint.FParams != "" {
			cp.FParams = req.Checkpoint.FParams
		}
		cp.FHistory = req.Checkpoint.FHistory
		cp.FObject = req.Checkpoint.FObject
		cbs = append(cbs, cp)
	}
	if req.EarlyStopping != nil {
		es := callbacks.NewEarlyStopping()
		es.Sink = callbacks.LogSink(c.logger)
		if req.EarlyStopping.Monitor != "" {
			es.Monitor = req.EarlyStopping.Monitor
		}
		if req.EarlyStopping.Patience > 0 {
			es.Patience = req.EarlyStopping.Patience
		}
		if req.EarlyStopping.Threshold != nil {
			es.Threshold = *req.EarlyStopping.Threshold
		}
		if req.EarlyStopping.ThresholdMode != "" {
			es.ThresholdMode = req.EarlyStopping.ThresholdMode
		}
		es.LowerIsBetter = !req.EarlyStopping.HigherIsBetter
		cbs = append(cbs, es)
	}
	return cbs, nil
}

func initTransform(spec *InitSpec, seed uint64) (params.Transform, error) {
	if seed == 0 {
		seed = 1
	}
	switch spec.Dist {
	case "", "xavier":
		return params.XavierUniform(seed), nil
	case "uniform":
		return params.Uniform(spec.Min, spec.Max, seed), nil
	case "normal":
		sigma := spec.Sigma
		if sigma == 0 {
			sigma = 1
		}
		return params.Normal(spec.Mu, sigma, seed), nil
	default:
		return nil, fmt.Errorf("unsupported init distribution: %s", spec.Dist)
	}
}
