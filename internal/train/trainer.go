package train

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/stat"

	"paidagogos/internal/callbacks"
	"paidagogos/internal/history"
	"paidagogos/internal/nn"
)

// Config carries the loop parameters of one training run.
type Config struct {
	MaxEpochs    int
	LearningRate float64
	Verbose      bool
}

// Trainer is the host training loop. It drives the callbacks through their
// lifecycle hooks strictly sequentially and owns the history they read.
type Trainer struct {
	RunID     string
	Network   *nn.Network
	Callbacks []callbacks.Callback
	History   *history.History
	Logger    zerolog.Logger

	cfg Config
}

// Report summarizes a finished (or stopped) run.
type Report struct {
	RunID          string
	Epochs         int
	Stopped        bool
	StoppedEpoch   int
	Validated      bool
	FinalTrainLoss float64
	FinalValidLoss float64
}

func New(network *nn.Network, cfg Config, cbs ...callbacks.Callback) *Trainer {
	return &Trainer{
		RunID:     uuid.NewString(),
		Network:   network,
		Callbacks: cbs,
		History:   history.New(),
		Logger:    zerolog.Nop(),
		cfg:       cfg,
	}
}

// Fit trains the network on trainSet, scoring validSet once per epoch when
// it is non-empty. A callbacks.ErrStopTraining from an epoch-end hook ends
// the run gracefully; any other callback error is fatal.
func (t *Trainer) Fit(ctx context.Context, trainSet, validSet Dataset) (Report, error) {
	report := Report{RunID: t.RunID}

	if t.cfg.MaxEpochs <= 0 {
		return report, fmt.Errorf("max epochs must be positive, got %d", t.cfg.MaxEpochs)
	}
	if t.cfg.LearningRate <= 0 {
		return report, fmt.Errorf("learning rate must be positive, got %v", t.cfg.LearningRate)
	}
	if err := trainSet.Validate(); err != nil {
		return report, err
	}
	if err := validSet.Validate(); err != nil {
		return report, err
	}
	if trainSet.Len() == 0 {
		return report, errors.New("training dataset is empty")
	}

	cbctx := &callbacks.Context{RunID: t.RunID, History: t.History, Module: t.Network}

	for _, cb := range t.Callbacks {
		if err := cb.Initialize(); err != nil {
			return report, fmt.Errorf("callback %s: %w", cb.Name(), err)
		}
	}
	for _, cb := range t.Callbacks {
		if err := cb.OnTrainBegin(ctx, cbctx); err != nil {
			return report, fmt.Errorf("callback %s: %w", cb.Name(), err)
		}
	}

	runsStarted.Inc()
	t.Logger.Info().
		Str("run_id", t.RunID).
		Int("max_epochs", t.cfg.MaxEpochs).
		Int("train_samples", trainSet.Len()).
		Int("valid_samples", validSet.Len()).
		Msg("training started")

	var bar *progressbar.ProgressBar
	if t.cfg.Verbose {
		bar = progressbar.Default(int64(t.cfg.MaxEpochs), "epochs")
	}

	bestTrain := math.Inf(1)
	bestValid := math.Inf(1)

	for epoch := 1; epoch <= t.cfg.MaxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		t.History.NewEpoch()
		if err := t.History.RecordMetric("epoch", epoch); err != nil {
			return report, err
		}

		for _, cb := range t.Callbacks {
			if err := cb.OnEpochBegin(ctx, cbctx); err != nil {
				return report, fmt.Errorf("callback %s: %w", cb.Name(), err)
			}
		}

		losses := make([]float64, 0, trainSet.Len())
		for i := range trainSet.Inputs {
			if err := t.History.NewBatch(); err != nil {
				return report, err
			}
			loss, err := t.Network.TrainStep(trainSet.Inputs[i], trainSet.Targets[i], t.cfg.LearningRate)
			if err != nil {
				return report, fmt.Errorf("epoch %d batch %d: %w", epoch, i, err)
			}
			if err := t.History.RecordBatchMetric("train_loss", loss); err != nil {
				return report, err
			}
			losses = append(losses, loss)
		}

		trainLoss := stat.Mean(losses, nil)
		if err := t.History.RecordMetric("train_loss", trainLoss); err != nil {
			return report, err
		}
		trainBest := trainLoss < bestTrain
		if trainBest {
			bestTrain = trainLoss
		}
		if err := t.History.RecordMetric("train_loss_best", trainBest); err != nil {
			return report, err
		}
		report.FinalTrainLoss = trainLoss

		if validSet.Len() > 0 {
			validLoss, err := t.score(validSet)
			if err != nil {
				return report, fmt.Errorf("epoch %d validation: %w", epoch, err)
			}
			if err := t.History.RecordMetric("valid_loss", validLoss); err != nil {
				return report, err
			}
			validBest := validLoss < bestValid
			if validBest {
				bestValid = validLoss
			}
			if err := t.History.RecordMetric("valid_loss_best", validBest); err != nil {
				return report, err
			}
			report.Validated = true
			report.FinalValidLoss = validLoss
		}

		report.Epochs = epoch
		epochsCompleted.Inc()
		t.Logger.Debug().
			Int("epoch", epoch).
			Float64("train_loss", trainLoss).
			Msg("epoch completed")

		stopped := false
		for _, cb := range t.Callbacks {
			err := cb.OnEpochEnd(ctx, cbctx)
			if err == nil {
				continue
			}
			if errors.Is(err, callbacks.ErrStopTraining) {
				earlyStops.Inc()
				t.Logger.Info().
					Int("epoch", epoch).
					Str("callback", cb.Name()).
					Msg("training stopped early")
				report.Stopped = true
				report.StoppedEpoch = epoch
				stopped = true
				break
			}
			return report, fmt.Errorf("callback %s: %w", cb.Name(), err)
		}

		if bar != nil {
			_ = bar.Add(1)
		}
		if stopped {
			break
		}
	}

	for _, cb := range t.Callbacks {
		if err := cb.OnTrainEnd(ctx, cbctx); err != nil {
			return report, fmt.Errorf("callback %s: %w", cb.Name(), err)
		}
	}

	t.Logger.Info().
		Str("run_id", t.RunID).
		Int("epochs", report.Epochs).
		Bool("stopped", report.Stopped).
		Float64("final_train_loss", report.FinalTrainLoss).
		Msg("training finished")
	return report, nil
}

func (t *Trainer) score(ds Dataset) (float64, error) {
	losses := make([]float64, 0, ds.Len())
	for i := range ds.Inputs {
		loss, err := t.Network.Loss(ds.Inputs[i], ds.Targets[i])
		if err != nil {
			return 0, err
		}
		losses = append(losses, loss)
	}
	return stat.Mean(losses, nil), nil
}
