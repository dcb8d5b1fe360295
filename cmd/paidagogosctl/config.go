package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"paidagogos/pkg/paidagogos"
)

type runConfig struct {
	Dataset      string  `yaml:"dataset"`
	Hidden       []int   `yaml:"hidden"`
	Activation   string  `yaml:"activation"`
	MaxEpochs    int     `yaml:"max_epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	Seed         uint64  `yaml:"seed"`

	EarlyStopping *earlyStoppingConfig `yaml:"early_stopping"`
	Checkpoint    *checkpointConfig    `yaml:"checkpoint"`
	Init          *initConfig          `yaml:"init"`
	Freeze        []string             `yaml:"freeze"`
	Unfreeze      []string             `yaml:"unfreeze"`
	UnfreezeAt    int                  `yaml:"unfreeze_at"`
}

type earlyStoppingConfig struct {
	Monitor        string   `yaml:"monitor"`
	Patience       int      `yaml:"patience"`
	Threshold      *float64 `yaml:"threshold"`
	ThresholdMode  string   `yaml:"threshold_mode"`
	HigherIsBetter bool     `yaml:"higher_is_better"`
}

type checkpointConfig struct {
	Monitor  string `yaml:"monitor"`
	Every    bool   `yaml:"every"`
	FParams  string `yaml:"f_params"`
	FHistory string `yaml:"f_history"`
	FObject  string `yaml:"f_object"`
}

type initConfig struct {
	Patterns []string `yaml:"patterns"`
	Dist     string   `yaml:"dist"`
	Min      float64  `yaml:"min"`
	Max      float64  `yaml:"max"`
	Mu       float64  `yaml:"mu"`
	Sigma    float64  `yaml:"sigma"`
}

func loadTrainRequest(path string) (paidagogos.TrainRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return paidagogos.TrainRequest{}, err
	}

	var cfg runConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return paidagogos.TrainRequest{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.toRequest(), nil
}

func (cfg runConfig) toRequest() paidagogos.TrainRequest {
	req := paidagogos.TrainRequest{
		Dataset:      cfg.Dataset,
		Hidden:       cfg.Hidden,
		Activation:   cfg.Activation,
		MaxEpochs:    cfg.MaxEpochs,
		LearningRate: cfg.LearningRate,
		Seed:         cfg.Seed,
		Freeze:       cfg.Freeze,
		Unfreeze:     cfg.Unfreeze,
		UnfreezeAt:   cfg.UnfreezeAt,
	}
	if cfg.EarlyStopping != nil {
		req.EarlyStopping = &paidagogos.EarlyStoppingSpec{
			Monitor:        cfg.EarlyStopping.Monitor,
			Patience:       cfg.EarlyStopping.Patience,
			Threshold:      cfg.EarlyStopping.Threshold,
			ThresholdMode:  cfg.EarlyStopping.ThresholdMode,
			HigherIsBetter: cfg.EarlyStopping.HigherIsBetter,
		}
	}
	if cfg.Checkpoint != nil {
		req.Checkpoint = &paidagogos.CheckpointSpec{
			Monitor:  cfg.Checkpoint.Monitor,
			Every:    cfg.Checkpoint.Every,
			FParams:  cfg.Checkpoint.FParams,
			FHistory: cfg.Checkpoint.FHistory,
			FObject:  cfg.Checkpoint.FObject,
		}
	}
	if cfg.Init != nil {
		req.Init = &paidagogos.InitSpec{
			Patterns: cfg.Init.Patterns,
			Dist:     cfg.Init.Dist,
			Min:      cfg.Init.Min,
			Max:      cfg.Init.Max,
			Mu:       cfg.Init.Mu,
			Sigma:    cfg.Init.Sigma,
		}
	}
	return req
}
