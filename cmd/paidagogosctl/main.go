package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"paidagogos/pkg/paidagogos"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:])
	case "snapshots":
		return runSnapshots(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "params":
		return runParams(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	storeKind := fs.String("store", "memory", "snapshot backend: memory|file|sqlite")
	storePath := fs.String("store-path", "snapshots", "snapshot directory or database path")
	compress := fs.Bool("compress", false, "zstd-compress file snapshots")
	configPath := fs.String("config", "", "YAML run config")
	dataset := fs.String("dataset", "xor", "builtin dataset: xor|sine")
	epochs := fs.Int("epochs", 0, "override max epochs")
	lr := fs.Float64("lr", 0, "override learning rate")
	verbose := fs.Bool("verbose", false, "log epoch progress")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var req paidagogos.TrainRequest
	if *configPath != "" {
		loaded, err := loadTrainRequest(*configPath)
		if err != nil {
			return err
		}
		req = loaded
	}
	if req.Dataset == "" {
		req.Dataset = *dataset
	}
	if *epochs > 0 {
		req.MaxEpochs = *epochs
	}
	if *lr > 0 {
		req.LearningRate = *lr
	}
	req.Verbose = *verbose

	opts := paidagogos.Options{
		StoreKind: *storeKind,
		StorePath: *storePath,
		Compress:  *compress,
	}
	if *verbose {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		opts.Logger = &logger
	}

	client, err := paidagogos.New(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Train(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run=%s epochs=%d train_loss=%.6f", summary.RunID, summary.Epochs, summary.FinalTrainLoss)
	if summary.Validated {
		fmt.Printf(" valid_loss=%.6f", summary.FinalValidLoss)
	}
	if summary.Stopped {
		fmt.Printf(" stopped_at=%d", summary.StoppedEpoch)
	}
	fmt.Println()
	for _, name := range summary.Snapshots {
		fmt.Printf("snapshot %s\n", name)
	}
	return nil
}

func runSnapshots(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("snapshots", flag.ContinueOnError)
	storeKind := fs.String("store", "file", "snapshot backend: memory|file|sqlite")
	storePath := fs.String("store-path", "snapshots", "snapshot directory or database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := paidagogos.New(ctx, paidagogos.Options{StoreKind: *storeKind, StorePath: *storePath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	names, err := client.Snapshots(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no snapshots")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	storeKind := fs.String("store", "file", "snapshot backend: memory|file|sqlite")
	storePath := fs.String("store-path", "snapshots", "snapshot directory or database path")
	name := fs.String("name", "history.json", "history snapshot name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := paidagogos.New(ctx, paidagogos.Options{StoreKind: *storeKind, StorePath: *storePath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	snap, ok, err := client.RunHistory(ctx, *name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("history snapshot not found: %s", *name)
	}

	fmt.Printf("run=%s epochs=%d\n", snap.RunID, len(snap.Epochs))
	for i, epoch := range snap.Epochs {
		line, err := json.Marshal(epoch.Values)
		if err != nil {
			return fmt.Errorf("encode epoch %d: %w", i+1, err)
		}
		fmt.Printf("%d: %s\n", i+1, line)
	}
	return nil
}

func runParams(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("params", flag.ContinueOnError)
	storeKind := fs.String("store", "file", "snapshot backend: memory|file|sqlite")
	storePath := fs.String("store-path", "snapshots", "snapshot directory or database path")
	name := fs.String("name", "params.json", "parameter snapshot name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := paidagogos.New(ctx, paidagogos.Options{StoreKind: *storeKind, StorePath: *storePath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	snap, ok, err := client.ParamsSnapshot(ctx, *name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("parameter snapshot not found: %s", *name)
	}

	fmt.Printf("run=%s epoch=%d\n", snap.RunID, snap.Epoch)
	for _, saved := range snap.Params {
		fmt.Printf("%s shape=%v values=%d\n", saved.Name, saved.Shape, len(saved.Data))
	}
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: paidagogosctl <train|snapshots|history|params> [flags]", msg)
}
