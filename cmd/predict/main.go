// Command predict classifies a single image from the command line without
// touching the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/timmy/cropguard/internal/classifier"
	"github.com/timmy/cropguard/internal/config"
	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/knowledge"
	"github.com/timmy/cropguard/internal/logger"
	"github.com/timmy/cropguard/internal/staging"
)

type output struct {
	ModelType      domain.ModelKind   `json:"model_type"`
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	ClassIndex     int                `json:"class_index"`
	DiseaseInfo    knowledge.Advisory `json:"disease_info"`
}

func main() {
	configPath := flag.String("config", "", "Path to config file")
	modelType := flag.String("model", "leaf", "Model type (fruit/leaf)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <image>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log := logger.NewDefault()
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	if err := run(log.WithContext(context.Background()), *configPath, *modelType, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "predict: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, modelType, imagePath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	kind := domain.ParseModelKind(modelType)
	mc, ok := cfg.Models[kind.String()]
	if !ok {
		return fmt.Errorf("no %s model configured", kind)
	}
	if !staging.Allowed(imagePath) {
		return fmt.Errorf("invalid file type: %s", imagePath)
	}

	registry := classifier.Load(ctx, map[string]config.ModelConfig{kind.String(): mc})
	defer registry.Close()
	if !registry.IsAvailable(kind) {
		return fmt.Errorf("%s model not available", kind)
	}

	size, err := registry.InputSize(kind)
	if err != nil {
		return err
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return err
	}
	defer f.Close()

	input, err := classifier.Preprocess(f, size)
	if err != nil {
		return fmt.Errorf("preprocessing failed: %w", err)
	}

	result, err := registry.Predict(ctx, kind, input)
	if err != nil {
		return err
	}

	resolver, err := knowledge.Load()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output{
		ModelType:      kind,
		PredictedClass: result.Label,
		Confidence:     result.Confidence,
		ClassIndex:     result.ClassIndex,
		DiseaseInfo:    resolver.Resolve(kind, result.Label, result.Confidence),
	})
}
