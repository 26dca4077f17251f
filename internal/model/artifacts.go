package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WeightFormat names the serialization format of the model weights.
type WeightFormat string

const (
	WeightFormatSafetensors WeightFormat = "safetensors"
	WeightFormatPyTorch     WeightFormat = "pytorch"
	WeightFormatTensorFlow  WeightFormat = "tensorflow"
	WeightFormatONNX        WeightFormat = "onnx"
	WeightFormatFlax        WeightFormat = "flax"
)

const configFilename = "config.json"

var tokenizerFiles = []string{
	"tokenizer.json",
	"vocab.txt",
	"vocab.json",
	"spiece.model",
	"sentencepiece.bpe.model",
	"tokenizer.model",
}

// Artifacts summarizes what a model directory contains.
type Artifacts struct {
	Dir           string                  `json:"dir"`
	ModelType     string                  `json:"model_type,omitempty"`
	Architectures []string                `json:"architectures,omitempty"`
	Tokenizer     []string                `json:"tokenizer"`
	Weights       map[WeightFormat]string `json:"weights"`
}

// Formats returns the weight formats present, sorted.
func (a *Artifacts) Formats() []WeightFormat {
	formats := make([]WeightFormat, 0, len(a.Weights))
	for f := range a.Weights {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Inspect validates that dir holds a loadable model: a config.json object,
// at least one tokenizer file and at least one weight file.
func Inspect(dir string) (*Artifacts, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifacts, err)
	}

	a := &Artifacts{
		Dir:     dir,
		Weights: map[WeightFormat]string{},
	}

	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		names[name] = true

		if format, ok := weightFormat(name); ok {
			if _, seen := a.Weights[format]; !seen {
				a.Weights[format] = name
			}
		}
	}

	if !names[configFilename] {
		return nil, fmt.Errorf("%w: %s not found in %s", ErrInvalidArtifacts, configFilename, dir)
	}

	data, err := os.ReadFile(filepath.Join(dir, configFilename))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifacts, err)
	}

	var cfg struct {
		ModelType     string   `json:"model_type"`
		Architectures []string `json:"architectures"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidArtifacts, configFilename, err)
	}
	a.ModelType = cfg.ModelType
	a.Architectures = cfg.Architectures

	for _, name := range tokenizerFiles {
		if names[name] {
			a.Tokenizer = append(a.Tokenizer, name)
		}
	}
	if len(a.Tokenizer) == 0 {
		return nil, fmt.Errorf("%w: no tokenizer files in %s", ErrInvalidArtifacts, dir)
	}

	if len(a.Weights) == 0 {
		return nil, fmt.Errorf("%w: no weight files in %s", ErrInvalidArtifacts, dir)
	}

	return a, nil
}

func weightFormat(name string) (WeightFormat, bool) {
	switch {
	case strings.HasSuffix(name, ".safetensors"):
		return WeightFormatSafetensors, true
	case strings.HasPrefix(name, "pytorch_model") && strings.HasSuffix(name, ".bin"):
		return WeightFormatPyTorch, true
	case name == "tf_model.h5":
		return WeightFormatTensorFlow, true
	case strings.HasSuffix(name, ".onnx"):
		return WeightFormatONNX, true
	case name == "flax_model.msgpack":
		return WeightFormatFlax, true
	default:
		return "", false
	}
}
