// Package scoring turns feature rows into outcome probabilities.
package scoring

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/okian/matchpulse/internal/domain/features"
	"github.com/okian/matchpulse/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// Class labels in output order.
const (
	ClassHomeWin = "HOME_WIN"
	ClassDraw    = "DRAW"
	ClassAwayWin = "AWAY_WIN"
)

var classes = [3]string{ClassHomeWin, ClassDraw, ClassAwayWin}

// Classifier estimates outcome probabilities for a feature row.
// Implementations must be deterministic for a given Version.
type Classifier interface {
	Predict(ctx context.Context, row features.Row) (model.Probabilities, error)
	Version() string
}

// Option applies a configuration option to the SoftmaxModel.
type Option func(*SoftmaxModel)

// WithVersion overrides the version tag reported on predictions.
func WithVersion(version string) Option {
	return func(m *SoftmaxModel) {
		if version != "" {
			m.version = version
		}
	}
}

// SoftmaxModel is a multinomial logistic classifier over the feature row.
type SoftmaxModel struct {
	version string
	weights [3][features.Width]float64
	bias    [3]float64
}

// modelFile is the YAML layout of a trained model. Weights are keyed by
// class label, then by feature name; absent entries are zero.
type modelFile struct {
	Version string                        `yaml:"version"`
	Weights map[string]map[string]float64 `yaml:"weights"`
	Bias    map[string]float64            `yaml:"bias"`
}

// Built-in weights reproduce the labelling rule used to train the model:
// score = 1.8*goal_diff + 0.9*xg_diff + 0.15*shot_diff + 0.1*corner_diff,
// home win above 0.8, away win below -0.8, draw in between.
const (
	defaultVersion  = "xgb_v1"
	labelSharpness  = 2.5
	labelDrawMargin = 0.8
)

var defaultScoreWeights = map[string]float64{
	"goal_diff":   1.8,
	"xg_diff":     0.9,
	"shot_diff":   0.15,
	"corner_diff": 0.1,
}

// DefaultSoftmaxModel returns the built-in model.
func DefaultSoftmaxModel(opts ...Option) *SoftmaxModel {
	home := make(map[string]float64, len(defaultScoreWeights))
	away := make(map[string]float64, len(defaultScoreWeights))
	for name, w := range defaultScoreWeights {
		home[name] = labelSharpness * w
		away[name] = -labelSharpness * w
	}
	offset := -labelSharpness * labelDrawMargin
	m, _ := fromFile(modelFile{
		Version: defaultVersion,
		Weights: map[string]map[string]float64{ClassHomeWin: home, ClassAwayWin: away},
		Bias:    map[string]float64{ClassHomeWin: offset, ClassAwayWin: offset},
	})
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadSoftmaxModel reads a model from a YAML file.
func LoadSoftmaxModel(path string, opts ...Option) (*SoftmaxModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	var f modelFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, path, err)
	}
	m, err := fromFile(f)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func fromFile(f modelFile) (*SoftmaxModel, error) {
	index := make(map[string]int, features.Width)
	for i, name := range features.Names {
		index[name] = i
	}
	m := &SoftmaxModel{version: f.Version}
	if m.version == "" {
		m.version = defaultVersion
	}
	for label := range f.Weights {
		if classIndex(label) < 0 {
			return nil, fmt.Errorf("%w: unknown class %q", ErrModelLoad, label)
		}
	}
	for c, label := range classes {
		for name, w := range f.Weights[label] {
			i, ok := index[name]
			if !ok {
				return nil, fmt.Errorf("%w: unknown feature %q", ErrModelLoad, name)
			}
			m.weights[c][i] = w
		}
		m.bias[c] = f.Bias[label]
	}
	return m, nil
}

func classIndex(label string) int {
	for i, c := range classes {
		if c == label {
			return i
		}
	}
	return -1
}

// Version returns the model version tag.
func (m *SoftmaxModel) Version() string { return m.version }

// Predict computes the softmax over the three class logits.
func (m *SoftmaxModel) Predict(ctx context.Context, row features.Row) (model.Probabilities, error) {
	if err := ctx.Err(); err != nil {
		return model.Probabilities{}, fmt.Errorf("%w: %w", ErrInference, err)
	}
	x := row.Vector()
	var logits [3]float64
	for c := range classes {
		z := m.bias[c]
		for i, v := range x {
			z += m.weights[c][i] * v
		}
		logits[c] = z
	}

	top := math.Max(logits[0], math.Max(logits[1], logits[2]))
	var exp [3]float64
	var sum float64
	for c, z := range logits {
		exp[c] = math.Exp(z - top)
		sum += exp[c]
	}
	p := model.Probabilities{HomeWin: exp[0] / sum, Draw: exp[1] / sum, AwayWin: exp[2] / sum}
	if !p.Valid(model.ProbabilityTolerance) {
		return model.Probabilities{}, fmt.Errorf("%w: malformed output %+v", ErrInference, p)
	}
	return p, nil
}
