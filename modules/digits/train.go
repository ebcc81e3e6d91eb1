// Package digits provides the demo model tasks: train fits a toy
// nearest-centroid classifier and predict evaluates it on held-out data.
// The pair demonstrates clone semantics: predict requires a train task with
// identical significant parameters, so tweaking any hyperparameter re-trains
// and re-evaluates under fresh salted paths automatically.
package digits

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"

	"github.com/zclconf/go-cty/cty"

	"github.com/aaroncwhite/salted/internal/config"
	"github.com/aaroncwhite/salted/internal/registry"
	"github.com/aaroncwhite/salted/internal/salt"
	"github.com/aaroncwhite/salted/internal/target"
	"github.com/aaroncwhite/salted/internal/task"
)

// Task kinds registered for pipeline files.
const (
	TrainKind   = "train_digits"
	PredictKind = "predict_digits"
)

// Fingerprints are the logic identities of the two tasks. Bump on any
// behavioral change to training or evaluation respectively.
const (
	trainFingerprint   = "train_digits@1: nearest-centroid fit over the synthetic digits set"
	predictFingerprint = "predict_digits@1: held-out accuracy of the trained classifier"
)

// Hyperparameter defaults, matching the conventional SVC defaults the demo
// pipeline is riffing on.
const (
	DefaultC      = 100.0
	DefaultGamma  = 1.0
	DefaultKernel = "rbf"
)

// Module registers both digit task kinds.
type Module struct{}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(TrainKind, NewTrain)
	r.RegisterKind(PredictKind, NewPredict)
}

// hyperParams are the significant parameters shared by train and predict.
type hyperParams struct {
	c      float64
	gamma  float64
	kernel string
}

// hyperParamsFrom extracts hyperparameters from pipeline config, applying
// defaults for absent ones.
func hyperParamsFrom(cfg *config.TaskConfig) (hyperParams, error) {
	var hp hyperParams
	var err error
	if hp.c, err = cfg.NumberParamDefault("c", DefaultC); err != nil {
		return hp, err
	}
	if hp.gamma, err = cfg.NumberParamDefault("gamma", DefaultGamma); err != nil {
		return hp, err
	}
	if hp.kernel, err = cfg.StringParamDefault("kernel", DefaultKernel); err != nil {
		return hp, err
	}
	return hp, nil
}

// params renders the shared hyperparameters in a fixed order.
func (hp hyperParams) params() []task.Param {
	return []task.Param{
		{Name: "c", Value: cty.NumberFloatVal(hp.c), Significant: true},
		{Name: "gamma", Value: cty.NumberFloatVal(hp.gamma), Significant: true},
		{Name: "kernel", Value: cty.StringVal(hp.kernel), Significant: true},
	}
}

// suffix builds the hyperparameter part of a task ID.
func (hp hyperParams) suffix() string {
	return "c=" + strconv.FormatFloat(hp.c, 'g', -1, 64) +
		",gamma=" + strconv.FormatFloat(hp.gamma, 'g', -1, 64) +
		",kernel=" + hp.kernel
}

// TrainTask fits the classifier and writes the model artifact.
type TrainTask struct {
	hp      hyperParams
	dataDir string
	opts    salt.Options
}

// NewTrain constructs a train task from pipeline config.
func NewTrain(ws registry.Workspace, cfg *config.TaskConfig, opts salt.Options) (task.Runnable, error) {
	hp, err := hyperParamsFrom(cfg)
	if err != nil {
		return nil, err
	}
	return newTrain(ws.DataDir, hp, opts), nil
}

func newTrain(dataDir string, hp hyperParams, opts salt.Options) *TrainTask {
	return &TrainTask{hp: hp, dataDir: dataDir, opts: opts}
}

func (t *TrainTask) ID() string            { return TrainKind + "." + t.hp.suffix() }
func (t *TrainTask) Fingerprint() string   { return trainFingerprint }
func (t *TrainTask) Params() []task.Param  { return t.hp.params() }
func (t *TrainTask) Requires() []task.Node { return nil }

// Output is the salted model artifact.
func (t *TrainTask) Output() (target.Target, error) {
	pattern := filepath.ToSlash(filepath.Join(t.dataDir, "model-{salt}.json"))
	return salt.Target(t, target.LocalConstructor, pattern, t.opts)
}

// Run fits the classifier on the training half of the dataset and writes
// the model as JSON.
func (t *TrainTask) Run(ctx context.Context) error {
	train, _ := split(loadDataset())
	m, err := fit(train, t.hp.c, t.hp.gamma, t.hp.kernel)
	if err != nil {
		return err
	}

	out, err := t.Output()
	if err != nil {
		return err
	}
	w, err := out.OpenWrite()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := json.NewEncoder(w).Encode(m); err != nil {
		return err
	}
	return w.Close()
}
