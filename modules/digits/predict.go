package digits

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/aaroncwhite/salted/internal/config"
	"github.com/aaroncwhite/salted/internal/registry"
	"github.com/aaroncwhite/salted/internal/salt"
	"github.com/aaroncwhite/salted/internal/target"
	"github.com/aaroncwhite/salted/internal/task"
)

// PredictTask evaluates a trained model on the held-out half of the dataset.
type PredictTask struct {
	hp      hyperParams
	dataDir string
	opts    salt.Options

	// train is the cloned requirement: same hyperparameters, so any change
	// to them re-trains before re-evaluating.
	train *TrainTask
}

// NewPredict constructs a predict task from pipeline config.
func NewPredict(ws registry.Workspace, cfg *config.TaskConfig, opts salt.Options) (task.Runnable, error) {
	hp, err := hyperParamsFrom(cfg)
	if err != nil {
		return nil, err
	}
	return &PredictTask{
		hp:      hp,
		dataDir: ws.DataDir,
		opts:    opts,
		train:   newTrain(ws.DataDir, hp, opts),
	}, nil
}

func (t *PredictTask) ID() string           { return PredictKind + "." + t.hp.suffix() }
func (t *PredictTask) Fingerprint() string  { return predictFingerprint }
func (t *PredictTask) Params() []task.Param { return t.hp.params() }

func (t *PredictTask) Requires() []task.Node {
	return []task.Node{t.train}
}

// Output is the salted accuracy artifact. Because the train task's digest
// feeds into this one, re-training always re-evaluates.
func (t *PredictTask) Output() (target.Target, error) {
	pattern := filepath.ToSlash(filepath.Join(t.dataDir, "accuracy-{salt}.txt"))
	return salt.Target(t, target.LocalConstructor, pattern, t.opts)
}

// Run loads the trained model and writes its held-out accuracy.
func (t *PredictTask) Run(ctx context.Context) error {
	in, err := t.train.Output()
	if err != nil {
		return err
	}
	r, err := in.OpenRead()
	if err != nil {
		return fmt.Errorf("failed to open model artifact: %w", err)
	}
	defer r.Close()

	var m model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return fmt.Errorf("failed to decode model artifact '%s': %w", in.Path(), err)
	}

	_, test := split(loadDataset())

	out, err := t.Output()
	if err != nil {
		return err
	}
	w, err := out.OpenWrite()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := fmt.Fprintf(w, "Accuracy: %.4f\n", m.accuracy(test)); err != nil {
		return err
	}
	return w.Close()
}
