package digits

import (
	"fmt"
	"math"
)

// model is a nearest-centroid classifier, serialized as JSON into the train
// task's artifact. C is carried for interface parity with the usual SVM
// hyperparameters but unused by this toy classifier.
type model struct {
	Centroids [][]float64 `json:"centroids"`
	C         float64     `json:"c"`
	Gamma     float64     `json:"gamma"`
	Kernel    string      `json:"kernel"`
}

// fit computes per-class centroids from the training samples.
func fit(train []sample, c, gamma float64, kernel string) (*model, error) {
	if kernel != "rbf" && kernel != "linear" {
		return nil, fmt.Errorf("unsupported kernel '%s'", kernel)
	}

	sums := make([][]float64, numClasses)
	counts := make([]int, numClasses)
	for i := range sums {
		sums[i] = make([]float64, numFeatures)
	}
	for _, s := range train {
		for d, v := range s.features {
			sums[s.label][d] += v
		}
		counts[s.label]++
	}

	centroids := make([][]float64, numClasses)
	for label := range centroids {
		if counts[label] == 0 {
			return nil, fmt.Errorf("no training samples for class %d", label)
		}
		centroids[label] = make([]float64, numFeatures)
		for d := range centroids[label] {
			centroids[label][d] = sums[label][d] / float64(counts[label])
		}
	}

	return &model{Centroids: centroids, C: c, Gamma: gamma, Kernel: kernel}, nil
}

// predict returns the class whose centroid scores highest for the features.
func (m *model) predict(features []float64) int {
	best, bestScore := 0, math.Inf(-1)
	for label, centroid := range m.Centroids {
		var d2 float64
		for d, v := range features {
			diff := v - centroid[d]
			d2 += diff * diff
		}

		var score float64
		switch m.Kernel {
		case "rbf":
			score = math.Exp(-m.Gamma * d2)
		default: // linear
			score = -d2
		}
		if score > bestScore {
			best, bestScore = label, score
		}
	}
	return best
}

// accuracy evaluates the model on held-out samples.
func (m *model) accuracy(test []sample) float64 {
	if len(test) == 0 {
		return 0
	}
	correct := 0
	for _, s := range test {
		if m.predict(s.features) == s.label {
			correct++
		}
	}
	return float64(correct) / float64(len(test))
}
