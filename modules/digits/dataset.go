package digits

import "math/rand"

// The demo dataset is synthetic: ten classes of 16-dimensional points
// scattered around fixed per-class centers. Generation is fully seeded so
// every run, machine, and test sees the same data.
const (
	numClasses      = 10
	numFeatures     = 16
	samplesPerClass = 20
	datasetSeed     = 42
	noiseScale      = 0.35
)

type sample struct {
	features []float64
	label    int
}

// loadDataset generates the full dataset in a deterministic order.
func loadDataset() []sample {
	rng := rand.New(rand.NewSource(datasetSeed))
	samples := make([]sample, 0, numClasses*samplesPerClass)

	for label := 0; label < numClasses; label++ {
		center := classCenter(label)
		for i := 0; i < samplesPerClass; i++ {
			features := make([]float64, numFeatures)
			for d := range features {
				features[d] = center[d] + rng.NormFloat64()*noiseScale
			}
			samples = append(samples, sample{features: features, label: label})
		}
	}
	return samples
}

// classCenter returns the fixed center of a class. The formula just needs
// to spread the classes apart; it carries no meaning.
func classCenter(label int) []float64 {
	center := make([]float64, numFeatures)
	for d := range center {
		center[d] = float64((label*7+d*3)%13) / 3.0
	}
	return center
}

// split partitions samples into train (even indices) and test (odd indices),
// mirroring the classic every-other-sample demo split.
func split(samples []sample) (train, test []sample) {
	for i, s := range samples {
		if i%2 == 0 {
			train = append(train, s)
		} else {
			test = append(test, s)
		}
	}
	return train, test
}
