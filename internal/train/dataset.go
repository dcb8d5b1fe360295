package train

import (
	"fmt"
	"math"
)

// Dataset is a fixed set of input/target sample pairs.
type Dataset struct {
	Inputs  [][]float64
	Targets [][]float64
}

func (d Dataset) Len() int {
	return len(d.Inputs)
}

func (d Dataset) Validate() error {
	if len(d.Inputs) != len(d.Targets) {
		return fmt.Errorf("dataset has %d inputs but %d targets", len(d.Inputs), len(d.Targets))
	}
	return nil
}

// BuiltinDataset returns one of the bundled toy problems: "xor" for the
// classic non-linear classification task, "sine" for a 1D regression over
// a sampled sine wave.
func BuiltinDataset(name string) (Dataset, error) {
	switch name {
	case "xor":
		return Dataset{
			Inputs:  [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
			Targets: [][]float64{{0}, {1}, {1}, {0}},
		}, nil
	case "sine":
		const samples = 32
		d := Dataset{}
		for i := 0; i < samples; i++ {
			x := 2 * math.Pi * float64(i) / samples
			d.Inputs = append(d.Inputs, []float64{x / (2 * math.Pi)})
			d.Targets = append(d.Targets, []float64{math.Sin(x)})
		}
		return d, nil
	default:
		return Dataset{}, fmt.Errorf("unsupported dataset: %s", name)
	}
}
