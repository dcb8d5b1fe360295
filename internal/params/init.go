package params

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Uniform returns a transform that overwrites every element with a sample
// from U(min, max).
func Uniform(min, max float64, seed uint64) Transform {
	dist := distuv.Uniform{Min: min, Max: max, Src: rand.NewSource(seed)}
	return func(t *Tensor) {
		for i := range t.Data {
			t.Data[i] = dist.Rand()
		}
	}
}

// Normal returns a transform that overwrites every element with a sample
// from N(mu, sigma).
func Normal(mu, sigma float64, seed uint64) Transform {
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: rand.NewSource(seed)}
	return func(t *Tensor) {
		for i := range t.Data {
			t.Data[i] = dist.Rand()
		}
	}
}

// XavierUniform samples from U(-limit, limit) with limit derived from the
// tensor's fan-in and fan-out. One-dimensional tensors (biases) use their
// length as both.
func XavierUniform(seed uint64) Transform {
	src := rand.NewSource(seed)
	return func(t *Tensor) {
		fanIn, fanOut := fans(t.Shape)
		limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
		dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}
		for i := range t.Data {
			t.Data[i] = dist.Rand()
		}
	}
}

func fans(shape []int) (fanIn, fanOut int) {
	switch len(shape) {
	case 0:
		return 1, 1
	case 1:
		return shape[0], shape[0]
	default:
		return shape[len(shape)-1], shape[0]
	}
}
