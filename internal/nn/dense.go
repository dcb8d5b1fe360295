package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"paidagogos/internal/params"
)

// Dense is a fully connected layer with a named weight matrix and bias
// vector. Weight rows are output units, columns are inputs.
type Dense struct {
	Name       string
	Activation string
	Weight     *params.Tensor
	Bias       *params.Tensor

	in, out int
}

func NewDense(name string, in, out int, activation string) (*Dense, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("layer %s: dimensions must be positive (in=%d out=%d)", name, in, out)
	}
	if _, err := GetActivation(activation); err != nil {
		return nil, fmt.Errorf("layer %s: %w", name, err)
	}
	return &Dense{
		Name:       name,
		Activation: activation,
		Weight:     params.NewTensor(out, in),
		Bias:       params.NewTensor(out),
		in:         in,
		out:        out,
	}, nil
}

func (d *Dense) forward(x []float64) (pre, post []float64, err error) {
	if len(x) != d.in {
		return nil, nil, fmt.Errorf("layer %s: input size %d, want %d", d.Name, len(x), d.in)
	}
	spec, err := GetActivation(d.Activation)
	if err != nil {
		return nil, nil, err
	}

	w := mat.NewDense(d.out, d.in, d.Weight.Data)
	var z mat.VecDense
	z.MulVec(w, mat.NewVecDense(d.in, x))

	pre = make([]float64, d.out)
	post = make([]float64, d.out)
	for i := 0; i < d.out; i++ {
		pre[i] = z.AtVec(i) + d.Bias.Data[i]
		post[i] = spec.Func(pre[i])
	}
	return pre, post, nil
}

// backward accumulates gradients for delta (dLoss/dPost) and returns
// dLoss/dInput for the layer below. Frozen tensors accumulate nothing.
func (d *Dense) backward(x, pre, delta []float64) ([]float64, error) {
	spec, err := GetActivation(d.Activation)
	if err != nil {
		return nil, err
	}

	local := make([]float64, d.out)
	for i := range local {
		local[i] = delta[i] * spec.Deriv(pre[i])
	}

	if d.Weight.RequiresGrad() {
		for i := 0; i < d.out; i++ {
			row := i * d.in
			for j := 0; j < d.in; j++ {
				d.Weight.Grad[row+j] += local[i] * x[j]
			}
		}
	}
	if d.Bias.RequiresGrad() {
		for i := 0; i < d.out; i++ {
			d.Bias.Grad[i] += local[i]
		}
	}

	w := mat.NewDense(d.out, d.in, d.Weight.Data)
	var dx mat.VecDense
	dx.MulVec(w.T(), mat.NewVecDense(d.out, local))

	out := make([]float64, d.in)
	for j := 0; j < d.in; j++ {
		out[j] = dx.AtVec(j)
	}
	return out, nil
}

// Network is an ordered stack of dense layers. It implements params.Module
// with dotted parameter names like "dense0.weight".
type Network struct {
	Layers []*Dense
}

// NewNetwork builds a stack of dense layers from the given unit sizes, so
// sizes [2, 4, 1] yields dense0 (2 -> 4) and dense1 (4 -> 1). The final
// layer uses the identity activation, hidden layers use the provided one.
func NewNetwork(sizes []int, hiddenActivation string) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("need at least input and output sizes, got %d entries", len(sizes))
	}
	// Single-layer networks replace the hidden activation with identity, so
	// check it here rather than relying on NewDense.
	if _, err := GetActivation(hiddenActivation); err != nil {
		return nil, err
	}
	net := &Network{}
	for i := 0; i+1 < len(sizes); i++ {
		activation := hiddenActivation
		if i+2 == len(sizes) {
			activation = "identity"
		}
		layer, err := NewDense(fmt.Sprintf("dense%d", i), sizes[i], sizes[i+1], activation)
		if err != nil {
			return nil, err
		}
		net.Layers = append(net.Layers, layer)
	}
	return net, nil
}

func (n *Network) NamedParameters() []params.NamedParameter {
	out := make([]params.NamedParameter, 0, 2*len(n.Layers))
	for _, layer := range n.Layers {
		out = append(out,
			params.NamedParameter{Name: layer.Name + ".weight", Param: layer.Weight},
			params.NamedParameter{Name: layer.Name + ".bias", Param: layer.Bias},
		)
	}
	return out
}

func (n *Network) Forward(x []float64) ([]float64, error) {
	current := x
	for _, layer := range n.Layers {
		_, post, err := layer.forward(current)
		if err != nil {
			return nil, err
		}
		current = post
	}
	return current, nil
}

// Loss returns the mean squared error of the network on one sample.
func (n *Network) Loss(x, target []float64) (float64, error) {
	out, err := n.Forward(x)
	if err != nil {
		return 0, err
	}
	if len(out) != len(target) {
		return 0, fmt.Errorf("output size %d, target size %d", len(out), len(target))
	}
	loss := 0.0
	for i := range out {
		diff := out[i] - target[i]
		loss += diff * diff
	}
	return loss / float64(len(out)), nil
}

// TrainStep runs one forward/backward pass on a single sample and applies a
// gradient-descent update to every parameter that still tracks gradients.
// It returns the pre-update loss.
func (n *Network) TrainStep(x, target []float64, lr float64) (float64, error) {
	inputs := make([][]float64, len(n.Layers))
	pres := make([][]float64, len(n.Layers))
	current := x
	for i, layer := range n.Layers {
		inputs[i] = current
		pre, post, err := layer.forward(current)
		if err != nil {
			return 0, err
		}
		pres[i] = pre
		current = post
	}
	if len(current) != len(target) {
		return 0, fmt.Errorf("output size %d, target size %d", len(current), len(target))
	}

	loss := 0.0
	delta := make([]float64, len(current))
	for i := range current {
		diff := current[i] - target[i]
		loss += diff * diff
		delta[i] = 2 * diff / float64(len(current))
	}
	loss /= float64(len(current))

	for i := len(n.Layers) - 1; i >= 0; i-- {
		next, err := n.Layers[i].backward(inputs[i], pres[i], delta)
		if err != nil {
			return 0, err
		}
		delta = next
	}

	for _, np := range n.NamedParameters() {
		if !np.Param.RequiresGrad() {
			continue
		}
		for i := range np.Param.Data {
			np.Param.Data[i] -= lr * np.Param.Grad[i]
		}
		np.Param.ZeroGrad()
	}
	return loss, nil
}
