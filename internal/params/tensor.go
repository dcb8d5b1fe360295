package params

import "fmt"

// Tensor is the mutable value handle behind one named parameter. Policies
// mutate it in place; they never own it.
type Tensor struct {
	Data  []float64
	Shape []int
	Grad  []float64

	requiresGrad bool
}

// NewTensor allocates a zeroed tensor with gradient tracking enabled.
func NewTensor(shape ...int) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return &Tensor{
		Data:         make([]float64, size),
		Shape:        append([]int(nil), shape...),
		Grad:         make([]float64, size),
		requiresGrad: true,
	}
}

func (t *Tensor) Size() int {
	return len(t.Data)
}

func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

func (t *Tensor) SetRequiresGrad(v bool) {
	t.requiresGrad = v
}

func (t *Tensor) ZeroGrad() {
	for i := range t.Grad {
		t.Grad[i] = 0
	}
}

// Transform mutates a tensor in place. It is the unit of work a parameter
// scheduler applies to every matched parameter.
type Transform func(*Tensor)

// Noop is the default transform; applying it changes nothing.
func Noop(*Tensor) {}

// Freeze disables gradient tracking so the optimizer skips the parameter.
func Freeze(t *Tensor) {
	t.SetRequiresGrad(false)
	t.ZeroGrad()
}

// Unfreeze re-enables gradient tracking.
func Unfreeze(t *Tensor) {
	t.SetRequiresGrad(true)
}

// NamedParameter pairs a stable dotted name (for example "dense0.weight")
// with its tensor handle.
type NamedParameter struct {
	Name  string
	Param *Tensor
}

// Module is the opaque named-parameter store policies operate on.
type Module interface {
	NamedParameters() []NamedParameter
}

// Saved is the serializable form of one parameter.
type Saved struct {
	Name         string    `json:"name"`
	Shape        []int     `json:"shape"`
	Data         []float64 `json:"data"`
	RequiresGrad bool      `json:"requires_grad"`
}

// Snapshot captures the current parameter state of a module.
func Snapshot(m Module) []Saved {
	named := m.NamedParameters()
	out := make([]Saved, 0, len(named))
	for _, np := range named {
		out = append(out, Saved{
			Name:         np.Name,
			Shape:        append([]int(nil), np.Param.Shape...),
			Data:         append([]float64(nil), np.Param.Data...),
			RequiresGrad: np.Param.RequiresGrad(),
		})
	}
	return out
}

// Restore writes a snapshot back into a module in place. Every saved entry
// must match an existing parameter of the same size.
func Restore(m Module, saved []Saved) error {
	byName := make(map[string]*Tensor)
	for _, np := range m.NamedParameters() {
		byName[np.Name] = np.Param
	}
	for _, s := range saved {
		tensor, ok := byName[s.Name]
		if !ok {
			return fmt.Errorf("restore: module has no parameter %q", s.Name)
		}
		if len(s.Data) != len(tensor.Data) {
			return fmt.Errorf("restore: parameter %q size mismatch: got %d want %d",
				s.Name, len(s.Data), len(tensor.Data))
		}
		copy(tensor.Data, s.Data)
		tensor.SetRequiresGrad(s.RequiresGrad)
	}
	return nil
}
