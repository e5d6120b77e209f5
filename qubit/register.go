package qubit

import "fmt"

// A Register is an ordered container of qubit states, used to apply
// multi-qubit gates. Each instance owns freshly allocated states; registers
// are never shared between tiles.
type Register struct {
	qubits []BitState
}

// NewRegister returns a register of n qubits, all initialized to |0>.
func NewRegister(n int) (*Register, error) {
	if n < 1 {
		return nil, fmt.Errorf("qubit: register needs at least one qubit, got %d", n)
	}
	return &Register{qubits: make([]BitState, n)}, nil
}

// Len returns the number of qubits in the register.
func (r *Register) Len() int { return len(r.qubits) }

// Qubit returns the i-th qubit for direct inspection or single-qubit
// operations.
func (r *Register) Qubit(i int) *BitState { return &r.qubits[i] }

// TensorState builds the full 2^n-dimensional amplitude vector as the
// left-to-right Kronecker product of each qubit's amplitude pair.
func (r *Register) TensorState() []complex128 {
	state := []complex128{1}
	for _, q := range r.qubits {
		a, b := q.Amplitudes()
		state = kron(state, []complex128{a, b})
	}
	return state
}

func kron(a, b []complex128) []complex128 {
	out := make([]complex128, 0, len(a)*len(b))
	for _, x := range a {
		for _, y := range b {
			out = append(out, x*y)
		}
	}
	return out
}

// Apply applies a gate of dimension exactly 2^n to the register's tensor
// state, then writes the result back into the per-qubit states by slicing
// it into sequential amplitude pairs and re-deriving each qubit's angles
// independently.
//
// The per-qubit re-derivation discards any entanglement an entangling gate
// creates: it is a known modeling limitation of the tile hardware's
// angle-pair representation, kept deliberately.
func (r *Register) Apply(g Gate) error {
	dim := 1 << len(r.qubits)
	rows, cols := g.U.Dims()
	if rows != dim {
		return fmt.Errorf("%w: %s is %dx%d, register of %d qubits needs %dx%d",
			ErrDimension, g.Name, rows, cols, len(r.qubits), dim, dim)
	}

	vec := r.TensorState()
	out := make([]complex128, dim)
	for i := 0; i < dim; i++ {
		var sum complex128
		for k := 0; k < dim; k++ {
			sum += g.U.At(i, k) * vec[k]
		}
		out[i] = sum
	}

	for i := range r.qubits {
		r.qubits[i].SetAmplitudes(out[2*i], out[2*i+1])
	}
	return nil
}
