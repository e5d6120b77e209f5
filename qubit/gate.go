package qubit

import (
	"math"
	"math/bits"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// A GateType identifies a gate in the catalog. The numeric value is stable:
// it is what travels on the wire in type requests and responses, and it must
// never be renumbered once tiles are in the field.
type GateType byte

const (
	Undefined GateType = 0x00
	Identity  GateType = 0x01
	PauliX    GateType = 0x02
	PauliY    GateType = 0x03
	PauliZ    GateType = 0x04
	Hadamard  GateType = 0x05
	RXPiDiv2  GateType = 0x06
	RYPiDiv2  GateType = 0x07
	RZPiDiv2  GateType = 0x08
	RXPiDiv4  GateType = 0x09
	RYPiDiv4  GateType = 0x0a
	RZPiDiv4  GateType = 0x0b
	Phase     GateType = 0x0e
	Twirl     GateType = 0x0f
	CNot      GateType = 0x41
	CZ        GateType = 0x42
	Swap      GateType = 0x43
	Toffoli   GateType = 0x81
)

// A Gate is an immutable named unitary drawn from the fixed catalog. Gates
// are only ever constructed by this package; callers obtain them through
// ByType or ByName.
type Gate struct {
	Type GateType
	Name string
	U    *mat.CDense
}

// Qubits returns the number of qubits the gate acts on.
func (g Gate) Qubits() int {
	r, _ := g.U.Dims()
	return bits.Len(uint(r)) - 1
}

func unitary(dim int, data ...complex128) *mat.CDense {
	return mat.NewCDense(dim, dim, data)
}

var (
	invSqrt2 = complex(1/math.Sqrt2, 0)
	cos8     = complex(math.Cos(math.Pi/8), 0)
	sin8     = complex(math.Sin(math.Pi/8), 0)
)

// catalog holds every operable gate, in wire-code order. Undefined carries no
// unitary and is deliberately absent. See
// https://en.wikipedia.org/wiki/Quantum_logic_gate#Representation for the
// matrix definitions.
var catalog = []Gate{
	{Identity, "IDENTITY", unitary(2,
		1, 0,
		0, 1)},
	{PauliX, "PAULI_X", unitary(2,
		0, 1,
		1, 0)},
	{PauliY, "PAULI_Y", unitary(2,
		0, -1i,
		1i, 0)},
	{PauliZ, "PAULI_Z", unitary(2,
		1, 0,
		0, -1)},
	{Hadamard, "HADAMARD", unitary(2,
		invSqrt2, invSqrt2,
		invSqrt2, -invSqrt2)},
	{RXPiDiv2, "RX_PI_DIV2", unitary(2,
		invSqrt2, -1i*invSqrt2,
		-1i*invSqrt2, invSqrt2)},
	{RYPiDiv2, "RY_PI_DIV2", unitary(2,
		invSqrt2, -invSqrt2,
		invSqrt2, invSqrt2)},
	{RZPiDiv2, "RZ_PI_DIV2", unitary(2,
		cmplx.Exp(-1i*math.Pi/4), 0,
		0, cmplx.Exp(1i*math.Pi/4))},
	{RXPiDiv4, "RX_PI_DIV4", unitary(2,
		cos8, -1i*sin8,
		-1i*sin8, cos8)},
	{RYPiDiv4, "RY_PI_DIV4", unitary(2,
		cos8, -sin8,
		sin8, cos8)},
	{RZPiDiv4, "RZ_PI_DIV4", unitary(2,
		cmplx.Exp(-1i*math.Pi/8), 0,
		0, cmplx.Exp(1i*math.Pi/8))},
	{Phase, "PHASE", unitary(2,
		1, 0,
		0, 1i)},
	{Twirl, "TWIRL", unitary(2,
		1, 0,
		0, cmplx.Exp(1i*math.Pi/4))},
	{CNot, "CONTROLLED_NOT", unitary(4,
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
		0, 0, 1, 0)},
	{CZ, "CONTROLLED_Z", unitary(4,
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, -1)},
	{Swap, "SWAP", unitary(4,
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1)},
	{Toffoli, "TOFFOLI", unitary(8,
		1, 0, 0, 0, 0, 0, 0, 0,
		0, 1, 0, 0, 0, 0, 0, 0,
		0, 0, 1, 0, 0, 0, 0, 0,
		0, 0, 0, 1, 0, 0, 0, 0,
		0, 0, 0, 0, 1, 0, 0, 0,
		0, 0, 0, 0, 0, 1, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 1,
		0, 0, 0, 0, 0, 0, 1, 0)},
}

var (
	byType = func() map[GateType]Gate {
		m := make(map[GateType]Gate, len(catalog))
		for _, g := range catalog {
			m[g.Type] = g
		}
		return m
	}()
	byName = func() map[string]Gate {
		m := make(map[string]Gate, len(catalog))
		for _, g := range catalog {
			m[g.Name] = g
		}
		return m
	}()
)

// ByType resolves a wire code to its gate. The second return is false for
// Undefined and for codes outside the catalog.
func ByType(t GateType) (Gate, bool) {
	g, ok := byType[t]
	return g, ok
}

// ByName resolves a gate name, case-insensitively, to its gate.
func ByName(name string) (Gate, bool) {
	g, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	return g, ok
}

// Types returns the wire codes of every operable gate, in catalog order.
func Types() []GateType {
	ts := make([]GateType, len(catalog))
	for i, g := range catalog {
		ts[i] = g.Type
	}
	return ts
}
