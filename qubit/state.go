// Package qubit models qubit states as Bloch-sphere angles and applies
// unitary gates to them. It is pure computation: the wire and tile layers
// depend on it for payload shape and state transforms, never the reverse.
package qubit

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// ErrDimension reports a unitary applied to a state of incompatible size.
// It signals a programming or configuration error, not a transient fault.
var ErrDimension = errors.New("qubit: operator dimension mismatch")

// A BitState is a single qubit in Bloch-sphere representation, with
// theta in [0, pi] and phi in [0, 2*pi). The zero value is |0>.
type BitState struct {
	theta, phi float64
}

// New constructs a canonicalized BitState. Out-of-range angles are wrapped
// modulo 2*pi, and a wrapped theta beyond pi is mirrored through the Z axis
// (theta -> 2*pi - theta, phi += pi) before the final phi wrap.
func New(theta, phi float64) BitState {
	theta = wrapTwoPi(theta)
	if theta > math.Pi {
		theta = 2*math.Pi - theta
		phi += math.Pi
	}
	return BitState{theta: theta, phi: wrapTwoPi(phi)}
}

func wrapTwoPi(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Angles returns the Bloch-sphere angles (theta, phi).
func (s BitState) Angles() (theta, phi float64) {
	return s.theta, s.phi
}

// Amplitudes returns the standard-basis amplitude pair
// (cos(theta/2), e^{i*phi} * sin(theta/2)).
func (s BitState) Amplitudes() (alpha, beta complex128) {
	alpha = complex(math.Cos(s.theta/2), 0)
	beta = cmplx.Exp(complex(0, s.phi)) * complex(math.Sin(s.theta/2), 0)
	return alpha, beta
}

// SetAmplitudes re-derives the Bloch angles from a standard-basis amplitude
// pair. The pair is normalized first, and the global phase is removed by
// dividing through by alpha/|alpha| before taking the phase of beta. When
// theta resolves to exactly 0, phi is forced to 0: phase is undefined at
// the pole.
func (s *BitState) SetAmplitudes(alpha, beta complex128) {
	norm := math.Sqrt(real(alpha)*real(alpha) + imag(alpha)*imag(alpha) +
		real(beta)*real(beta) + imag(beta)*imag(beta))
	alpha /= complex(norm, 0)
	beta /= complex(norm, 0)

	s.theta = 2 * math.Acos(cmplx.Abs(alpha))
	phase := complex(1, 0)
	if alpha != 0 {
		phase = complex(cmplx.Abs(alpha), 0) / alpha
	}
	s.phi = wrapTwoPi(cmplx.Phase(beta * phase))
	if s.theta == 0 {
		s.phi = 0
	}
}

// Vector returns the Cartesian Bloch vector (x, y, z) for the state.
func (s BitState) Vector() (x, y, z float64) {
	return math.Sin(s.theta) * math.Cos(s.phi),
		math.Sin(s.theta) * math.Sin(s.phi),
		math.Cos(s.theta)
}

// Rotate multiplies the state's amplitude pair by a 2x2 unitary. The new
// amplitudes are returned; when update is true they are also written back
// through SetAmplitudes.
func (s *BitState) Rotate(u *mat.CDense, update bool) (alpha, beta complex128, err error) {
	r, c := u.Dims()
	if r != 2 || c != 2 {
		return 0, 0, fmt.Errorf("%w: rotation matrix is %dx%d, want 2x2", ErrDimension, r, c)
	}
	a, b := s.Amplitudes()
	alpha = u.At(0, 0)*a + u.At(0, 1)*b
	beta = u.At(1, 0)*a + u.At(1, 1)*b
	if update {
		s.SetAmplitudes(alpha, beta)
	}
	return alpha, beta, nil
}

// RotX rotates the state about the X axis by phi radians.
func (s *BitState) RotX(phi float64) {
	c := complex(math.Cos(phi/2), 0)
	is := complex(0, math.Sin(phi/2))
	u := mat.NewCDense(2, 2, []complex128{
		c, -is,
		-is, c,
	})
	s.Rotate(u, true)
}

// RotY rotates the state about the Y axis by phi radians.
func (s *BitState) RotY(phi float64) {
	c := complex(math.Cos(phi/2), 0)
	sn := complex(math.Sin(phi/2), 0)
	u := mat.NewCDense(2, 2, []complex128{
		c, -sn,
		sn, c,
	})
	s.Rotate(u, true)
}

// RotZ rotates the state about the Z axis by phi radians.
func (s *BitState) RotZ(phi float64) {
	u := mat.NewCDense(2, 2, []complex128{
		cmplx.Exp(complex(0, -phi/2)), 0,
		0, cmplx.Exp(complex(0, phi/2)),
	})
	s.Rotate(u, true)
}

// Apply applies a single-qubit gate to the state in place. Gates of any
// other dimension fail with ErrDimension.
func (s *BitState) Apply(g Gate) error {
	if n := g.Qubits(); n != 1 {
		return fmt.Errorf("%w: %s acts on %d qubits, state holds 1", ErrDimension, g.Name, n)
	}
	_, _, err := s.Rotate(g.U, true)
	return err
}

func (s BitState) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", s.theta, s.phi)
}
