package tbs

import (
	"fmt"
	"io"
)

// Polynomial is a polynomial over the scalar field, lowest-degree
// coefficient first.
type Polynomial struct {
	coefficients []Scalar
}

// NewRandomPolynomial draws degree+1 independent uniform coefficients from r.
func NewRandomPolynomial(r io.Reader, degree int) (*Polynomial, error) {
	if degree < 0 {
		return nil, ErrInvalidParameters.WithDetails("degree must be non-negative, got %d", degree)
	}

	coefficients := make([]Scalar, degree+1)
	for i := range coefficients {
		c, err := RandomScalar(r)
		if err != nil {
			return nil, fmt.Errorf("failed to generate coefficient %d: %w", i, err)
		}
		coefficients[i] = c
	}

	return &Polynomial{coefficients: coefficients}, nil
}

// NewPolynomial wraps explicit coefficients.
func NewPolynomial(coefficients []Scalar) *Polynomial {
	if len(coefficients) == 0 {
		panic("tbs: polynomial needs at least one coefficient")
	}
	cp := make([]Scalar, len(coefficients))
	copy(cp, coefficients)
	return &Polynomial{coefficients: cp}
}

// Evaluate evaluates the polynomial at x
func (p *Polynomial) Evaluate(x Scalar) Scalar {
	if len(p.coefficients) == 0 {
		panic("tbs: evaluating an empty polynomial")
	}

	// Horner: f(x) = a0 + x(a1 + x(a2 + ...))
	result := p.coefficients[len(p.coefficients)-1]
	for i := len(p.coefficients) - 2; i >= 0; i-- {
		result = result.Mul(x).Add(p.coefficients[i])
	}
	return result
}

// EvaluateAt evaluates the polynomial at a share index.
func (p *Polynomial) EvaluateAt(i ShareIndex) Scalar {
	return p.Evaluate(i.scalar())
}

// Secret returns f(0).
func (p *Polynomial) Secret() Scalar {
	return p.coefficients[0]
}

// Degree returns the degree of the polynomial
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}

// Zeroize securely clears the polynomial coefficients
func (p *Polynomial) Zeroize() {
	for i := range p.coefficients {
		p.coefficients[i].Zeroize()
	}
	p.coefficients = nil
}
