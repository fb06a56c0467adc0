package neuralnet

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrOutOfRange is the panic cause of an index outside the matrix bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")
	// ErrDimensionMismatch is the panic cause of incompatible operand shapes.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")
)

// Matrix is a dense row-major matrix. Element (r, c) lives at values[r*cols+c].
// Shape errors are programming errors and panic.
type Matrix struct {
	rows   int
	cols   int
	values []float64
}

func NewMatrix(rows, cols int) *Matrix {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Errorf("%w: cannot allocate %dx%d", ErrDimensionMismatch, rows, cols))
	}
	return &Matrix{
		rows:   rows,
		cols:   cols,
		values: make([]float64, rows*cols),
	}
}

// ColumnOf wraps values as a (len(values), 1) column vector. The slice is copied.
func ColumnOf(values []float64) *Matrix {
	m := NewMatrix(len(values), 1)
	copy(m.values, values)
	return m
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// Values returns a copy of the row-major backing slice.
func (m *Matrix) Values() []float64 {
	out := make([]float64, len(m.values))
	copy(out, m.values)
	return out
}

func (m *Matrix) check(r, c int) {
	if r < 0 || c < 0 || r >= m.rows || c >= m.cols {
		panic(fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfRange, r, c, m.rows, m.cols))
	}
}

func (m *Matrix) At(r, c int) float64 {
	m.check(r, c)
	return m.values[r*m.cols+c]
}

func (m *Matrix) Set(r, c int, v float64) {
	m.check(r, c)
	m.values[r*m.cols+c] = v
}

// Copy returns an independent deep clone.
func (m *Matrix) Copy() *Matrix {
	out := &Matrix{rows: m.rows, cols: m.cols, values: make([]float64, len(m.values))}
	copy(out.values, m.values)
	return out
}

// Dot returns the matrix product a·b. a.Cols() must equal b.Rows().
func Dot(a, b *Matrix) *Matrix {
	if a.cols != b.rows {
		panic(fmt.Errorf("%w: dot %dx%d by %dx%d", ErrDimensionMismatch, a.rows, a.cols, b.rows, b.cols))
	}
	z := NewMatrix(a.rows, b.cols)
	for r := 0; r < a.rows; r++ {
		for c := 0; c < b.cols; c++ {
			var sum float64
			for n := 0; n < a.cols; n++ {
				sum += a.values[r*a.cols+n] * b.values[n*b.cols+c]
			}
			z.values[r*z.cols+c] = sum
		}
	}
	return z
}

// Add returns the elementwise sum of two matrices of identical shape.
func Add(a, b *Matrix) *Matrix {
	if a.rows != b.rows || a.cols != b.cols {
		panic(fmt.Errorf("%w: add %dx%d and %dx%d", ErrDimensionMismatch, a.rows, a.cols, b.rows, b.cols))
	}
	z := NewMatrix(a.rows, a.cols)
	for i := range z.values {
		z.values[i] = a.values[i] + b.values[i]
	}
	return z
}

// AddScalar adds b to every element in place.
func (m *Matrix) AddScalar(b float64) {
	for i := range m.values {
		m.values[i] += b
	}
}

// ShuffleFill overwrites every element with an independent draw from [0,1).
// Used to initialise weights and biases and to seed a loaded model's raw values.
func (m *Matrix) ShuffleFill(rng *rand.Rand) {
	for i := range m.values {
		m.values[i] = rng.Float64()
	}
}

func (m *Matrix) String() string {
	d := mat.NewDense(m.rows, m.cols, m.Values())
	return fmt.Sprintf("%v", mat.Formatted(d, mat.Squeeze()))
}
