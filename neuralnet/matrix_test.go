package neuralnet

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// panicCause runs f and returns the error it panicked with.
func panicCause(t *testing.T, f func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		e, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		err = e
	}()
	f()
	return nil
}

func matrixOf(rows, cols int, values ...float64) *Matrix {
	m := NewMatrix(rows, cols)
	copy(m.values, values)
	return m
}

func TestMatrixSetGet(t *testing.T) {
	m := NewMatrix(2, 3)
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			assert.Zero(t, m.At(r, c))
			v := float64(r*10 + c + 1)
			m.Set(r, c, v)
			assert.Equal(t, v, m.At(r, c))
		}
	}
	assert.Equal(t, []float64{1, 2, 3, 11, 12, 13}, m.Values())
}

func TestMatrixOutOfRange(t *testing.T) {
	m := NewMatrix(2, 3)
	for _, idx := range [][2]int{{2, 0}, {0, 3}, {-1, 0}, {0, -1}, {5, 5}} {
		r, c := idx[0], idx[1]
		err := panicCause(t, func() { m.At(r, c) })
		assert.True(t, errors.Is(err, ErrOutOfRange), "At(%d,%d): %v", r, c, err)
		err = panicCause(t, func() { m.Set(r, c, 1) })
		assert.True(t, errors.Is(err, ErrOutOfRange), "Set(%d,%d): %v", r, c, err)
	}
}

func TestNewMatrixRejectsEmptyShape(t *testing.T) {
	err := panicCause(t, func() { NewMatrix(0, 3) })
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDot(t *testing.T) {
	a := matrixOf(2, 3, 1, 2, 3, 4, 5, 6)
	b := ColumnOf([]float64{7, 8, 9})
	z := Dot(a, b)
	require.Equal(t, 2, z.Rows())
	require.Equal(t, 1, z.Cols())
	assert.Equal(t, []float64{50, 122}, z.Values())
}

func TestDotMatchesGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := NewMatrix(3, 4)
	b := NewMatrix(4, 2)
	a.ShuffleFill(rng)
	b.ShuffleFill(rng)

	var want mat.Dense
	want.Mul(mat.NewDense(3, 4, a.Values()), mat.NewDense(4, 2, b.Values()))

	got := Dot(a, b)
	assert.True(t, floats.EqualApprox(want.RawMatrix().Data, got.Values(), 1e-12))
}

func TestDotDimensionMismatch(t *testing.T) {
	err := panicCause(t, func() { Dot(NewMatrix(2, 3), NewMatrix(2, 1)) })
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAdd(t *testing.T) {
	a := matrixOf(2, 2, 1, 2, 3, 4)
	b := matrixOf(2, 2, 0.5, -2, 10, 0)
	ab := Add(a, b)
	assert.Equal(t, []float64{1.5, 0, 13, 4}, ab.Values())
	assert.Equal(t, ab.Values(), Add(b, a).Values())

	var want mat.Dense
	want.Add(mat.NewDense(2, 2, a.Values()), mat.NewDense(2, 2, b.Values()))
	assert.Equal(t, want.RawMatrix().Data, ab.Values())
}

func TestAddDimensionMismatch(t *testing.T) {
	err := panicCause(t, func() { Add(NewMatrix(2, 1), NewMatrix(1, 2)) })
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAddScalar(t *testing.T) {
	m := matrixOf(1, 3, 1, 2, 3)
	m.AddScalar(-1)
	assert.Equal(t, []float64{0, 1, 2}, m.Values())
}

func TestColumnOfCopies(t *testing.T) {
	in := []float64{1, 2, 3}
	m := ColumnOf(in)
	in[0] = 100
	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, 1, m.Cols())
	assert.Equal(t, 1.0, m.At(0, 0))
}

func TestCopyIsIndependent(t *testing.T) {
	m := matrixOf(2, 1, 1, 2)
	c := m.Copy()
	c.Set(0, 0, 42)
	assert.Equal(t, 1.0, m.At(0, 0))

	v := m.Values()
	v[1] = 42
	assert.Equal(t, 2.0, m.At(1, 0))
}

func TestShuffleFill(t *testing.T) {
	a := NewMatrix(5, 5)
	b := NewMatrix(5, 5)
	a.ShuffleFill(rand.New(rand.NewSource(3)))
	b.ShuffleFill(rand.New(rand.NewSource(3)))
	assert.Equal(t, a.Values(), b.Values())
	for _, v := range a.Values() {
		assert.True(t, v >= 0 && v < 1, "value %v outside [0,1)", v)
	}
}

func TestMatrixString(t *testing.T) {
	s := matrixOf(2, 2, 1, 2, 3, 4).String()
	for _, want := range []string{"1", "2", "3", "4"} {
		assert.Contains(t, s, want)
	}
}
