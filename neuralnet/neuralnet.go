package neuralnet

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strings"
)

// ErrInvalidArchitecture is returned when a model cannot be built from the
// given activations, loss and shapes.
var ErrInvalidArchitecture = errors.New("neuralnet: invalid architecture")

var logger = log.New(os.Stderr, "neuralnet: ", log.LstdFlags)

// SetLogger redirects the package's training logs. A nil logger discards them.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	logger = l
}

// BiasUpdate selects how UpdateWeights changes biases.
type BiasUpdate int

const (
	// AssignDelta overwrites each bias with its neuron's delta. It ignores the
	// learning rate and the previous bias and is the historical behaviour
	// saved models were trained with.
	AssignDelta BiasUpdate = iota
	// GradientStep applies b -= lr*delta.
	GradientStep
)

// DenseModel is a fully connected feed-forward network.
//
// Layer 0 is the input. weights[k] has shape (neurons[k+1], neurons[k]) and
// connects layer k to layer k+1, so the matrix feeding layer l sits at index
// l-1; use feeding, biasOf and activationOf instead of indexing directly.
type DenseModel struct {
	layers      int
	loss        Loss
	shapes      []LayerShape
	activations []Activation
	weights     []*Matrix
	biases      []*Matrix
	// scratch state of the last FeedForward
	rawValues []*Matrix
	values    []*Matrix

	BiasUpdate BiasUpdate
}

// NewDenseModel builds a model with len(shapes) layers whose weights and
// biases are drawn from rng.
func NewDenseModel(activations []Activation, loss Loss, shapes []LayerShape, rng *rand.Rand) (*DenseModel, error) {
	m, err := newDenseModel(activations, loss, shapes)
	if err != nil {
		return nil, err
	}
	for i := range m.weights {
		m.weights[i].ShuffleFill(rng)
		m.biases[i].ShuffleFill(rng)
	}
	return m, nil
}

func validateArchitecture(activations []Activation, loss Loss, shapes []LayerShape) error {
	if len(shapes) < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrInvalidArchitecture, len(shapes))
	}
	if len(activations) != len(shapes)-1 {
		return fmt.Errorf("%w: %d layers need %d activations, got %d",
			ErrInvalidArchitecture, len(shapes), len(shapes)-1, len(activations))
	}
	for i, s := range shapes {
		if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
			return fmt.Errorf("%w: layer %d has shape %v", ErrInvalidArchitecture, i, s)
		}
	}
	for i, a := range activations {
		if !a.Valid() {
			return fmt.Errorf("%w: layer %d activation %v", ErrInvalidArchitecture, i+1, a)
		}
	}
	if !loss.Valid() {
		return fmt.Errorf("%w: loss %v", ErrInvalidArchitecture, loss)
	}
	return nil
}

// newDenseModel allocates a validated model with zero weights and biases.
func newDenseModel(activations []Activation, loss Loss, shapes []LayerShape) (*DenseModel, error) {
	if err := validateArchitecture(activations, loss, shapes); err != nil {
		return nil, err
	}
	layers := len(shapes)
	m := &DenseModel{
		layers:      layers,
		loss:        loss,
		shapes:      append([]LayerShape(nil), shapes...),
		activations: append([]Activation(nil), activations...),
		weights:     make([]*Matrix, layers-1),
		biases:      make([]*Matrix, layers-1),
		rawValues:   make([]*Matrix, layers),
		values:      make([]*Matrix, layers),
	}
	for i, s := range shapes {
		m.rawValues[i] = NewMatrix(s.Neurons(), 1)
		m.values[i] = NewMatrix(s.Neurons(), 1)
	}
	for i := 0; i < layers-1; i++ {
		m.weights[i] = NewMatrix(shapes[i+1].Neurons(), shapes[i].Neurons())
		m.biases[i] = NewMatrix(shapes[i+1].Neurons(), 1)
	}
	return m, nil
}

func (m *DenseModel) feeding(l int) *Matrix         { return m.weights[l-1] }
func (m *DenseModel) biasOf(l int) *Matrix          { return m.biases[l-1] }
func (m *DenseModel) activationOf(l int) Activation { return m.activations[l-1] }

func (m *DenseModel) neurons(l int) int { return m.shapes[l].Neurons() }

// FeedForward propagates input through every layer. An input whose length
// differs from the input layer is ignored and the previous state is kept.
func (m *DenseModel) FeedForward(input []float64) {
	if len(input) != m.neurons(0) {
		return
	}
	m.values[0] = ColumnOf(input)
	m.rawValues[0] = ColumnOf(input)
	for l := 1; l < m.layers; l++ {
		raw := Add(Dot(m.feeding(l), m.values[l-1]), m.biasOf(l))
		m.rawValues[l] = raw.Copy()
		m.activationOf(l).Apply(raw)
		m.values[l] = raw
	}
}

// Result returns a copy of the output layer's values.
func (m *DenseModel) Result() *Matrix {
	return m.values[m.layers-1].Copy()
}

// Predict runs a forward pass and returns the output as a slice.
func (m *DenseModel) Predict(input []float64) []float64 {
	m.FeedForward(input)
	return m.values[m.layers-1].Values()
}

// Error is the model's loss of the current output against target.
func (m *DenseModel) Error(target []float64) float64 {
	return m.loss.Error(m.values[m.layers-1], ColumnOf(target))
}

// BackPropagate returns one delta per neuron for layers 1..L-1, indexed
// deltas[layer][neuron]. deltas[0] is empty. It reads the state left by the
// last FeedForward.
func (m *DenseModel) BackPropagate(target []float64) [][]float64 {
	last := m.layers - 1
	if len(target) != m.neurons(last) {
		panic(fmt.Errorf("%w: target has %d values, output layer has %d neurons",
			ErrDimensionMismatch, len(target), m.neurons(last)))
	}

	deltas := make([][]float64, m.layers)
	deltas[0] = []float64{}
	for l := last; l >= 1; l-- {
		width := m.neurons(l)
		act := m.activationOf(l)
		deltas[l] = make([]float64, width)
		for i := 0; i < width; i++ {
			local := act.Derivative(m.rawValues[l].At(i, 0))
			if l == last {
				deltas[l][i] = local * m.loss.Derivative(width, m.values[l].At(i, 0), target[i])
				continue
			}
			next := m.feeding(l + 1)
			var downstream float64
			for j := 0; j < m.neurons(l+1); j++ {
				downstream += deltas[l+1][j] * next.At(j, i)
			}
			deltas[l][i] = local * downstream
		}
	}
	return deltas
}

// UpdateWeights applies one gradient descent step from deltas produced by
// BackPropagate. Biases follow m.BiasUpdate.
func (m *DenseModel) UpdateWeights(deltas [][]float64, learningRate float64) {
	if len(deltas) != m.layers {
		panic(fmt.Errorf("%w: %d delta layers for a %d layer model", ErrDimensionMismatch, len(deltas), m.layers))
	}
	for l := m.layers - 1; l >= 1; l-- {
		w := m.feeding(l)
		b := m.biasOf(l)
		prev := m.values[l-1]
		for i := 0; i < m.neurons(l); i++ {
			delta := deltas[l][i]
			switch m.BiasUpdate {
			case GradientStep:
				b.Set(i, 0, b.At(i, 0)-learningRate*delta)
			default:
				b.Set(i, 0, delta)
			}
			for j := 0; j < m.neurons(l-1); j++ {
				w.Set(i, j, w.At(i, j)-learningRate*prev.At(j, 0)*delta)
			}
		}
	}
}

func (m *DenseModel) Layers() int    { return m.layers }
func (m *DenseModel) LossKind() Loss { return m.loss }

func (m *DenseModel) Shapes() []LayerShape {
	return append([]LayerShape(nil), m.shapes...)
}

func (m *DenseModel) Activations() []Activation {
	return append([]Activation(nil), m.activations...)
}

// Weights returns a copy of the matrix connecting layer i to layer i+1.
func (m *DenseModel) Weights(i int) *Matrix { return m.weights[i].Copy() }

// Bias returns a copy of the bias column of layer i+1.
func (m *DenseModel) Bias(i int) *Matrix { return m.biases[i].Copy() }

// SetWeights replaces the matrix connecting layer i to layer i+1.
func (m *DenseModel) SetWeights(i int, w *Matrix) error {
	cur := m.weights[i]
	if w.rows != cur.rows || w.cols != cur.cols {
		return fmt.Errorf("%w: weights %d want %dx%d, got %dx%d", ErrDimensionMismatch, i, cur.rows, cur.cols, w.rows, w.cols)
	}
	m.weights[i] = w.Copy()
	return nil
}

// SetBias replaces the bias column of layer i+1.
func (m *DenseModel) SetBias(i int, b *Matrix) error {
	cur := m.biases[i]
	if b.rows != cur.rows || b.cols != cur.cols {
		return fmt.Errorf("%w: bias %d want %dx%d, got %dx%d", ErrDimensionMismatch, i, cur.rows, cur.cols, b.rows, b.cols)
	}
	m.biases[i] = b.Copy()
	return nil
}

// Debug
func (m *DenseModel) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DenseModel %d layers, loss %v\n", m.layers, m.loss)
	for l := 0; l < m.layers; l++ {
		fmt.Fprintf(&sb, "Layer %d (%v neurons", l, m.shapes[l])
		if l > 0 {
			fmt.Fprintf(&sb, ", %v", m.activationOf(l))
		}
		sb.WriteString("):\n")
		if l > 0 {
			fmt.Fprintf(&sb, "weights:\n%v\nbias:\n%v\n", m.feeding(l), m.biasOf(l))
		}
		fmt.Fprintf(&sb, "values:\n%v\n", m.values[l])
	}
	return sb.String()
}
