package neuralnet

import (
	"fmt"
	"math"
	"strings"
)

// LeakyReluAlpha is the slope applied to non-positive inputs of LeakyRelu.
const LeakyReluAlpha = 0.01

// Activation is the nonlinearity applied to a layer's raw values.
type Activation int

const (
	// NoActivation marks an unset layer. Models refuse it at construction.
	NoActivation Activation = iota
	Sigmoid
	Relu
	LeakyRelu
	// Softmax is only meaningful on the output layer.
	Softmax
	Tanh
)

var activationNames = [...]string{
	NoActivation: "NoActivation",
	Sigmoid:      "Sigmoid",
	Relu:         "Relu",
	LeakyRelu:    "LeakyRelu",
	Softmax:      "Softmax",
	Tanh:         "Tanh",
}

func (a Activation) String() string {
	if a < 0 || int(a) >= len(activationNames) {
		return fmt.Sprintf("Activation(%d)", int(a))
	}
	return activationNames[a]
}

// Valid reports whether a can be used by a layer.
func (a Activation) Valid() bool {
	return a > NoActivation && int(a) < len(activationNames)
}

// ParseActivation is the inverse of String.
func ParseActivation(name string) (Activation, error) {
	for i, n := range activationNames {
		if strings.EqualFold(n, name) {
			return Activation(i), nil
		}
	}
	return NoActivation, fmt.Errorf("unknown activation %q", name)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Apply transforms z in place. Softmax works over the whole matrix and is not
// shifted by the max logit, so inputs above ~709 overflow to NaN.
func (a Activation) Apply(z *Matrix) {
	switch a {
	case Sigmoid:
		for i, v := range z.values {
			z.values[i] = sigmoid(v)
		}
	case Relu:
		for i, v := range z.values {
			z.values[i] = math.Max(v, 0)
		}
	case LeakyRelu:
		for i, v := range z.values {
			if v <= 0 {
				z.values[i] = LeakyReluAlpha * v
			}
		}
	case Softmax:
		var sum float64
		for i, v := range z.values {
			z.values[i] = math.Exp(v)
			sum += z.values[i]
		}
		for i := range z.values {
			z.values[i] /= sum
		}
	case Tanh:
		for i, v := range z.values {
			z.values[i] = math.Tanh(v)
		}
	default:
		panic(fmt.Sprintf("activation: cannot apply %v", a))
	}
}

// Derivative evaluates the activation's derivative at the pre-activation value x.
func (a Activation) Derivative(x float64) float64 {
	switch a {
	case Sigmoid, Softmax:
		// softmax borrows the sigmoid derivative
		s := sigmoid(x)
		return s * (1 - s)
	case Relu:
		if x < 0 {
			return 0
		}
		return 1
	case LeakyRelu:
		if x < 0 {
			return 0
		}
		return LeakyReluAlpha
	case Tanh:
		t := math.Tanh(x)
		return 1 - t*t
	default:
		panic(fmt.Sprintf("activation: no derivative for %v", a))
	}
}
