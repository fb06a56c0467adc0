package neuralnet

import (
	"fmt"
	"math"
	"strings"
)

// LossExplosion is returned by categorical cross-entropy when a target class
// is predicted with probability exactly zero.
const LossExplosion = math.MaxFloat64

// Loss is the objective minimised during training.
type Loss int

const (
	NoLoss Loss = iota
	CategoricalCrossEntropy
	BinaryCrossEntropy
	MeanSquaredError
	// CustomLoss is reserved in the model format but has no implementation.
	CustomLoss
)

var lossNames = [...]string{
	NoLoss:                  "NoLoss",
	CategoricalCrossEntropy: "CategoricalCrossEntropy",
	BinaryCrossEntropy:      "BinaryCrossEntropy",
	MeanSquaredError:        "MeanSquaredError",
	CustomLoss:              "CustomLoss",
}

func (l Loss) String() string {
	if l < 0 || int(l) >= len(lossNames) {
		return fmt.Sprintf("Loss(%d)", int(l))
	}
	return lossNames[l]
}

// Valid reports whether l can be evaluated.
func (l Loss) Valid() bool {
	switch l {
	case CategoricalCrossEntropy, BinaryCrossEntropy, MeanSquaredError:
		return true
	}
	return false
}

func ParseLoss(name string) (Loss, error) {
	for i, n := range lossNames {
		if strings.EqualFold(n, name) {
			return Loss(i), nil
		}
	}
	return NoLoss, fmt.Errorf("unknown loss %q", name)
}

// Error evaluates the loss of the predicted column vector against target.
func (l Loss) Error(predicted, target *Matrix) float64 {
	if predicted.rows != target.rows {
		panic(fmt.Errorf("%w: loss over %d predictions and %d targets", ErrDimensionMismatch, predicted.rows, target.rows))
	}
	n := predicted.rows
	var sum float64
	switch l {
	case CategoricalCrossEntropy:
		for i := 0; i < n; i++ {
			p, y := predicted.At(i, 0), target.At(i, 0)
			if p == 0 {
				if y == 0 {
					continue
				}
				return LossExplosion
			}
			sum += y * math.Log(p)
		}
		return -sum
	case BinaryCrossEntropy:
		for i := 0; i < n; i++ {
			p, y := predicted.At(i, 0), target.At(i, 0)
			sum += y*math.Log(p) + (1-y)*math.Log(1-p)
		}
		return -sum
	case MeanSquaredError:
		for i := 0; i < n; i++ {
			d := target.At(i, 0) - predicted.At(i, 0)
			sum += d * d
		}
		return sum / float64(n)
	default:
		panic(fmt.Sprintf("loss: cannot evaluate %v", l))
	}
}

// Derivative is ∂L/∂ŷ for one output neuron of an n-wide output layer.
func (l Loss) Derivative(n int, predicted, target float64) float64 {
	switch l {
	case CategoricalCrossEntropy:
		return -(target / predicted)
	case BinaryCrossEntropy:
		return -(target / predicted) + (1-target)/(1-predicted)
	case MeanSquaredError:
		return -(2 / float64(n)) * (target - predicted)
	default:
		panic(fmt.Sprintf("loss: no derivative for %v", l))
	}
}
