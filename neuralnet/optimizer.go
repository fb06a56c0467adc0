package neuralnet

import "errors"

// Optimizer applies the deltas of one back-propagation pass to a model.
type Optimizer interface {
	Apply(m *DenseModel, deltas [][]float64) error
}

// SGD implements stochastic gradient descent with a constant learning rate.
type SGD struct {
	LearningRate float64
}

// Apply updates m in place from the deltas of a single sample.
func (o *SGD) Apply(m *DenseModel, deltas [][]float64) error {
	if o.LearningRate <= 0 {
		return errors.New("neuralnet: invalid learning rate")
	}
	m.UpdateWeights(deltas, o.LearningRate)
	return nil
}
