package neuralnet

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// SessionConfig holds the hyperparameters of a training session.
type SessionConfig struct {
	Epochs       int
	LearningRate float64
	// Training stops once an epoch's mean loss is <= LossThreshold, if
	// StopOnThreshold is set.
	LossThreshold   float64
	StopOnThreshold bool
	LogEvery        int  // log the mean loss every N epochs (0 = never)
	Verbose         bool // log every sample and its prediction once training stops
	Seed            int64
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Epochs:       10000,
		LearningRate: 0.1,
		LogEvery:     1000,
		Seed:         1,
	}
}

func (c SessionConfig) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("neuralnet: epochs must be > 0, got %d", c.Epochs)
	}
	if c.LearningRate <= 0 || math.IsNaN(c.LearningRate) || math.IsInf(c.LearningRate, 0) {
		return fmt.Errorf("neuralnet: learning rate must be a positive number, got %v", c.LearningRate)
	}
	if c.LogEvery < 0 {
		return fmt.Errorf("neuralnet: log interval must be >= 0, got %d", c.LogEvery)
	}
	return nil
}

// TrainResult summarises a call to Train.
type TrainResult struct {
	Epochs      int // epochs actually run
	FinalLoss   float64
	BestLoss    float64
	LossHistory []float64 // mean loss per epoch
	Stopped     bool      // the loss threshold ended training early
	Duration    time.Duration
}

// Session owns a dataset and drives per-sample SGD over a model. It is not
// safe for concurrent use and must not share a model with another session
// while training.
type Session struct {
	dataset   []Sample
	cfg       SessionConfig
	rng       *rand.Rand
	optimizer Optimizer
}

func NewSession(dataset []Sample, cfg SessionConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(dataset) == 0 {
		return nil, errors.New("neuralnet: empty dataset")
	}
	return &Session{
		dataset:   append([]Sample(nil), dataset...),
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		optimizer: &SGD{LearningRate: cfg.LearningRate},
	}, nil
}

func (s *Session) Config() SessionConfig { return s.cfg }

func (s *Session) checkDataset(m *DenseModel) error {
	in, out := m.neurons(0), m.neurons(m.layers-1)
	for i, sample := range s.dataset {
		if len(sample.Input) != in || len(sample.Output) != out {
			return fmt.Errorf("%w: sample %d is %d->%d, model is %d->%d",
				ErrDimensionMismatch, i, len(sample.Input), len(sample.Output), in, out)
		}
	}
	return nil
}

// Train runs up to cfg.Epochs epochs. Every epoch visits the dataset in a
// fresh random order and updates the model after each sample.
func (s *Session) Train(m *DenseModel) (*TrainResult, error) {
	if err := s.checkDataset(m); err != nil {
		return nil, err
	}
	start := time.Now()
	result := &TrainResult{
		BestLoss:    math.MaxFloat64,
		LossHistory: make([]float64, 0, s.cfg.Epochs),
	}

	for e := 0; e < s.cfg.Epochs; e++ {
		s.rng.Shuffle(len(s.dataset), func(i, j int) {
			s.dataset[i], s.dataset[j] = s.dataset[j], s.dataset[i]
		})
		var loss float64
		for _, sample := range s.dataset {
			m.FeedForward(sample.Input)
			loss += m.Error(sample.Output)
			deltas := m.BackPropagate(sample.Output)
			if err := s.optimizer.Apply(m, deltas); err != nil {
				return nil, err
			}
		}

		mean := loss / float64(len(s.dataset))
		result.LossHistory = append(result.LossHistory, mean)
		result.FinalLoss = mean
		result.Epochs = e + 1
		if mean < result.BestLoss {
			result.BestLoss = mean
		}
		if s.cfg.LogEvery > 0 && e%s.cfg.LogEvery == 0 {
			logger.Printf("epoch %d done: average loss = %g", e, mean)
		}
		if s.cfg.StopOnThreshold && mean <= s.cfg.LossThreshold {
			logger.Printf("epoch %d: average loss %g reached threshold %g", e, mean, s.cfg.LossThreshold)
			result.Stopped = true
			break
		}
	}
	result.Duration = time.Since(start)
	if s.cfg.Verbose {
		s.logGuesses(m)
	}
	return result, nil
}

// logGuesses logs the trained model's prediction for every sample.
func (s *Session) logGuesses(m *DenseModel) {
	for _, sample := range s.dataset {
		logger.Printf("%v guessed: %v", sample, m.Predict(sample.Input))
	}
}
