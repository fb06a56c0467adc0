// Command densenet trains and runs dense feed-forward networks.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"densenet/neuralnet"
)

const usage = `usage:
  densenet train -input X.txt -output Y.txt [flags]
  densenet infer -model PATH -input X.txt`

// trainConfig is the command line view of a training run.
type trainConfig struct {
	inputPath    string
	outputPath   string
	hidden       string
	activations  string
	loss         string
	modelPath    string
	resumePath   string
	gradientBias bool
	session      neuralnet.SessionConfig
}

func parseTrainFlags(args []string) (*trainConfig, error) {
	cfg := &trainConfig{session: neuralnet.DefaultSessionConfig()}
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.StringVar(&cfg.inputPath, "input", "input.txt", "dataset input file")
	fs.StringVar(&cfg.outputPath, "output", "output.txt", "dataset output file")
	fs.StringVar(&cfg.hidden, "hidden", "4,3", "comma separated hidden layer widths")
	fs.StringVar(&cfg.activations, "activations", "Sigmoid,Sigmoid,Sigmoid", "comma separated activation per non-input layer")
	fs.StringVar(&cfg.loss, "loss", "MeanSquaredError", "loss function")
	fs.StringVar(&cfg.modelPath, "model", "", "save the trained model to PATH.arch and PATH.wab")
	fs.StringVar(&cfg.resumePath, "resume", "", "continue training a saved model")
	fs.BoolVar(&cfg.gradientBias, "gradient-bias", false, "update biases with b -= lr*delta instead of assigning the delta")
	fs.IntVar(&cfg.session.Epochs, "epochs", cfg.session.Epochs, "number of epochs")
	fs.Float64Var(&cfg.session.LearningRate, "lr", cfg.session.LearningRate, "learning rate")
	fs.Float64Var(&cfg.session.LossThreshold, "threshold", cfg.session.LossThreshold, "mean loss threshold")
	fs.BoolVar(&cfg.session.StopOnThreshold, "stop", cfg.session.StopOnThreshold, "stop once the mean loss reaches -threshold")
	fs.IntVar(&cfg.session.LogEvery, "log-every", cfg.session.LogEvery, "log the mean loss every N epochs")
	fs.BoolVar(&cfg.session.Verbose, "verbose", false, "log every prediction of the last epoch")
	fs.Int64Var(&cfg.session.Seed, "seed", cfg.session.Seed, "random seed for initialisation and shuffling")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.session.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// architecture turns the flags into layer shapes and activations around the
// dataset's input and output shapes.
func (c *trainConfig) architecture(in, out neuralnet.LayerShape) ([]neuralnet.LayerShape, []neuralnet.Activation, neuralnet.Loss, error) {
	shapes := []neuralnet.LayerShape{in}
	for _, w := range splitList(c.hidden) {
		n, err := strconv.Atoi(w)
		if err != nil || n <= 0 {
			return nil, nil, neuralnet.NoLoss, fmt.Errorf("invalid hidden width %q", w)
		}
		shapes = append(shapes, neuralnet.Flat(n))
	}
	shapes = append(shapes, out)

	var acts []neuralnet.Activation
	for _, name := range splitList(c.activations) {
		a, err := neuralnet.ParseActivation(name)
		if err != nil {
			return nil, nil, neuralnet.NoLoss, err
		}
		acts = append(acts, a)
	}
	loss, err := neuralnet.ParseLoss(c.loss)
	if err != nil {
		return nil, nil, neuralnet.NoLoss, err
	}
	return shapes, acts, loss, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func train(args []string) error {
	cfg, err := parseTrainFlags(args)
	if err != nil {
		return err
	}
	samples, in, out, err := loadDataset(cfg.inputPath, cfg.outputPath)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(cfg.session.Seed))

	var model *neuralnet.DenseModel
	if cfg.resumePath != "" {
		model, err = neuralnet.Load(cfg.resumePath, rng)
	} else {
		shapes, acts, loss, aerr := cfg.architecture(in, out)
		if aerr != nil {
			return aerr
		}
		model, err = neuralnet.NewDenseModel(acts, loss, shapes, rng)
	}
	if err != nil {
		return err
	}
	if cfg.gradientBias {
		model.BiasUpdate = neuralnet.GradientStep
	}

	session, err := neuralnet.NewSession(samples, cfg.session)
	if err != nil {
		return err
	}
	log.Printf("training %d samples for %d epochs", len(samples), cfg.session.Epochs)
	result, err := session.Train(model)
	if err != nil {
		return err
	}
	log.Printf("done after %d epochs in %v: final loss %g, best loss %g", result.Epochs, result.Duration, result.FinalLoss, result.BestLoss)

	if cfg.modelPath != "" {
		if err := model.Save(cfg.modelPath); err != nil {
			return err
		}
		log.Printf("model saved to %s", cfg.modelPath)
	}
	return nil
}

func infer(args []string) error {
	fs := flag.NewFlagSet("infer", flag.ContinueOnError)
	modelPath := fs.String("model", "", "saved model path (without extension)")
	inputPath := fs.String("input", "input.txt", "dataset input file")
	seed := fs.Int64("seed", 1, "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *modelPath == "" {
		return fmt.Errorf("infer: -model is required")
	}
	model, err := neuralnet.Load(*modelPath, rand.New(rand.NewSource(*seed)))
	if err != nil {
		return err
	}
	rows, shape, err := loadTensors(*inputPath)
	if err != nil {
		return err
	}
	if want := model.Shapes()[0].Neurons(); shape.Neurons() != want {
		return fmt.Errorf("%w: %s rows have %d values, model %s takes %d",
			neuralnet.ErrDimensionMismatch, *inputPath, shape.Neurons(), *modelPath, want)
	}
	for i, row := range rows {
		fmt.Printf("%d: %v\n", i, model.Predict(rowValues(row)))
	}
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("densenet: ")
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "train":
		err = train(os.Args[2:])
	case "infer":
		err = infer(os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}
