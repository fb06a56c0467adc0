package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gorgonia.org/tensor"

	"densenet/neuralnet"
)

// loadTensors reads a dataset file: a "<count> <x> <y> <z>" header followed
// by count rows of x*y*z floats. Every row becomes a tensor shaped (x, y, z).
func loadTensors(filePath string) ([]tensor.Tensor, neuralnet.LayerShape, error) {
	var shape neuralnet.LayerShape
	file, err := os.Open(filePath)
	if err != nil {
		return nil, shape, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, shape, fmt.Errorf("%s: %w", filePath, err)
		}
		return nil, shape, fmt.Errorf("%s: missing header", filePath)
	}
	header, err := parseInts(scanner.Text())
	if err != nil || len(header) != 4 {
		return nil, shape, fmt.Errorf("%s:1: header must be \"<count> <x> <y> <z>\"", filePath)
	}
	count := header[0]
	shape = neuralnet.NewLayerShape(header[1], header[2], header[3])
	if count <= 0 || shape.X <= 0 || shape.Y <= 0 || shape.Z <= 0 {
		return nil, shape, fmt.Errorf("%s:1: invalid header %v", filePath, header)
	}

	rows := make([]tensor.Tensor, 0, count)
	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		values, err := parseFloats(text)
		if err != nil {
			return nil, shape, fmt.Errorf("%s:%d: %w", filePath, line, err)
		}
		t, err := newRow(shape, values)
		if err != nil {
			return nil, shape, fmt.Errorf("%s:%d: want %d values, got %d: %w", filePath, line, shape.Neurons(), len(values), err)
		}
		rows = append(rows, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, shape, fmt.Errorf("%s: %w", filePath, err)
	}
	if len(rows) != count {
		return nil, shape, fmt.Errorf("%s: header announces %d samples, found %d", filePath, count, len(rows))
	}
	return rows, shape, nil
}

// newRow wraps values in a tensor shaped (x, y, z). tensor.New panics when
// the backing length disagrees with the shape; that panic comes back as err.
func newRow(shape neuralnet.LayerShape, values []float64) (t tensor.Tensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return tensor.New(tensor.Of(tensor.Float64), tensor.WithShape(shape.X, shape.Y, shape.Z), tensor.WithBacking(values)), nil
}

// loadDataset pairs the rows of an input file with the rows of an output file.
func loadDataset(inputPath, outputPath string) ([]neuralnet.Sample, neuralnet.LayerShape, neuralnet.LayerShape, error) {
	inputs, inShape, err := loadTensors(inputPath)
	if err != nil {
		return nil, inShape, neuralnet.LayerShape{}, err
	}
	outputs, outShape, err := loadTensors(outputPath)
	if err != nil {
		return nil, inShape, outShape, err
	}
	if len(inputs) != len(outputs) {
		return nil, inShape, outShape, fmt.Errorf("%d input samples but %d output samples", len(inputs), len(outputs))
	}

	samples := make([]neuralnet.Sample, len(inputs))
	for i := range inputs {
		samples[i] = neuralnet.Sample{
			Input:  rowValues(inputs[i]),
			Output: rowValues(outputs[i]),
		}
	}
	return samples, inShape, outShape, nil
}

// rowValues returns the backing slice of a row built by newRow. Every row owns
// its slice, so it is handed out without copying.
func rowValues(t tensor.Tensor) []float64 {
	return t.Data().([]float64)
}

func parseInts(line string) ([]int, error) {
	fields := strings.Fields(line)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(line string) ([]float64, error) {
	fields := strings.Fields(line)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
