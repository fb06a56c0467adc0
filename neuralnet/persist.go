package neuralnet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

const (
	archExt = ".arch"
	wabExt  = ".wab"
)

// ErrMalformedModel is wrapped by every ParseError.
var ErrMalformedModel = errors.New("neuralnet: malformed model file")

// ParseError locates a problem in a persisted model file.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Save writes the architecture to path.arch and the weights and biases to
// path.wab.
func (m *DenseModel) Save(path string) error {
	if err := writeFile(path+archExt, m.writeArch); err != nil {
		return err
	}
	return writeFile(path+wabExt, m.writeWab)
}

func writeFile(name string, write func(w io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}

// writeArch emits the layer count, neuron counts, activations and loss, one
// per line.
func (m *DenseModel) writeArch(w io.Writer) error {
	counts := make([]string, m.layers)
	for i, s := range m.shapes {
		counts[i] = strconv.Itoa(s.Neurons())
	}
	acts := make([]string, len(m.activations))
	for i, a := range m.activations {
		acts[i] = a.String()
	}
	_, err := fmt.Fprintf(w, "%d\n%s\n%s\n%s\n", m.layers, strings.Join(counts, " "), strings.Join(acts, " "), m.loss)
	return err
}

// writeWab emits, for every neuron of layers 1..L-1, its incoming weights on
// one line and its bias on the next.
func (m *DenseModel) writeWab(w io.Writer) error {
	for k, wm := range m.weights {
		for r := 0; r < wm.rows; r++ {
			row := make([]string, wm.cols)
			for c := 0; c < wm.cols; c++ {
				row[c] = formatFloat(wm.At(r, c))
			}
			if _, err := fmt.Fprintf(w, "%s\n%s\n", strings.Join(row, " "), formatFloat(m.biases[k].At(r, 0))); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Load rebuilds a model saved with Save. Raw values are filled from rng and
// values start at zero; neither is part of the saved state.
func Load(path string, rng *rand.Rand) (*DenseModel, error) {
	arch, err := readLines(path + archExt)
	if err != nil {
		return nil, err
	}
	acts, loss, shapes, err := arch.parseArch()
	if err != nil {
		return nil, err
	}
	m, err := newDenseModel(acts, loss, shapes)
	if err != nil {
		return nil, &ParseError{File: arch.name, Line: 1, Err: fmt.Errorf("%w: %v", ErrMalformedModel, err)}
	}

	wab, err := readLines(path + wabExt)
	if err != nil {
		return nil, err
	}
	if err := wab.parseWab(m); err != nil {
		return nil, err
	}
	for _, raw := range m.rawValues {
		raw.ShuffleFill(rng)
	}
	return m, nil
}

// lineFile holds a model file split into lines for validated parsing.
type lineFile struct {
	name  string
	lines []string
}

func readLines(name string) (*lineFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lf := &lineFile{name: name}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		lf.lines = append(lf.lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return lf, nil
}

func (lf *lineFile) errorf(line int, format string, args ...interface{}) error {
	return &ParseError{File: lf.name, Line: line, Err: fmt.Errorf("%w: "+format, append([]interface{}{ErrMalformedModel}, args...)...)}
}

// fields returns the whitespace separated tokens of 1-based line n.
func (lf *lineFile) fields(n int) []string {
	return strings.Fields(lf.lines[n-1])
}

func (lf *lineFile) parseArch() ([]Activation, Loss, []LayerShape, error) {
	if len(lf.lines) != 4 {
		return nil, NoLoss, nil, lf.errorf(len(lf.lines), "want 4 lines, got %d", len(lf.lines))
	}
	layers, err := strconv.Atoi(strings.TrimSpace(lf.lines[0]))
	if err != nil {
		return nil, NoLoss, nil, lf.errorf(1, "layer count: %v", err)
	}
	if layers < 2 {
		return nil, NoLoss, nil, lf.errorf(1, "layer count %d", layers)
	}

	counts := lf.fields(2)
	if len(counts) != layers {
		return nil, NoLoss, nil, lf.errorf(2, "want %d neuron counts, got %d", layers, len(counts))
	}
	shapes := make([]LayerShape, layers)
	for i, c := range counts {
		n, err := strconv.Atoi(c)
		if err != nil {
			return nil, NoLoss, nil, lf.errorf(2, "neuron count %d: %v", i, err)
		}
		if n <= 0 {
			return nil, NoLoss, nil, lf.errorf(2, "layer %d has %d neurons", i, n)
		}
		shapes[i] = Flat(n)
	}

	names := lf.fields(3)
	if len(names) != layers-1 {
		return nil, NoLoss, nil, lf.errorf(3, "want %d activations, got %d", layers-1, len(names))
	}
	acts := make([]Activation, len(names))
	for i, name := range names {
		a, err := ParseActivation(name)
		if err != nil {
			return nil, NoLoss, nil, lf.errorf(3, "%v", err)
		}
		if !a.Valid() {
			return nil, NoLoss, nil, lf.errorf(3, "layer %d has no activation", i+1)
		}
		acts[i] = a
	}

	loss, err := ParseLoss(strings.TrimSpace(lf.lines[3]))
	if err != nil {
		return nil, NoLoss, nil, lf.errorf(4, "%v", err)
	}
	if !loss.Valid() {
		return nil, NoLoss, nil, lf.errorf(4, "loss %v cannot be trained", loss)
	}
	return acts, loss, shapes, nil
}

func (lf *lineFile) parseWab(m *DenseModel) error {
	want := 0
	for _, w := range m.weights {
		want += 2 * w.rows
	}
	if len(lf.lines) != want {
		return lf.errorf(len(lf.lines), "want %d lines, got %d", want, len(lf.lines))
	}

	line := 1
	for k, w := range m.weights {
		for r := 0; r < w.rows; r++ {
			row := lf.fields(line)
			if len(row) != w.cols {
				return lf.errorf(line, "want %d weights, got %d", w.cols, len(row))
			}
			for c, tok := range row {
				v, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					return lf.errorf(line, "weight %d: %v", c, err)
				}
				w.Set(r, c, v)
			}
			line++

			bias := lf.fields(line)
			if len(bias) != 1 {
				return lf.errorf(line, "want 1 bias, got %d", len(bias))
			}
			v, err := strconv.ParseFloat(bias[0], 64)
			if err != nil {
				return lf.errorf(line, "bias: %v", err)
			}
			m.biases[k].Set(r, 0, v)
			line++
		}
	}
	return nil
}
