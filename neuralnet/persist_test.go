package neuralnet

import (
	"errors"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelFiles(t *testing.T, arch, wab string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model")
	require.NoError(t, os.WriteFile(path+archExt, []byte(arch), 0o644))
	require.NoError(t, os.WriteFile(path+wabExt, []byte(wab), 0o644))
	return path
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, err := NewDenseModel([]Activation{Tanh, Relu, Sigmoid}, BinaryCrossEntropy,
		[]LayerShape{Flat(3), Flat(4), Flat(2), Flat(1)}, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "net")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path, rand.New(rand.NewSource(10)))
	require.NoError(t, err)

	assert.Equal(t, m.Layers(), loaded.Layers())
	assert.Equal(t, m.Activations(), loaded.Activations())
	assert.Equal(t, m.LossKind(), loaded.LossKind())
	for i := 0; i < m.Layers()-1; i++ {
		assert.Equal(t, m.Weights(i).Values(), loaded.Weights(i).Values())
		assert.Equal(t, m.Bias(i).Values(), loaded.Bias(i).Values())
	}

	input := []float64{0.5, -1, 2}
	want := m.Predict(input)
	got := loaded.Predict(input)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12)
	}
}

func TestSaveFormat(t *testing.T) {
	m := fixedModel(t)
	path := filepath.Join(t.TempDir(), "fixed")
	require.NoError(t, m.Save(path))

	arch, err := os.ReadFile(path + archExt)
	require.NoError(t, err)
	assert.Equal(t, "3\n2 3 1\nSigmoid Sigmoid\nMeanSquaredError\n", string(arch))

	wab, err := os.ReadFile(path + wabExt)
	require.NoError(t, err)
	assert.Equal(t, "0.1 0.2\n0.1\n0.3 0.4\n0.2\n0.5 0.6\n0.3\n0.7 0.8 0.9\n0.4\n", string(wab))
}

func TestLoadResetsScratchState(t *testing.T) {
	m := fixedModel(t)
	m.FeedForward([]float64{1, 0})
	path := filepath.Join(t.TempDir(), "fixed")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	for l := 0; l < loaded.Layers(); l++ {
		for _, v := range loaded.values[l].Values() {
			assert.Zero(t, v)
		}
		for _, v := range loaded.rawValues[l].Values() {
			assert.True(t, v >= 0 && v < 1)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent"), rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "%v", err)
}

func TestLoadMalformed(t *testing.T) {
	const arch = "3\n2 3 1\nSigmoid Sigmoid\nMeanSquaredError\n"
	const wab = "0.1 0.2\n0.1\n0.3 0.4\n0.2\n0.5 0.6\n0.3\n0.7 0.8 0.9\n0.4\n"
	tests := []struct {
		name string
		arch string
		wab  string
		file string
		line int
	}{
		{"short arch", "3\n2 3 1\n", wab, archExt, 2},
		{"bad layer count", "x\n2 3 1\nSigmoid Sigmoid\nMeanSquaredError\n", wab, archExt, 1},
		{"count mismatch", "3\n2 3\nSigmoid Sigmoid\nMeanSquaredError\n", wab, archExt, 2},
		{"zero neurons", "3\n2 0 1\nSigmoid Sigmoid\nMeanSquaredError\n", wab, archExt, 2},
		{"unknown activation", "3\n2 3 1\nSigmoid Swish\nMeanSquaredError\n", wab, archExt, 3},
		{"unset activation", "3\n2 3 1\nNoActivation Sigmoid\nMeanSquaredError\n", wab, archExt, 3},
		{"sentinel loss", "3\n2 3 1\nSigmoid Sigmoid\nCustomLoss\n", wab, archExt, 4},
		{"short wab", arch, "0.1 0.2\n0.1\n", wabExt, 2},
		{"bad weight", arch, strings.Replace(wab, "0.3 0.4", "0.3 abc", 1), wabExt, 3},
		{"bad bias", arch, strings.Replace(wab, "\n0.4\n", "\nnope\n", 1), wabExt, 8},
		{"wide row", arch, strings.Replace(wab, "0.5 0.6", "0.5 0.6 0.7", 1), wabExt, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeModelFiles(t, tt.arch, tt.wab)
			_, err := Load(path, rand.New(rand.NewSource(1)))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedModel)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "%v", err)
			assert.Equal(t, path+tt.file, pe.File)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}
