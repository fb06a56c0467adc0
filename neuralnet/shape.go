package neuralnet

import (
	"fmt"
	"strings"
)

// LayerShape is the x*y*z arrangement of a layer's neurons. Dense wiring only
// sees the flattened count.
type LayerShape struct {
	X, Y, Z int
}

func NewLayerShape(x, y, z int) LayerShape {
	return LayerShape{X: x, Y: y, Z: z}
}

// Flat is a one dimensional layer of n neurons.
func Flat(n int) LayerShape {
	return LayerShape{X: n, Y: 1, Z: 1}
}

func (s LayerShape) Neurons() int {
	return s.X * s.Y * s.Z
}

func (s LayerShape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.X, s.Y, s.Z)
}

// Sample is one labelled training example.
type Sample struct {
	Input  []float64
	Output []float64
}

func (s Sample) String() string {
	var sb strings.Builder
	sb.WriteString("input:")
	for _, v := range s.Input {
		fmt.Fprintf(&sb, " %g", v)
	}
	sb.WriteString(" output:")
	for _, v := range s.Output {
		fmt.Fprintf(&sb, " %g", v)
	}
	return sb.String()
}
