// Command convert-labels-to-mesh builds the surface of every voxel carrying
// one of the given labels.
//
// Usage:
//
//	convert-labels-to-mesh <InputImage> <OutputMesh> <Label1> <Label2> [...LabelN]
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"labelmesh/pkg/pipeline"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func usage(w io.Writer, program string) int {
	fmt.Fprintf(w, "Usage: %s <InputImage> <OutputMesh> <Label1> <Label2> [...LabelN]\n", program)
	return 1
}

// run converts with args laid out as os.Args and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	program := "convert-labels-to-mesh"
	if len(args) > 0 {
		program = args[0]
	}
	if len(args) < 5 {
		return usage(stderr, program)
	}

	labelValues := make([]float64, 0, len(args)-3)
	for _, arg := range args[3:] {
		value, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			fmt.Fprintf(stderr, "invalid label %q\n", arg)
			return usage(stderr, program)
		}
		labelValues = append(labelValues, value)
	}

	params := pipeline.DefaultParams()
	params.InputImage = args[1]
	params.OutputMesh = args[2]
	params.LabelValues = labelValues

	converter := pipeline.NewConverter(params)
	if err := converter.ConvertLabelValues(); err != nil {
		fmt.Fprintf(stderr, "Conversion failed: %v\n", err)
		return 1
	}

	metrics := converter.Metrics()
	fmt.Fprintf(stdout, "Nodes = %d\n", metrics.Points)
	fmt.Fprintf(stdout, "Cells = %d\n", metrics.Cells)
	return 0
}
