// Command binarize-mesh marks the voxels of a reference image grid that lie
// inside a closed surface mesh and writes them as an unsigned char image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"labelmesh/pkg/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args and binarizes the mesh, returning the process exit code:
// 0 on success or --help, 1 when binarization fails and 2 for bad flags.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("binarize-mesh", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputMesh := fs.String("input-mesh", "", "Filename of the input mesh.")
	referenceImage := fs.String("reference-image", "", "Filename of the reference image.")
	outputImage := fs.String("output-image", "", "Filename of the output image.")
	numCores := fs.Int("cores", runtime.NumCPU(), "Number of CPU cores to use")
	verbose := fs.Bool("verbose", false, "Log progress")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	required := []struct {
		name  string
		value string
	}{
		{"input-mesh", *inputMesh},
		{"reference-image", *referenceImage},
		{"output-image", *outputImage},
	}
	for _, r := range required {
		if r.value == "" {
			fmt.Fprintf(stderr, "the option '--%s' is required but missing\n", r.name)
			fs.Usage()
			return 2
		}
	}

	params := pipeline.DefaultParams()
	params.NumCores = *numCores
	params.Verbose = *verbose

	converter := pipeline.NewConverter(params)
	if err := converter.BinarizeMesh(*inputMesh, *referenceImage, *outputImage); err != nil {
		fmt.Fprintf(stderr, "Binarization failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote %s\n", *outputImage)
	return 0
}
