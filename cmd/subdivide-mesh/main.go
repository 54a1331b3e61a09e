// Command subdivide-mesh refines an existing mesh, optionally only on a
// subset of its cells, keeping one cell data value per cell.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/unixpickle/essentials"

	"labelmesh/pkg/config"
	"labelmesh/pkg/pipeline"
	"labelmesh/pkg/subdivision"
)

func main() {
	inputMesh := flag.String("input-mesh", "", "Input mesh (STL, OFF or VTK)")
	outputMesh := flag.String("output-mesh", "", "Output mesh; names ending in stl are written as STL, others as VTK")
	configPath := flag.String("config", "", "YAML configuration file")
	scheme := flag.String("scheme", "", "Subdivision scheme: linear, loop, butterfly or sqrt3")
	resolution := flag.Int("resolution", -1, "Number of subdivision levels")
	cellList := flag.String("cells", "", "Comma separated cells to subdivide (default: all)")
	ascii := flag.Bool("ascii", false, "Write ASCII instead of binary STL")
	flag.Parse()

	if *inputMesh == "" || *outputMesh == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		essentials.Must(err)
	}
	if *scheme != "" {
		cfg.Subdivision.Scheme = *scheme
	}
	if *resolution >= 0 {
		cfg.Subdivision.Resolution = *resolution
	}
	if *cellList != "" {
		cells, err := subdivision.ParseCellList(*cellList)
		if err != nil {
			log.Fatalf("Invalid --cells: %v", err)
		}
		cfg.Subdivision.Cells = cells
	}
	defer cfg.SetupLogging().Close()

	params := pipeline.DefaultParams()
	params.OutputMesh = *outputMesh
	params.Scheme = cfg.Subdivision.Scheme
	params.ResolutionLevels = cfg.Subdivision.Resolution
	params.CellsToBeSubdivided = cfg.Subdivision.Cells
	if len(params.CellsToBeSubdivided) == 0 {
		params.CellsToBeSubdivided = nil
	}
	params.ASCIISTL = *ascii || cfg.Output.ASCIISTL
	params.Verbose = cfg.Output.Verbose

	converter := pipeline.NewConverter(params)
	if err := converter.SubdivideMesh(*inputMesh); err != nil {
		log.Fatalf("Subdivision failed: %v", err)
	}
	fmt.Println(converter.Metrics())
}
