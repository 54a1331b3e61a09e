// Command extract-labels-mesh builds the surface of a label set, optionally
// refines it with selective subdivision, and writes it as STL or VTK.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/unixpickle/essentials"

	"labelmesh/pkg/config"
	"labelmesh/pkg/labels"
	"labelmesh/pkg/pipeline"
	"labelmesh/pkg/subdivision"
)

func main() {
	inputImage := flag.String("input-image", "", "Labeled image file or directory of slices")
	outputMesh := flag.String("output-mesh", "", "Output mesh; names ending in stl are written as STL, others as VTK")
	labelList := flag.String("labels", "", "Comma separated labels to include")
	configPath := flag.String("config", "", "YAML configuration file")
	scheme := flag.String("scheme", "loop", "Subdivision scheme: linear, loop, butterfly or sqrt3")
	resolution := flag.Int("resolution", 0, "Number of subdivision levels")
	cellList := flag.String("cells", "", "Comma separated cells to subdivide (default: all)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: all available)")
	sliceGap := flag.Float64("gap", 1.0, "Inter-slice gap in mm for slice directory input")
	ascii := flag.Bool("ascii", false, "Write ASCII instead of binary STL")
	tagLabels := flag.Bool("tag-labels", false, "Store the label of each surface voxel as cell data")
	saveIntermediary := flag.Bool("save-intermediary", false, "Save the indicator volume and its slices")
	intermediaryDir := flag.String("intermediary-dir", "intermediary_results", "Directory for intermediary results")
	writeConfig := flag.String("write-config", "", "Write the default configuration to this file and exit")
	flag.Parse()

	if *writeConfig != "" {
		essentials.Must(config.CreateDefaultConfigFile(*writeConfig))
		fmt.Printf("Default configuration written to %s\n", *writeConfig)
		return
	}

	if *inputImage == "" || *outputMesh == "" || *labelList == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		essentials.Must(err)
	}

	// explicit flags override the configuration file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scheme":
			cfg.Subdivision.Scheme = *scheme
		case "resolution":
			cfg.Subdivision.Resolution = *resolution
		case "cells":
			cells, err := subdivision.ParseCellList(*cellList)
			if err != nil {
				log.Fatalf("Invalid --cells: %v", err)
			}
			cfg.Subdivision.Cells = cells
		case "cores":
			cfg.Processing.NumCores = *numCores
		case "gap":
			cfg.Processing.SliceGap = *sliceGap
		case "ascii":
			cfg.Output.ASCIISTL = *ascii
		case "tag-labels":
			cfg.Surface.TagLabels = *tagLabels
		case "save-intermediary":
			cfg.Output.SaveIntermediaryResults = *saveIntermediary
		case "intermediary-dir":
			cfg.Output.IntermediaryDir = *intermediaryDir
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	defer cfg.SetupLogging().Close()

	params := &pipeline.Params{
		InputImage:              *inputImage,
		OutputMesh:              *outputMesh,
		Labels:                  labels.SplitLabelList(*labelList),
		ObjectValue:             cfg.Surface.ObjectValue,
		NumCores:                cfg.Processing.NumCores,
		SliceGap:                cfg.Processing.SliceGap,
		Scheme:                  cfg.Subdivision.Scheme,
		ResolutionLevels:        cfg.Subdivision.Resolution,
		CellsToBeSubdivided:     cfg.Subdivision.Cells,
		ASCIISTL:                cfg.Output.ASCIISTL,
		TagCellsWithLabels:      cfg.Surface.TagLabels,
		CompressImages:          cfg.Output.CompressImages,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         cfg.Output.IntermediaryDir,
		Verbose:                 cfg.Output.Verbose,
	}
	if len(params.CellsToBeSubdivided) == 0 {
		params.CellsToBeSubdivided = nil
	}

	converter := pipeline.NewConverter(params)
	startTime := time.Now()
	if err := converter.ConvertLabelSet(); err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}

	fmt.Printf("Mesh written to %s in %.2f seconds\n", *outputMesh, time.Since(startTime).Seconds())
	fmt.Println(converter.Metrics())
}
