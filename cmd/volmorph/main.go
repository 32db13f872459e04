package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"volmorph/internal/models"
	"volmorph/pkg/config"
	"volmorph/pkg/kernel"
	"volmorph/pkg/pipeline"
	"volmorph/pkg/visualization"
	"volmorph/pkg/volumeio"
)

// shortcuts are single-operation flags, applied in this order when several
// are given.
var shortcuts = []struct {
	name, tag, usage string
}{
	{"clamp", "K", "Clamp to the range (K)"},
	{"pad", "P", "Pad the border with zeros (P)"},
	{"binarize", "B", "Binarize using the range (B)"},
	{"convolve", "X", "Convolve with the kernel (X)"},
	{"erosion", "E", "Erode (E)"},
	{"dilation", "D", "Dilate (D)"},
	{"open", "O", "Open: erode then dilate (O)"},
	{"close", "C", "Close: dilate then erode (C)"},
	{"lowpass", "L", "Lowpass: erode, dilate, dilate, erode (L)"},
	{"highpass", "H", "Highpass (H, not implemented)"},
	{"distance", "F", "Distance transform (F)"},
	{"group", "G", "Label connected groups (G)"},
}

func main() {
	configPath := flag.String("config", "config.yaml", "YAML configuration file")
	writeConfig := flag.String("write-config", "", "Write a default configuration file to this path and exit")
	verbose := flag.Bool("verbose", false, "Print debug progress and volume statistics")
	clobber := flag.Bool("clobber", false, "Overwrite existing output files")
	kernelFile := flag.String("kernel", "", "Kernel file (default: six-neighbour 3D kernel)")
	floor := flag.Float64("floor", 0, "Lower bound of the intensity range")
	ceil := flag.Float64("ceil", 0, "Upper bound of the intensity range")
	groupFloor := flag.Float64("group_floor", 0, "Smallest group size kept by labelling")
	groupCeil := flag.Float64("group_ceil", 0, "Largest group size kept by labelling")
	maxGroups := flag.Int("max_groups", config.MaxGroupsLimit, "Maximum number of groups kept by labelling")
	successive := flag.String("successive", "", "Operation chain, e.g. B[0.5:1]DDG")
	extractSlices := flag.Bool("extract-slices", false, "Extract and save result slices along all axes")
	slicesDir := flag.String("slices-dir", "result_slices", "Directory to save extracted slices")
	saveIntermediary := flag.Bool("save-intermediary", false, "Save the middle slice after every operation")
	intermediaryDir := flag.String("intermediary-dir", "", "Directory to save intermediary results")
	sliceFormat := flag.String("slice-format", "", "Image extension for exported slices (png, jpg, tif)")
	physicalAspect := flag.Bool("physical-aspect", false, "Resample exported slices to the voxel aspect ratio")
	shortcutFlags := make([]*bool, len(shortcuts))
	for i, s := range shortcuts {
		shortcutFlags[i] = flag.Bool(s.name, false, s.usage)
	}
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <input.vol|slice-dir> <output.vol>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *writeConfig)
		return
	}

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags given on the command line override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "verbose":
			cfg.Output.Verbose = *verbose
		case "clobber":
			cfg.Output.Clobber = *clobber
		case "kernel":
			cfg.Processing.KernelFile = *kernelFile
		case "floor":
			cfg.Processing.Range.Floor = *floor
		case "ceil":
			cfg.Processing.Range.Ceil = *ceil
		case "group_floor":
			cfg.Processing.GroupRange.Floor = *groupFloor
		case "group_ceil":
			cfg.Processing.GroupRange.Ceil = *groupCeil
		case "max_groups":
			cfg.Processing.MaxGroups = *maxGroups
		case "successive":
			cfg.Processing.Successive = *successive
		case "save-intermediary":
			cfg.Output.SaveIntermediaryResults = *saveIntermediary
		case "intermediary-dir":
			cfg.Output.IntermediaryDir = *intermediaryDir
		case "slice-format":
			cfg.Output.SliceFormat = *sliceFormat
		case "physical-aspect":
			cfg.Output.PhysicalAspect = *physicalAspect
		}
	})
	var chain strings.Builder
	for i, s := range shortcuts {
		if *shortcutFlags[i] {
			chain.WriteString(s.tag)
		}
	}
	if chain.Len() > 0 {
		if *successive != "" {
			log.Fatalf("-successive cannot be combined with single operation flags")
		}
		cfg.Processing.Successive = chain.String()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	k := kernel.Default()
	if cfg.Processing.KernelFile != "" {
		if k, err = kernel.Read(cfg.Processing.KernelFile); err != nil {
			log.Fatalf("Failed to read kernel: %v", err)
		}
	}
	if cfg.Output.Verbose {
		fmt.Printf("Kernel:\n%s", k)
	}

	// The whole chain is checked before any volume is read.
	ops, err := pipeline.ParseChain(cfg.Processing.Successive, pipeline.DefaultsFromConfig(cfg))
	if err != nil {
		log.Fatalf("Invalid operation chain %q: %v", cfg.Processing.Successive, err)
	}
	ops, err = pipeline.Finalize(ops, outputPath, cfg.Output.Clobber)
	if err != nil {
		log.Fatalf("Cannot write output: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("VOLMORPH: KERNEL-DRIVEN VOLUME MORPHOLOGY")
	fmt.Printf("Operations: %s\n", pipeline.Format(ops))
	fmt.Println("================================")

	vol, history, err := readInput(inputPath)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	history = append(history, fmt.Sprintf("%s>>> %s", time.Now().Format(time.ANSIC), strings.Join(os.Args, " ")))

	runner := pipeline.NewRunner(&pipeline.Params{
		Kernel:                  k,
		Logger:                  logger,
		History:                 history,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         cfg.Output.IntermediaryDir,
		SliceFormat:             cfg.Output.SliceFormat,
	})

	startTime := time.Now()
	result, err := runner.Process(vol, ops)
	if err != nil {
		log.Fatalf("Processing failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nProcessing completed in %.2f seconds\n", processingTime.Seconds())
	fmt.Printf("Output volume saved to: %s\n", pipeline.OutputPath(ops))
	for i, res := range runner.Labels() {
		fmt.Printf("Label pass %d: %d groups kept, %d dropped, %d voxels labelled\n",
			i+1, len(res.Groups), res.Dropped, res.Voxels)
	}

	if *extractSlices {
		fmt.Println("\nExtracting result slices along all axes...")
		viewer := visualization.NewViewer(result)
		viewer.Labels = endsWithLabel(ops)
		viewer.PhysicalAspect = cfg.Output.PhysicalAspect
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(*slicesDir, axis)
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)
			if err := viewer.SaveSliceSequence(axis, axisDir, cfg.Output.SliceFormat); err != nil {
				log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
			}
		}
		fmt.Println("Slice extraction completed!")
	}

	if cfg.Output.SaveIntermediaryResults {
		fmt.Printf("\nIntermediary slices saved to: %s\n", cfg.Output.IntermediaryDir)
	}
}

// readInput loads a volume file, or a directory of slice images.
func readInput(path string) (*models.Volume, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		vol, err := volumeio.ReadSliceStack(path)
		return vol, nil, err
	}
	vol, hdr, err := volumeio.Read(path)
	if err != nil {
		return nil, nil, err
	}
	return vol, hdr.History, nil
}

// endsWithLabel reports whether the last operation that changes the volume
// is a label operation.
func endsWithLabel(ops []pipeline.Operation) bool {
	for i := len(ops) - 1; i >= 0; i-- {
		switch ops[i].(type) {
		case pipeline.Write, pipeline.LoadKernel:
			continue
		case pipeline.Label:
			return true
		}
		return false
	}
	return false
}
