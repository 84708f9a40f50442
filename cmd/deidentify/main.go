package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"mri-deid/internal/cli"
)

func main() {
	_ = godotenv.Load()

	path := flag.String("path", "", "Root path of dataset")
	pathShort := flag.String("P", "", "Root path (shorthand)")

	help := flag.Bool("help", false, "Show help message")
	helpShort := flag.Bool("h", false, "Help (shorthand)")

	flag.Usage = func() {
		cli.PrintUsage()
	}

	flag.Parse()

	if *help || *helpShort {
		cli.PrintUsage()
		return
	}

	// Merge short and long flags (prefer long if both specified)
	datasetPath := *path
	if datasetPath == "" {
		datasetPath = *pathShort
	}

	if datasetPath == "" {
		cli.PrintUsage()
		os.Exit(1)
	}

	opts := cli.Options{
		Path: datasetPath,
	}

	if err := cli.Run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
