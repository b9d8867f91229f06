// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/ezrec/ubatch/image"
	"github.com/ezrec/ubatch/internal/apps"
	"github.com/ezrec/ubatch/kernel"
)

func main() {
	var manifest string
	var demo bool
	var steps int
	var verbose bool
	var logfile string

	flag.StringVar(&manifest, "m", "", ".star manifest of applications to run")
	flag.BoolVar(&demo, "demo", false, "Run the demonstration applications")
	flag.IntVar(&steps, "steps", 0, "Instruction limit between traps, 0 for none")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&logfile, "log", "", "JSON log file")

	flag.Parse()

	var record io.Writer
	if len(logfile) != 0 {
		ouf, err := os.Create(logfile)
		if err != nil {
			log.Fatalf("%v: %v", logfile, err)
		}
		defer ouf.Close()
		record = ouf
	}

	logger := newLogger(os.Stderr, record, verbose)

	var images [][]byte

	if demo {
		images = append(images, apps.Binaries(apps.All())...)
	}

	if len(manifest) != 0 {
		man, err := image.LoadManifest(manifest)
		if err != nil {
			log.Fatalf("%v: %v", manifest, err)
		}
		bins, err := image.ReadApps(man.Apps)
		if err != nil {
			log.Fatalf("%v: %v", manifest, err)
		}
		images = append(images, bins...)
		if steps == 0 {
			steps = man.MaxSteps
		}
	}

	bins, err := image.ReadApps(flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	images = append(images, bins...)

	if len(images) == 0 {
		log.Fatalf("%v: no applications; use -demo, -m, or name binaries", os.Args[0])
	}

	k, err := kernel.NewKernel(kernel.Config{
		Apps:     images,
		MaxSteps: steps,
		Verbose:  verbose,
		Console:  os.Stdout,
		Logger:   logger,
	})
	if err != nil {
		log.Fatal(err)
	}

	err = k.Run()
	if err != nil {
		log.Fatal(err)
	}
}
