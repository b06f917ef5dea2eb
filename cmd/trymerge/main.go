// Command trymerge reports adjacent try blocks of JVM class files that could
// be merged into one.
package main

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/nickng/trymerge/classfile/build"
	"github.com/nickng/trymerge/report"
	"github.com/nickng/trymerge/trymerge"
)

const (
	Usage = `trymerge is a tool for finding stacked try blocks in JVM class files.

Usage:

  trymerge [options] file.class|file.jar|file.j [files...]

Options:

`
)

var (
	logPath   string
	outPath   string
	entry     string
	useJSON   bool
	showStats bool
	useColor  bool
	logFile   string
	logWriter = ioutil.Discard

	out io.Writer
)

func init() {
	flag.StringVar(&logPath, "log", "", "Specify analysis log file (use '-' for stderr)")
	flag.StringVar(&outPath, "out", "", "Specify output file (default: stdout)")
	flag.StringVar(&entry, "class", "", "Only analyse this class or method (format: pkg.Class or pkg.Class.method)")
	flag.BoolVar(&useJSON, "json", false, "Write findings as JSON, one per line")
	flag.BoolVar(&showStats, "stats", false, "Print method statistics after the findings")
	flag.BoolVar(&useColor, "color", false, "Colour text output")
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, Usage)
		flag.PrintDefaults()
		os.Exit(0)
	}

	conf := build.FromFiles(flag.Args()).Default()
	switch logPath {
	case "":
	case "-":
		logWriter = os.Stderr
		conf = conf.WithBuildLog(logWriter, log.LstdFlags)
	default:
		f, err := os.Create(logPath)
		if err != nil {
			log.Fatalf("Cannot create log %s: %v", logPath, err)
		}
		defer f.Close()
		conf = conf.WithBuildLog(f, log.LstdFlags)
		logWriter = f
		logFile = f.Name()
	}

	switch outPath {
	case "":
		out = os.Stdout
	default:
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatalf("Cannot create output file %s: %v", outPath, err)
		}
		defer f.Close()
		out = f
	}

	info, err := conf.Build()
	if err != nil {
		log.Println("Some classes were skipped:", err)
	}
	if len(info.Classes) == 0 {
		log.Fatal("No classes to analyse")
	}

	detector := trymerge.New(info, logWriter)
	if logFile != "" {
		detector.AddLogFiles(logFile)
	}
	color.NoColor = !useColor || useJSON
	if err := detector.SetEntryClass(entry); err != nil {
		log.Fatalf("Cannot find entry class or method: %v", err)
	}

	text, jsonr := report.NewTextReporter(out), report.NewJSONReporter(out)
	detector.SetReporter(text)
	if useJSON {
		detector.SetReporter(jsonr)
	}
	detector.Analyse()
	for _, err := range []error{text.Err, jsonr.Err} {
		if err != nil {
			log.Fatal("Cannot write findings:", err)
		}
	}

	if showStats {
		if useJSON {
			fmt.Fprint(os.Stderr, detector.Stats())
		} else {
			fmt.Fprint(out, detector.Stats())
		}
	}
}
