// Command classview prints the decoded bytecode and exception tables of JVM
// class files.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/nickng/trymerge/classfile/build"
)

const (
	Usage = `classview is a tool for printing the bytecode of JVM class files.

Usage:

  classview [options] file.class|file.jar|file.j [files...]

Options:

`
)

var (
	buildlogPath string
	defaultArgs  bool
	outPath      string
	viewMethod   string

	out io.Writer
)

func init() {
	flag.BoolVar(&defaultArgs, "default", true, "Skip module-info and package-info classes")
	flag.StringVar(&buildlogPath, "log", "", "Specify build log file (use '-' for stdout)")
	flag.StringVar(&outPath, "out", "", "Specify output file (default: stdout)")
	flag.StringVar(&viewMethod, "method", "", `Specify the method to view (format: pkg.Class.method or pkg/Class.method(desc))`)
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, Usage)
		flag.PrintDefaults()
		os.Exit(0)
	}

	conf := build.FromFiles(flag.Args())
	if defaultArgs {
		conf = conf.Default()
	}

	switch buildlogPath {
	case "":
	case "-":
		conf = conf.WithBuildLog(os.Stdout, log.LstdFlags)
	default:
		f, err := os.Create(buildlogPath)
		if err != nil {
			log.Fatalf("Cannot create log %s: %v", buildlogPath, err)
		}
		defer f.Close()
		conf = conf.WithBuildLog(f, log.LstdFlags)
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
	if viewMethod != "" {
		m := info.FindMethod(viewMethod)
		if m == nil {
			log.Fatalf("Cannot find method %s", viewMethod)
		}
		if _, err := m.WriteTo(out); err != nil {
			log.Fatal("Cannot write method:", err)
		}
		return
	}
	if _, err := info.WriteTo(out); err != nil {
		log.Fatal("Cannot write classes:", err)
	}
}
