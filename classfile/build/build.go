// Package build is a helper package for loading class files into the Info of
// the parent directory.
//
// Usage
//
// There are two ways of loading classes:
//
// Load from a list of files
//
// This is the normal usage, where a number of files are supplied (usually as
// command line arguments). Each file is a compiled .class file, a .jar or
// .zip archive whose .class entries are all loaded, or a .j assembler source
// (see package asm) which is assembled before loading.
//
// Load from a Reader
//
// This is mostly used for testing or demo, where a single class file,
// archive or assembler source is read from a given io.Reader.
//
// Files that fail to load do not stop the build: the remaining classes are
// returned together with an aggregated error listing every failure.
//
package build
