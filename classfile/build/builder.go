package build

import (
	"archive/zip"
	"bytes"
	"io"
	"io/ioutil"
	"path"
	"strings"

	"github.com/nickng/trymerge/bytecode/asm"
	"github.com/nickng/trymerge/classfile"
	"github.com/pkg/errors"
)

var (
	zipMagic   = []byte("PK\x03\x04")
	classMagic = []byte{0xca, 0xfe, 0xba, 0xbe}
)

// readerOrigin names classes loaded through FromReader.
const readerOrigin = "<reader>"

// Builder loads classes and metainfo.
type Builder interface {
	Build() (*classfile.Info, error)
}

// emitFunc receives each class image found in a source, or the error that
// prevented reading it.
type emitFunc func(origin string, data []byte, err error)

// FileSrc is a set of filenames.
type FileSrc struct {
	Files []string
}

// FromFiles returns a non-nil Builder from a slice of filenames.
func FromFiles(files []string) Configurer {
	return newConfig(&FileSrc{Files: files})
}

func (s *FileSrc) visit(emit emitFunc) {
	for _, file := range s.Files {
		data, err := ioutil.ReadFile(file)
		if err != nil {
			emit(file, nil, errors.Wrapf(err, "failed to read from file: %s", file))
			continue
		}
		expand(file, data, emit)
	}
}

// CachedSrc is class data from a reader.
type CachedSrc struct {
	cached []byte
	err    error
}

// FromReader returns a non-nil Builder for a reader.
// This is typically used for testing or loading a single class.
func FromReader(r io.Reader) Configurer {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		err = errors.Wrap(err, "failed to read from reader")
	}
	return newConfig(&CachedSrc{cached: b, err: err})
}

func (s *CachedSrc) visit(emit emitFunc) {
	if s.err != nil {
		emit(readerOrigin, nil, s.err)
		return
	}
	expand(readerOrigin, s.cached, emit)
}

// expand emits the class images held by data: the .class entries of an
// archive, the assembled class of an assembler source, or data itself.
func expand(origin string, data []byte, emit emitFunc) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			emit(origin, nil, errors.Wrap(err, "bad archive"))
			return
		}
		for _, f := range zr.File {
			if f.FileInfo().IsDir() || path.Ext(f.Name) != ".class" {
				continue
			}
			entry := origin + "!" + f.Name
			b, err := readEntry(f)
			emit(entry, b, err)
		}
	case bytes.HasPrefix(data, classMagic):
		emit(origin, data, nil)
	case strings.HasSuffix(origin, ".j"), origin == readerOrigin:
		b, err := asm.Assemble(data)
		emit(origin, b, err)
	default:
		emit(origin, data, nil)
	}
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ioutil.ReadAll(rc)
}
