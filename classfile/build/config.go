package build

import (
	"io"
	"io/ioutil"
	"log"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/nickng/trymerge/classfile"
	"github.com/pkg/errors"
)

// srcReader is a wrapper for class data which can be visited entry by entry.
type srcReader interface {
	visit(emit emitFunc)
}

type Configurer interface {
	Builder
	Default() Configurer
	AddBadClass(name, reason string) Configurer
	WithBuildLog(l io.Writer, flags int) Configurer
}

// Config represents a build configuration.
type Config struct {
	badClasses map[string]string

	bldLog    io.Writer // Build log.
	bldLFlags int       // Build log flags.

	src srcReader // src points to the class data.
}

func newConfig(src srcReader) *Config {
	return &Config{
		badClasses: make(map[string]string),
		bldLog:     ioutil.Discard,
		bldLFlags:  log.LstdFlags,
		src:        src,
	}
}

// WithBuildLog adds build log to config.
func (c *Config) WithBuildLog(l io.Writer, flags int) Configurer {
	c.bldLog = l
	c.bldLFlags = flags
	return c
}

// AddBadClass marks a class 'bad' to avoid loading. name is an internal
// class name (com/example/Foo), a simple class name (package-info) or a
// package (com/example), which excludes every class below it.
func (c *Config) AddBadClass(name, reason string) Configurer {
	c.badClasses[strings.Replace(name, ".", "/", -1)] = reason
	return c
}

// isBad returns the reason class (an internal name) is excluded.
func (c *Config) isBad(class string) (string, bool) {
	if reason, ok := c.badClasses[class]; ok {
		return reason, true
	}
	simple := class[strings.LastIndexByte(class, '/')+1:]
	if reason, ok := c.badClasses[simple]; ok {
		return reason, true
	}
	for pkg, reason := range c.badClasses {
		if strings.HasPrefix(class, pkg+"/") {
			return reason, true
		}
	}
	return "", false
}

// Build loads every class of the source. Classes that fail to load are
// recorded in IgnoredClasses and reported in the returned error, which
// aggregates all failures; the Info is returned regardless.
func (c *Config) Build() (*classfile.Info, error) {
	bldLog := log.New(c.bldLog, "classbuild: ", c.bldLFlags)
	info := &classfile.Info{
		BldLog: c.bldLog,
		Logger: bldLog,
	}
	var errs *multierror.Error
	c.src.visit(func(origin string, data []byte, err error) {
		if err == nil {
			var cls *classfile.Class
			if cls, err = classfile.Parse(data); err == nil {
				if reason, bad := c.isBad(cls.Name); bad {
					bldLog.Printf("Skip class: %s (%s)", cls.Name, reason)
					info.IgnoredClasses = append(info.IgnoredClasses, cls.Name)
					return
				}
				info.Classes = append(info.Classes, cls)
				return
			}
		}
		bldLog.Printf("Skip %s: %v", origin, err)
		info.IgnoredClasses = append(info.IgnoredClasses, origin)
		errs = multierror.Append(errs, errors.Wrap(err, origin))
	})
	bldLog.Printf("%d classes loaded", len(info.Classes))
	return info, errs.ErrorOrNil()
}

// Default returns a default configuration for static analysis.
func (c *Config) Default() Configurer {
	return c.
		AddBadClass("module-info", "Module descriptors carry no code").
		AddBadClass("package-info", "Package annotations carry no code")
}
