package classfile

import (
	"regexp"
	"strings"
)

var methodPath = regexp.MustCompile(`^"?(?P<class>[^"(]+?)"?\.(?P<method>[^.(]+)(?P<desc>\(.*)?$`)

// FindMethod parses path (e.g. "com/example/Foo".bar, com.example.Foo.bar or
// com/example/Foo.bar(I)V) and returns the matching method, or nil if none of
// the loaded classes declares it.
func (info *Info) FindMethod(path string) *Method {
	className, name, desc := parseMethodPath(path)
	if name == "" {
		return nil
	}
	for _, c := range info.Classes {
		if c.Name == className {
			return c.Method(name, desc)
		}
	}
	return nil
}

// FindClass returns the loaded class with the given internal or dotted name.
func (info *Info) FindClass(name string) *Class {
	name = strings.Replace(name, ".", "/", -1)
	for _, c := range info.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// parseMethodPath splits path to class, method and optional descriptor
// segments. Class names are returned in internal form.
func parseMethodPath(path string) (className, name, desc string) {
	submatches := methodPath.FindStringSubmatch(path)
	if len(submatches) < 4 {
		return "", "", ""
	}
	return strings.Replace(submatches[1], ".", "/", -1), submatches[2], submatches[3]
}
