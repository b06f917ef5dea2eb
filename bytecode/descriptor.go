package bytecode

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrBadDescriptor = errors.New("malformed descriptor")

// ParseMethodDescriptor splits a method descriptor such as
// "(ILjava/lang/String;)V" into its parameter and return signatures.
func ParseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, "", errors.Wrapf(ErrBadDescriptor, "method descriptor %q", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n := fieldLen(desc[i:])
		if n == 0 {
			return nil, "", errors.Wrapf(ErrBadDescriptor, "method descriptor %q", desc)
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc)-1 {
		return nil, "", errors.Wrapf(ErrBadDescriptor, "method descriptor %q", desc)
	}
	ret = desc[i+1:]
	if ret != "V" && fieldLen(ret) != len(ret) {
		return nil, "", errors.Wrapf(ErrBadDescriptor, "method descriptor %q", desc)
	}
	return params, ret, nil
}

// fieldLen returns the length of the field descriptor at the start of s, or 0
// if s does not start with one.
func fieldLen(s string) int {
	dims := 0
	for dims < len(s) && s[dims] == '[' {
		dims++
	}
	if dims == len(s) {
		return 0
	}
	switch s[dims] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return dims + 1
	case 'L':
		if end := strings.IndexByte(s[dims:], ';'); end > 1 {
			return dims + end + 1
		}
	}
	return 0
}

// IsWide returns true for the category 2 signatures long and double.
func IsWide(sig string) bool {
	return sig == "J" || sig == "D"
}

// ClassSignature converts an internal class name (java/lang/String) to its
// signature (Ljava/lang/String;). Array class names are already signatures.
func ClassSignature(internalName string) string {
	if strings.HasPrefix(internalName, "[") {
		return internalName
	}
	return "L" + internalName + ";"
}

// ArrayElement returns the element signature of an array signature, or the
// empty string if sig is not an array.
func ArrayElement(sig string) string {
	if strings.HasPrefix(sig, "[") {
		return sig[1:]
	}
	return ""
}

// DottedName converts an internal name to the dotted form used in source,
// e.g. java/lang/String to java.lang.String.
func DottedName(internalName string) string {
	return strings.Replace(internalName, "/", ".", -1)
}
