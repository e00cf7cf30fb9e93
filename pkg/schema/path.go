package schema

import (
	"strconv"
	"strings"
)

// RootPath is the instance path of a response or request body.
const RootPath = "$"

// PropertyPath extends an instance path with an object member. Names that are
// not plain identifiers use bracket notation: $.owner, $['first name'].
func PropertyPath(parent, name string) string {
	if isIdentifier(name) {
		return parent + "." + name
	}
	return parent + "['" + strings.ReplaceAll(strings.ReplaceAll(name, `\`, `\\`), "'", `\'`) + "']"
}

// ItemPath extends an instance path with an array position: $.items[2].
func ItemPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || c == '$':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
