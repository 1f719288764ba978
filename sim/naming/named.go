// Package naming builds and parses the hierarchical names of simulation
// elements, such as "Net.Sensor[12].Mailbox".
package naming

import (
	"fmt"
	"strconv"
	"strings"
)

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name.
func (b NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase
func MakeNamedBase(name string) NamedBase {
	NameMustBeValid(name)
	return NamedBase{name: name}
}

// BuildName joins a parent name and an element name with a dot.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index, e.g. BuildNameWithIndex("Net", "Sensor", 3) is "Net.Sensor[3]".
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}

// ParseIndex returns the element name and index of the last token of a name.
// "Net.Sensor[3]" parses to ("Sensor", 3).
func ParseIndex(name string) (string, int, error) {
	tokens := strings.Split(name, ".")
	last := tokens[len(tokens)-1]

	open := strings.IndexByte(last, '[')
	if open <= 0 || !strings.HasSuffix(last, "]") {
		return "", 0, fmt.Errorf("name %q has no index", name)
	}

	index, err := strconv.Atoi(last[open+1 : len(last)-1])
	if err != nil {
		return "", 0, fmt.Errorf("name %q has a non-integer index: %w", name, err)
	}

	return last[:open], index, nil
}

// NameMustBeValid panics if a name has empty tokens or unbalanced brackets.
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}

	for _, token := range strings.Split(name, ".") {
		if token == "" {
			panic(fmt.Sprintf("name %q has an empty token", name))
		}

		if strings.Count(token, "[") != strings.Count(token, "]") {
			panic(fmt.Sprintf("name %q has unmatched brackets", name))
		}
	}
}
