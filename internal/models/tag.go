// Package models provides the entity model of the photo library.
package models

import (
	"strings"
	"unicode/utf8"
)

// Tag is a name/value pair attached to a photo, e.g. location: "NYC".
// Tags compare with ==; both fields are case-sensitive.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewTag creates a Tag.
func NewTag(name, value string) Tag {
	return Tag{Name: name, Value: value}
}

// Valid reports whether both halves of the tag are non-blank UTF-8 text.
func (t Tag) Valid() bool {
	return validText(t.Name) && validText(t.Value)
}

// validText reports whether s is non-blank and valid UTF-8. Names and
// labels must survive a round trip through the JSON records unchanged.
func validText(s string) bool {
	return strings.TrimSpace(s) != "" && utf8.ValidString(s)
}

// String renders the tag as "name: value".
func (t Tag) String() string {
	return t.Name + ": " + t.Value
}
