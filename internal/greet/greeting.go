package greet

import "strings"

const (
	// DefaultName is greeted when no name is configured or given.
	DefaultName = "World"

	// DefaultTemplate is used when the config does not set one.
	// "{name}" is replaced with the greeted name.
	DefaultTemplate = "Hello, {name}!"
)

// Format renders the greeting for name. Surrounding whitespace on the
// name is trimmed; an empty name falls back to DefaultName and an
// empty template to DefaultTemplate.
func Format(template, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	return strings.ReplaceAll(template, "{name}", name)
}
