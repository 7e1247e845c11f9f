package grants

import "strings"

var nameReplacer = strings.NewReplacer(
	"/", "",
	"\\", "",
	"’", "'",
	"‘", "'",
	"ʼ", "'",
	"–", "-",
	"—", "-",
	"‒", "-",
	"―", "-",
)

// CleanName canonicalizes a display name: path separators are stripped,
// apostrophe and dash variants are normalized, and whitespace is collapsed.
// The transform is pure and idempotent.
func CleanName(name string) string {
	cleaned := nameReplacer.Replace(name)
	return strings.Join(strings.Fields(cleaned), " ")
}

// FullName derives the display full name from cleaned name parts.
func FullName(firstName, lastName string) string {
	parts := make([]string, 0, 2)
	if first := CleanName(firstName); first != "" {
		parts = append(parts, first)
	}
	if last := CleanName(lastName); last != "" {
		parts = append(parts, last)
	}
	return strings.Join(parts, " ")
}
