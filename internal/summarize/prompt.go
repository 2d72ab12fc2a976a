package summarize

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Placeholder is replaced with the article text.
const Placeholder = "{{article_text}}"

//go:embed prompts/*.txt
var builtinPrompts embed.FS

// LoadTemplate reads <dir>/<name>.txt. With an empty dir, or when the file is
// absent from dir, the built-in template of the same name is used.
func LoadTemplate(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("prompt name is empty")
	}
	file := name
	if !strings.HasSuffix(file, ".txt") {
		file += ".txt"
	}

	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, file))
		switch {
		case err == nil:
			return validateTemplate(file, string(data))
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("read prompt %s: %w", file, err)
		}
	}

	data, err := builtinPrompts.ReadFile("prompts/" + file)
	if err != nil {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	return validateTemplate(file, string(data))
}

func validateTemplate(file, tmpl string) (string, error) {
	if !strings.Contains(tmpl, Placeholder) {
		return "", fmt.Errorf("prompt %s has no %s placeholder", file, Placeholder)
	}
	return tmpl, nil
}

// Render substitutes text into every placeholder of tmpl.
func Render(tmpl, text string) string {
	return strings.ReplaceAll(tmpl, Placeholder, text)
}

// truncate cuts s to at most max runes, preferring a paragraph or sentence
// boundary in the last fifth of the allowance.
func truncate(s string, max int) (string, bool) {
	if max <= 0 {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s, false
	}
	cut := string(runes[:max])
	floor := len(cut) * 4 / 5
	if i := strings.LastIndex(cut, "\n\n"); i >= floor {
		return cut[:i], true
	}
	if i := strings.LastIndex(cut, ". "); i >= floor {
		return cut[:i+1], true
	}
	return cut, true
}
