package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where a credential comes from. Config files carry
// paths, never the secrets themselves, so File is the usual way in; an
// inline Value is accepted for tests and ad-hoc runs.
type Source struct {
	// Name labels the credential in error messages.
	Name string
	// Value is an inline credential.
	Value string
	// File is a path to a file holding the credential. It wins over
	// Value when both are set.
	File string
}

// Load resolves src to a trimmed credential string. It fails when the
// file cannot be read, is empty, or when no source is configured at all.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	raw := src.Value
	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		raw = string(data)
		if strings.TrimSpace(raw) == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}
	return value, nil
}
