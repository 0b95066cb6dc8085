package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  s3cret\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := Load(Source{Name: "api key", File: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != "s3cret" {
		t.Fatalf("Load = %q, want %q", got, "s3cret")
	}
}

func TestLoadFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("from-file"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := Load(Source{Value: "inline", File: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("Load = %q, want file value to win", got)
	}
}

func TestLoadInlineValue(t *testing.T) {
	got, err := Load(Source{Value: " inline \n"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("Load = %q, want %q", got, "inline")
	}
}

func TestLoadErrors(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cases := []struct {
		name string
		src  Source
		want string
	}{
		{"unconfigured", Source{Name: "smtp password"}, "smtp password is not configured"},
		{"missing file", Source{Name: "api key", File: filepath.Join(t.TempDir(), "nope")}, "reading api key"},
		{"empty file", Source{Name: "api key", File: empty}, "is empty"},
		{"default name", Source{}, "secret is not configured"},
	}
	for _, tc := range cases {
		_, err := Load(tc.src)
		if err == nil {
			t.Fatalf("%s: Load succeeded, want error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not contain %q", tc.name, err, tc.want)
		}
	}
}
