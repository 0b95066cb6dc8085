package submit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/candigo/candigo/internal/posting"
)

func TestOutboxPrepare(t *testing.T) {
	dir := t.TempDir()
	o := NewOutbox(dir)
	o.now = func() time.Time { return time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC) }

	p := &posting.Posting{
		SourceID:     "francetravail/197XYZW",
		Title:        "Développeur Go",
		Company:      "Acme Conseil",
		Location:     "Paris",
		ContractType: "CDI",
		Salary:       &posting.SalaryRange{Min: 45000, Max: 55000},
		URL:          "https://example.test/offres/1",
		PostedAt:     time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
	}

	path, err := o.Prepare(p, "Bonjour, je souhaite postuler.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Fatalf("folder created outside the outbox: %s", path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "application_Acme_Conseil_") {
		t.Fatalf("unexpected folder name: %s", base)
	}
	if !strings.Contains(base, "20250310_143000") {
		t.Fatalf("expected the timestamp in the folder name: %s", base)
	}

	letter, err := os.ReadFile(filepath.Join(path, "letter.txt"))
	if err != nil {
		t.Fatalf("reading letter: %v", err)
	}
	if string(letter) != "Bonjour, je souhaite postuler." {
		t.Fatalf("unexpected letter contents: %q", letter)
	}

	summary, err := os.ReadFile(filepath.Join(path, "posting.md"))
	if err != nil {
		t.Fatalf("reading posting summary: %v", err)
	}
	for _, want := range []string{"Développeur Go", "Acme Conseil", "CDI", "45000-55000", "https://example.test/offres/1", "2025-03-08"} {
		if !strings.Contains(string(summary), want) {
			t.Fatalf("posting summary missing %q:\n%s", want, summary)
		}
	}
}

func TestOutboxSanitizesFolderNames(t *testing.T) {
	o := NewOutbox(t.TempDir())

	p := &posting.Posting{
		Title:   "Dev",
		Company: `Weird/Co:"Name"`,
		URL:     "https://example.test/2",
	}

	path, err := o.Prepare(p, "lettre")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base := filepath.Base(path)
	if strings.ContainsAny(base, `/\:*?"<>|`) {
		t.Fatalf("folder name not sanitized: %q", base)
	}
}
