package letter

import (
	"context"
	"strings"
	"testing"

	"github.com/candigo/candigo/internal/posting"
	"github.com/candigo/candigo/internal/profile"
)

func TestTemplateGenerator(t *testing.T) {
	g := NewTemplateGenerator()

	p := &posting.Posting{
		Title:   "Développeur Go",
		Company: "Acme",
	}
	prof := &profile.Profile{
		Name:   "Jean Dupont",
		Email:  "jean@example.test",
		Skills: "Go, SQL, Docker",
	}

	text, err := g.GenerateLetter(context.Background(), p, prof)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Jean Dupont", "Développeur Go", "Acme"} {
		if !strings.Contains(text, want) {
			t.Fatalf("letter missing %q:\n%s", want, text)
		}
	}

	// Deterministic apart from the date: two calls give the same letter.
	again, err := g.GenerateLetter(context.Background(), p, prof)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != again {
		t.Fatal("expected a deterministic letter")
	}
}
