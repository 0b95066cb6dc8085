package letter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/candigo/candigo/internal/posting"
	"github.com/candigo/candigo/internal/profile"
)

// TemplateGenerator produces a plain, deterministic French cover letter
// without any external call. It serves as the fallback when the AI
// provider is disabled or has exhausted its retries.
type TemplateGenerator struct {
	now func() time.Time
}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{now: time.Now}
}

func (g *TemplateGenerator) GenerateLetter(_ context.Context, p *posting.Posting, prof *profile.Profile) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n%s\n%s\n\n", prof.Name, prof.Email, g.now().Format("02/01/2006"))
	fmt.Fprintf(&b, "Objet : Candidature au poste de %s\n\n", p.Title)
	fmt.Fprintf(&b, "Madame, Monsieur,\n\n")
	fmt.Fprintf(&b, "Votre offre pour le poste de %s chez %s a retenu toute mon attention. ", p.Title, p.Company)
	if prof.Skills != "" {
		fmt.Fprintf(&b, "Mon parcours autour de %s correspond directement aux besoins décrits dans votre annonce. ", prof.Skills)
	}
	b.WriteString("Je serais ravi d'échanger avec vous sur la manière dont mon expérience peut contribuer à vos projets.\n\n")
	b.WriteString("Je me tiens à votre disposition pour un entretien à votre convenance.\n\n")
	fmt.Fprintf(&b, "Cordialement,\n%s\n", prof.Name)

	return b.String(), nil
}
