// Package profile holds the user's static job-search preferences. The
// profile is loaded once per run from configuration and is read-only to
// the engine.
package profile

import (
	"errors"
	"strings"
)

// Profile describes the candidate and what they are looking for.
type Profile struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Phone    string `mapstructure:"phone"`
	LinkedIn string `mapstructure:"linkedin"`
	CVPath   string `mapstructure:"cv-path"`

	// Keywords maps a desired keyword to its importance weight. A weight
	// of zero is treated as 1.
	Keywords      map[string]float64 `mapstructure:"keywords"`
	Locations     []string           `mapstructure:"locations"`
	ContractTypes []string           `mapstructure:"contract-types"`
	MinSalary     float64            `mapstructure:"min-salary"`
	Skills        string             `mapstructure:"skills"`
}

// Validate reports configuration errors an operator must fix before a run.
func (p *Profile) Validate() error {
	if p == nil {
		return errors.New("profile is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("profile name is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return errors.New("profile email is required")
	}
	if len(p.Keywords) == 0 {
		return errors.New("at least one profile keyword is required")
	}
	if p.MinSalary < 0 {
		return errors.New("minimum salary cannot be negative")
	}
	return nil
}

// KeywordWeight returns the importance weight for a keyword, defaulting
// to 1 when unset.
func (p *Profile) KeywordWeight(keyword string) float64 {
	if w, ok := p.Keywords[keyword]; ok && w > 0 {
		return w
	}
	return 1
}

// AcceptsRemote reports whether "remote" is one of the accepted locations.
func (p *Profile) AcceptsRemote() bool {
	for _, loc := range p.Locations {
		l := strings.ToLower(strings.TrimSpace(loc))
		if l == "remote" || l == "télétravail" || l == "teletravail" {
			return true
		}
	}
	return false
}
