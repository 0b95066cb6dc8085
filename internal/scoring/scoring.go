// Package scoring computes the deterministic match score between a
// posting and the user profile. Scoring is a pure function: no external
// calls, no side effects, same inputs always give the same score.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/candigo/candigo/internal/posting"
	"github.com/candigo/candigo/internal/profile"
)

// Breakdown criterion names, retained per record for explainability.
const (
	CriterionKeywords = "keywords"
	CriterionLocation = "location"
	CriterionContract = "contract"
	CriterionSalary   = "salary"
	CriterionRecency  = "recency"
)

const weightTolerance = 1e-6

// Weights are the relative importance of each criterion. They must sum
// to 1.
type Weights struct {
	Keywords float64 `mapstructure:"keywords"`
	Location float64 `mapstructure:"location"`
	Contract float64 `mapstructure:"contract"`
	Salary   float64 `mapstructure:"salary"`
	Recency  float64 `mapstructure:"recency"`
}

func (w Weights) sum() float64 {
	return w.Keywords + w.Location + w.Contract + w.Salary + w.Recency
}

// Config controls the scorer. Invalid configurations are rejected at
// startup, never papered over at scoring time.
type Config struct {
	Weights Weights `mapstructure:"weights"`

	// Threshold is the minimum score for a posting to become eligible.
	// A posting scoring exactly the threshold is eligible.
	Threshold float64 `mapstructure:"threshold"`

	// MaxAge is the recency cutoff. Older postings score zero and are
	// excluded downstream regardless of other factors.
	MaxAge time.Duration `mapstructure:"max-age"`

	// SalaryFloorRatio is the fraction of the profile minimum below
	// which the salary sub-score hits zero.
	SalaryFloorRatio float64 `mapstructure:"salary-floor-ratio"`
}

// DefaultConfig mirrors the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Keywords: 0.3,
			Location: 0.25,
			Contract: 0.2,
			Salary:   0.15,
			Recency:  0.1,
		},
		Threshold:        0.6,
		MaxAge:           7 * 24 * time.Hour,
		SalaryFloorRatio: 0.5,
	}
}

// Validate rejects configurations the scorer cannot honor.
func (c Config) Validate() error {
	if diff := math.Abs(c.Weights.sum() - 1.0); diff > weightTolerance {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.6f", c.Weights.sum())
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0,1], got %v", c.Threshold)
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("max-age must be positive, got %v", c.MaxAge)
	}
	if c.SalaryFloorRatio <= 0 || c.SalaryFloorRatio >= 1 {
		return fmt.Errorf("salary-floor-ratio must be in (0,1), got %v", c.SalaryFloorRatio)
	}
	return nil
}

// ScoredPosting pairs a posting with its score and per-criterion
// breakdown. Produced fresh each run, never persisted on its own.
type ScoredPosting struct {
	Posting   *posting.Posting
	Score     float64
	Breakdown map[string]float64
	MatchedAt time.Time
}

// Scorer scores postings against a profile under one validated config.
type Scorer struct {
	cfg Config
	now func() time.Time
}

// NewScorer fails fast on an invalid configuration.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg, now: time.Now}, nil
}

// Threshold returns the configured eligibility threshold.
func (s *Scorer) Threshold() float64 { return s.cfg.Threshold }

// Score computes the weighted match score, clamped to [0,1]. A posting
// older than the recency cutoff scores zero outright; its breakdown is
// still retained so an operator can see what it would have scored.
func (s *Scorer) Score(p *posting.Posting, prof *profile.Profile) *ScoredPosting {
	breakdown := map[string]float64{
		CriterionKeywords: s.keywordScore(p, prof),
		CriterionLocation: s.locationScore(p, prof),
		CriterionContract: s.contractScore(p, prof),
		CriterionSalary:   s.salaryScore(p, prof),
		CriterionRecency:  s.recencyScore(p),
	}

	total := breakdown[CriterionKeywords]*s.cfg.Weights.Keywords +
		breakdown[CriterionLocation]*s.cfg.Weights.Location +
		breakdown[CriterionContract]*s.cfg.Weights.Contract +
		breakdown[CriterionSalary]*s.cfg.Weights.Salary +
		breakdown[CriterionRecency]*s.cfg.Weights.Recency

	if s.expired(p) {
		total = 0
	}

	return &ScoredPosting{
		Posting:   p,
		Score:     clamp01(total),
		Breakdown: breakdown,
		MatchedAt: s.now().UTC(),
	}
}

// keywordScore is the weighted fraction of profile keywords found in the
// posting title and description (case-insensitive substring match).
func (s *Scorer) keywordScore(p *posting.Posting, prof *profile.Profile) float64 {
	if len(prof.Keywords) == 0 {
		return 0.5
	}

	text := strings.ToLower(p.Title + " " + p.Description)
	var matched, total float64
	for keyword := range prof.Keywords {
		w := prof.KeywordWeight(keyword)
		total += w
		if strings.Contains(text, strings.ToLower(keyword)) {
			matched += w
		}
	}
	if total == 0 {
		return 0.5
	}
	return matched / total
}

func (s *Scorer) locationScore(p *posting.Posting, prof *profile.Profile) float64 {
	if p.Location == "" && !p.Remote {
		return 0.5 // location unknown
	}
	if p.Remote && prof.AcceptsRemote() {
		return 1.0
	}
	loc := strings.ToLower(p.Location)
	for _, accepted := range prof.Locations {
		a := strings.ToLower(strings.TrimSpace(accepted))
		if a != "" && strings.Contains(loc, a) {
			return 1.0
		}
	}
	return 0.0
}

func (s *Scorer) contractScore(p *posting.Posting, prof *profile.Profile) float64 {
	if p.ContractType == "" || len(prof.ContractTypes) == 0 {
		return 0.5 // unspecified
	}
	for _, accepted := range prof.ContractTypes {
		if strings.EqualFold(strings.TrimSpace(accepted), p.ContractType) {
			return 1.0
		}
	}
	return 0.0
}

// salaryScore gives the benefit of the doubt to unknown salaries and
// scales linearly down to zero at the configured floor ratio.
func (s *Scorer) salaryScore(p *posting.Posting, prof *profile.Profile) float64 {
	if prof.MinSalary <= 0 || !p.SalaryKnown() {
		return 1.0
	}
	ratio := p.Salary.Min / prof.MinSalary
	if ratio >= 1 {
		return 1.0
	}
	floor := s.cfg.SalaryFloorRatio
	if ratio <= floor {
		return 0.0
	}
	return (ratio - floor) / (1 - floor)
}

// recencyScore decays linearly from 1 (posted now) to 0 at the max-age
// cutoff. Postings without a parseable date are treated as fresh, as the
// sources frequently omit dates for still-open offers.
func (s *Scorer) recencyScore(p *posting.Posting) float64 {
	if p.PostedAt.IsZero() {
		return 1.0
	}
	age := s.now().Sub(p.PostedAt)
	if age <= 0 {
		return 1.0
	}
	if age >= s.cfg.MaxAge {
		return 0.0
	}
	return 1.0 - float64(age)/float64(s.cfg.MaxAge)
}

func (s *Scorer) expired(p *posting.Posting) bool {
	return !p.PostedAt.IsZero() && s.now().Sub(p.PostedAt) >= s.cfg.MaxAge
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
