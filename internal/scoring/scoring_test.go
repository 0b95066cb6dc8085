package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/candigo/candigo/internal/posting"
	"github.com/candigo/candigo/internal/profile"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestScorer(t *testing.T, cfg Config) *Scorer {
	t.Helper()
	s, err := NewScorer(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.now = func() time.Time { return testNow }
	return s
}

func testProfile() *profile.Profile {
	return &profile.Profile{
		Name:  "Jean Dupont",
		Email: "jean@example.test",
		Keywords: map[string]float64{
			"react": 1.0,
			"node":  0.5,
		},
		Locations:     []string{"Paris"},
		ContractTypes: []string{"CDI"},
		MinSalary:     45000,
	}
}

func TestNewScorerRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights sum above one", func(c *Config) { c.Weights.Keywords = 0.9 }},
		{"weights sum below one", func(c *Config) { c.Weights.Recency = 0 }},
		{"negative threshold", func(c *Config) { c.Threshold = -0.1 }},
		{"threshold above one", func(c *Config) { c.Threshold = 1.5 }},
		{"zero max age", func(c *Config) { c.MaxAge = 0 }},
		{"salary floor at one", func(c *Config) { c.SalaryFloorRatio = 1 }},
		{"salary floor at zero", func(c *Config) { c.SalaryFloorRatio = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if _, err := NewScorer(cfg); err == nil {
				t.Fatal("expected a config validation error")
			}
		})
	}
}

func TestScoreStrongMatch(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())

	p := &posting.Posting{
		Title:        "Développeur React",
		Company:      "Acme",
		Location:     "Paris",
		ContractType: "CDI",
		Description:  "Stack React et Node, équipe produit.",
		Salary:       &posting.SalaryRange{Min: 50000, Max: 55000},
		PostedAt:     testNow.Add(-24 * time.Hour),
	}

	scored := s.Score(p, testProfile())

	if scored.Score < 0.9 {
		t.Fatalf("expected a strong match, got %v (breakdown %v)", scored.Score, scored.Breakdown)
	}

	for _, criterion := range []string{CriterionKeywords, CriterionLocation, CriterionContract, CriterionSalary, CriterionRecency} {
		if _, ok := scored.Breakdown[criterion]; !ok {
			t.Fatalf("breakdown missing criterion %q", criterion)
		}
	}

	// The total must be exactly the weighted sum of the breakdown.
	w := DefaultConfig().Weights
	want := scored.Breakdown[CriterionKeywords]*w.Keywords +
		scored.Breakdown[CriterionLocation]*w.Location +
		scored.Breakdown[CriterionContract]*w.Contract +
		scored.Breakdown[CriterionSalary]*w.Salary +
		scored.Breakdown[CriterionRecency]*w.Recency
	if math.Abs(scored.Score-want) > 1e-9 {
		t.Fatalf("score %v does not equal weighted breakdown sum %v", scored.Score, want)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())
	p := &posting.Posting{
		Title:    "Développeur React",
		Company:  "Acme",
		Location: "Paris",
	}

	first := s.Score(p, testProfile())
	second := s.Score(p, testProfile())
	if first.Score != second.Score {
		t.Fatalf("same inputs scored differently: %v vs %v", first.Score, second.Score)
	}
}

func TestScoreExpiredPosting(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())

	p := &posting.Posting{
		Title:        "Développeur React",
		Company:      "Acme",
		Location:     "Paris",
		ContractType: "CDI",
		PostedAt:     testNow.Add(-8 * 24 * time.Hour),
	}

	scored := s.Score(p, testProfile())
	if scored.Score != 0 {
		t.Fatalf("expected an expired posting to score zero, got %v", scored.Score)
	}
	// The breakdown stays inspectable even when the total is forced down.
	if scored.Breakdown[CriterionLocation] != 1.0 {
		t.Fatalf("expected the breakdown to be retained, got %v", scored.Breakdown)
	}
}

func TestKeywordScore(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())

	cases := []struct {
		name     string
		keywords map[string]float64
		title    string
		desc     string
		want     float64
	}{
		{"all matched", map[string]float64{"react": 1}, "Développeur React", "", 1.0},
		{"none matched", map[string]float64{"rust": 1}, "Développeur React", "", 0.0},
		{"weighted partial", map[string]float64{"react": 1, "python": 1}, "Développeur React", "", 0.5},
		{"weight favors match", map[string]float64{"react": 3, "python": 1}, "Développeur React", "", 0.75},
		{"match in description", map[string]float64{"kubernetes": 1}, "SRE", "plateforme Kubernetes", 1.0},
		{"case insensitive", map[string]float64{"REACT": 1}, "développeur react", "", 1.0},
		{"no keywords configured", nil, "Développeur", "", 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prof := testProfile()
			prof.Keywords = tc.keywords
			p := &posting.Posting{Title: tc.title, Description: tc.desc}
			if got := s.keywordScore(p, prof); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("keywordScore = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLocationScore(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())

	cases := []struct {
		name     string
		location string
		remote   bool
		profLocs []string
		want     float64
	}{
		{"exact city", "Paris", false, []string{"Paris"}, 1.0},
		{"city inside label", "75 - Paris", false, []string{"Paris"}, 1.0},
		{"mismatch", "Lyon", false, []string{"Paris"}, 0.0},
		{"unknown location", "", false, []string{"Paris"}, 0.5},
		{"remote accepted", "Full remote", true, []string{"Remote"}, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prof := testProfile()
			prof.Locations = tc.profLocs
			p := &posting.Posting{Location: tc.location, Remote: tc.remote}
			if got := s.locationScore(p, prof); got != tc.want {
				t.Fatalf("locationScore = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSalaryScore(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())

	cases := []struct {
		name      string
		salary    *posting.SalaryRange
		minSalary float64
		want      float64
	}{
		{"unknown salary", nil, 45000, 1.0},
		{"no profile minimum", &posting.SalaryRange{Min: 20000, Max: 20000}, 0, 1.0},
		{"at minimum", &posting.SalaryRange{Min: 45000, Max: 45000}, 45000, 1.0},
		{"above minimum", &posting.SalaryRange{Min: 60000, Max: 60000}, 45000, 1.0},
		{"midway to floor", &posting.SalaryRange{Min: 33750, Max: 33750}, 45000, 0.5},
		{"at floor", &posting.SalaryRange{Min: 22500, Max: 22500}, 45000, 0.0},
		{"below floor", &posting.SalaryRange{Min: 10000, Max: 10000}, 45000, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prof := testProfile()
			prof.MinSalary = tc.minSalary
			p := &posting.Posting{Salary: tc.salary}
			if got := s.salaryScore(p, prof); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("salaryScore = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRecencyScore(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())

	cases := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"fresh", 0, 1.0},
		{"one day", 24 * time.Hour, 1.0 - 1.0/7.0},
		{"six days", 6 * 24 * time.Hour, 1.0 - 6.0/7.0},
		{"at cutoff", 7 * 24 * time.Hour, 0.0},
		{"past cutoff", 10 * 24 * time.Hour, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &posting.Posting{PostedAt: testNow.Add(-tc.age)}
			if got := s.recencyScore(p); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("recencyScore = %v, want %v", got, tc.want)
			}
		})
	}

	t.Run("undated treated as fresh", func(t *testing.T) {
		if got := s.recencyScore(&posting.Posting{}); got != 1.0 {
			t.Fatalf("recencyScore = %v, want 1.0", got)
		}
	})
}
