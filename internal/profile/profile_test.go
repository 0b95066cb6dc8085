package profile

import "testing"

func validProfile() *Profile {
	return &Profile{
		Name:     "Jean Dupont",
		Email:    "jean@example.test",
		Keywords: map[string]float64{"go": 1},
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Profile)
		wantErr bool
	}{
		{"valid", func(_ *Profile) {}, false},
		{"missing name", func(p *Profile) { p.Name = "  " }, true},
		{"missing email", func(p *Profile) { p.Email = "" }, true},
		{"no keywords", func(p *Profile) { p.Keywords = nil }, true},
		{"negative salary", func(p *Profile) { p.MinSalary = -1 }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProfile()
			tc.mutate(p)
			err := p.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	var nilProfile *Profile
	if nilProfile.Validate() == nil {
		t.Fatal("expected an error for a nil profile")
	}
}

func TestKeywordWeight(t *testing.T) {
	p := &Profile{Keywords: map[string]float64{"go": 2, "sql": 0}}

	if w := p.KeywordWeight("go"); w != 2 {
		t.Fatalf("expected weight 2, got %v", w)
	}
	if w := p.KeywordWeight("sql"); w != 1 {
		t.Fatalf("expected zero weight to default to 1, got %v", w)
	}
	if w := p.KeywordWeight("unknown"); w != 1 {
		t.Fatalf("expected unknown keyword to default to 1, got %v", w)
	}
}

func TestAcceptsRemote(t *testing.T) {
	cases := []struct {
		name      string
		locations []string
		want      bool
	}{
		{"remote", []string{"Paris", "Remote"}, true},
		{"télétravail", []string{"Télétravail"}, true},
		{"none", []string{"Paris", "Lyon"}, false},
		{"empty", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Profile{Locations: tc.locations}
			if got := p.AcceptsRemote(); got != tc.want {
				t.Fatalf("AcceptsRemote() = %v, want %v", got, tc.want)
			}
		})
	}
}
