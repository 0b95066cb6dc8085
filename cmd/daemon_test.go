package cmd

import (
	"testing"
)

func TestScheduleSpecs(t *testing.T) {
	cases := []struct {
		name    string
		cfg     *DaemonConfig
		want    []string
		wantErr bool
	}{
		{"nil config uses default interval", nil, []string{"@every 6h"}, false},
		{"custom interval", &DaemonConfig{Every: "30m"}, []string{"@every 30m"}, false},
		{
			"fixed daily times",
			&DaemonConfig{Every: "12h", At: []string{"09:00", "18:30"}},
			[]string{"@every 12h", "0 9 * * *", "30 18 * * *"},
			false,
		},
		{"invalid interval", &DaemonConfig{Every: "soon"}, nil, true},
		{"invalid time", &DaemonConfig{At: []string{"9am"}}, nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := scheduleSpecs(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("scheduleSpecs = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("spec %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}
