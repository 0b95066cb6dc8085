package source

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/candigo/candigo/internal/posting"
)

// salaryPattern matches the figures seen in French postings: "45 000 €",
// "45 000 EUR", "45k€", "45K", "40 000 € - 50 000 € par an".
var salaryPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:[\s\x{00a0}\x{202f}]\d{3})+|\d+[.,]?\d*)\s*(k€|k|€|eur)`)

// ParseSalary extracts an annual salary range from a free-form salary
// string. Parsing is a best-effort heuristic: anything unrecognized
// yields nil ("unknown") rather than an error, and figures that look
// hourly or monthly after normalization are discarded as unknown too.
func ParseSalary(s string) *posting.SalaryRange {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	matches := salaryPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}

	var values []float64
	for _, m := range matches {
		digits := strings.NewReplacer(" ", "", " ", "", " ", "", ",", ".").Replace(m[1])
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		if strings.HasPrefix(strings.ToLower(m[2]), "k") {
			v *= 1000
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil
	}

	r := &posting.SalaryRange{Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}

	// Figures below 10k after normalization are hourly/monthly rates or
	// parsing noise; the scorer treats unknown better than wrong.
	if r.Max < 10000 {
		return nil
	}

	return r
}
