package posting

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SalaryRange is an annual gross salary range in the posting's currency.
// Min == Max when the posting states a single figure.
type SalaryRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Posting is a canonical job offer. It is immutable once produced by the
// normalizer: every later stage works on it read-only.
type Posting struct {
	// SourceID is "<source>/<source-native id>". Native IDs are never
	// comparable across sources, so SourceID is informational only and
	// plays no part in deduplication.
	SourceID string `json:"source_id"`
	Source   string `json:"source"`

	Title        string       `json:"title"`
	Company      string       `json:"company"`
	Location     string       `json:"location"`
	Remote       bool         `json:"remote,omitempty"`
	ContractType string       `json:"contract_type,omitempty"`
	Salary       *SalaryRange `json:"salary,omitempty"`
	Description  string       `json:"description,omitempty"`
	URL          string       `json:"url"`

	// PostedAt is zero when the source did not expose a parseable
	// publication date.
	PostedAt  time.Time `json:"posted_at,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SalaryKnown reports whether the posting states any salary figure.
func (p *Posting) SalaryKnown() bool {
	return p.Salary != nil && p.Salary.Min > 0
}

type Postings struct {
	Items []*Posting
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) Append(items ...*Posting) {
	p.Items = append(p.Items, items...)
}

func (p *Postings) FindByURL(url string) *Posting {
	for _, item := range p.Items {
		if item.URL == url {
			return item
		}
	}
	return nil
}

// ReportByCompany groups postings by company for operator-facing summaries.
func (p *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range p.Items {
		entry := map[string]string{
			"title":    item.Title,
			"location": item.Location,
			"url":      item.URL,
		}
		if item.SalaryKnown() {
			entry["salary"] = fmt.Sprintf("%.0f-%.0f", item.Salary.Min, item.Salary.Max)
		}
		report[item.Company] = append(report[item.Company], entry)
	}
	return report
}

// DumpToTmpFile writes the postings as indented JSON to a temp file and
// returns its name.
func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}
