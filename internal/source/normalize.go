package source

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/candigo/candigo/internal/posting"
)

// NormalizationError describes why one raw posting could not be
// canonicalized. It never aborts the batch: the posting is logged as
// skipped and processing continues.
type NormalizationError struct {
	Source string
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s posting: %s (%s)", e.Source, e.Reason, e.Field)
}

type normalizeFunc func(RawPosting, time.Time) (*posting.Posting, error)

// normalizers maps a source tag to its normalizer variant. Unknown tags
// are a normalization failure, not a crash.
var normalizers = map[string]normalizeFunc{
	FranceTravail: normalizeFranceTravail,
	Indeed:        normalizeBoard,
	LinkedIn:      normalizeBoard,
}

// Normalizer turns heterogeneous raw postings into canonical Postings.
// Normalization is deterministic and side-effect-free apart from logging.
type Normalizer struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger, now: time.Now}
}

// NormalizeAll canonicalizes a batch, skipping failed postings. It
// returns the survivors and the number skipped.
func (n *Normalizer) NormalizeAll(raw []RawPosting) (*posting.Postings, int) {
	out := &posting.Postings{}
	skipped := 0
	fetchedAt := n.now().UTC()

	for _, rp := range raw {
		p, err := n.Normalize(rp, fetchedAt)
		if err != nil {
			skipped++
			n.logger.Warn("skipping malformed posting",
				zap.String("source", rp.Source),
				zap.Error(err),
			)
			continue
		}
		out.Append(p)
	}

	return out, skipped
}

// Normalize canonicalizes a single raw posting.
func (n *Normalizer) Normalize(rp RawPosting, fetchedAt time.Time) (*posting.Posting, error) {
	fn, ok := normalizers[rp.Source]
	if !ok {
		return nil, &NormalizationError{Source: rp.Source, Field: "source", Reason: "no normalizer for source"}
	}
	return fn(rp, fetchedAt)
}

// franceTravailRaw mirrors the France Travail API result shape.
type franceTravailRaw struct {
	ID         string `json:"id"`
	Intitule   string `json:"intitule"`
	Entreprise struct {
		Nom string `json:"nom"`
	} `json:"entreprise"`
	LieuTravail struct {
		Libelle string `json:"libelle"`
	} `json:"lieuTravail"`
	TypeContrat string `json:"typeContrat"`
	Salaire     struct {
		Libelle string `json:"libelle"`
	} `json:"salaire"`
	Description  string `json:"description"`
	DateCreation string `json:"dateCreation"`
	OrigineOffre struct {
		URLOrigine string `json:"urlOrigine"`
	} `json:"origineOffre"`
}

func normalizeFranceTravail(rp RawPosting, fetchedAt time.Time) (*posting.Posting, error) {
	var raw franceTravailRaw
	if err := decodePayload(rp, &raw); err != nil {
		return nil, err
	}

	return canonical(rp.Source, raw.ID, fetchedAt, fields{
		title:       raw.Intitule,
		company:     raw.Entreprise.Nom,
		location:    raw.LieuTravail.Libelle,
		contract:    raw.TypeContrat,
		salary:      raw.Salaire.Libelle,
		description: raw.Description,
		url:         raw.OrigineOffre.URLOrigine,
		postedAt:    raw.DateCreation,
	})
}

// boardRaw is the shape shared by the scraped boards (Indeed, LinkedIn):
// flat English keys produced by the browser-automation collaborator.
type boardRaw struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Contract    string `json:"contractType"`
	Salary      string `json:"salary"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publicationDate"`
}

func normalizeBoard(rp RawPosting, fetchedAt time.Time) (*posting.Posting, error) {
	var raw boardRaw
	if err := decodePayload(rp, &raw); err != nil {
		return nil, err
	}

	return canonical(rp.Source, raw.ID, fetchedAt, fields{
		title:       raw.Title,
		company:     raw.Company,
		location:    raw.Location,
		contract:    raw.Contract,
		salary:      raw.Salary,
		description: raw.Description,
		url:         raw.URL,
		postedAt:    raw.PublishedAt,
	})
}

func decodePayload(rp RawPosting, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:  target,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return &NormalizationError{Source: rp.Source, Field: "payload", Reason: err.Error()}
	}
	if err := decoder.Decode(rp.Payload); err != nil {
		return &NormalizationError{Source: rp.Source, Field: "payload", Reason: err.Error()}
	}
	return nil
}

type fields struct {
	title       string
	company     string
	location    string
	contract    string
	salary      string
	description string
	url         string
	postedAt    string
}

func canonical(src, nativeID string, fetchedAt time.Time, f fields) (*posting.Posting, error) {
	title := Clean(f.title)
	company := Clean(f.company)
	url := strings.TrimSpace(f.url)

	if title == "" {
		return nil, &NormalizationError{Source: src, Field: "title", Reason: "required field is empty"}
	}
	if company == "" {
		return nil, &NormalizationError{Source: src, Field: "company", Reason: "required field is empty"}
	}
	if url == "" {
		return nil, &NormalizationError{Source: src, Field: "url", Reason: "required field is empty"}
	}

	location := Clean(f.location)

	return &posting.Posting{
		SourceID:     src + "/" + strings.TrimSpace(nativeID),
		Source:       src,
		Title:        title,
		Company:      company,
		Location:     location,
		Remote:       isRemote(location, f.description),
		ContractType: Clean(f.contract),
		Salary:       ParseSalary(f.salary),
		Description:  Clean(f.description),
		URL:          url,
		PostedAt:     parseDate(f.postedAt),
		FetchedAt:    fetchedAt,
	}, nil
}

// Clean trims, NFC-normalizes and whitespace-collapses a text field.
func Clean(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

func isRemote(location, description string) bool {
	loc := strings.ToLower(location)
	for _, marker := range []string{"remote", "télétravail", "teletravail", "full remote"} {
		if strings.Contains(loc, marker) {
			return true
		}
	}
	desc := strings.ToLower(description)
	return strings.Contains(desc, "100% remote") || strings.Contains(desc, "full remote")
}

// date layouts seen across the sources, most specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02",
	"02/01/2006",
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
