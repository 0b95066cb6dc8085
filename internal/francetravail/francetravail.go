// Package francetravail fetches job postings from the France Travail
// (ex Pôle Emploi) Offres d'emploi API. It implements source.Fetcher and
// hands the engine opaque payloads; interpretation belongs to the
// normalizer.
package francetravail

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL   = "https://api.francetravail.io/partenaire/offresdemploi/v2"
	tokenURL = "https://entreprise.francetravail.fr/connexion/oauth2/access_token?realm=%2Fpartenaire"

	// Scopes required by the offres d'emploi API.
	tokenScope = "api_offresdemploiv2 o2dsoffre"

	// Hard page limit imposed by the API.
	pageSize = 50
)

type Client struct {
	clientID     string
	clientSecret string
	logger       *zap.Logger

	HTTPClient *http.Client
	APIURL     string
	TokenURL   string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New builds a client from OAuth client credentials. The access token is
// fetched lazily and refreshed when it nears expiry.
func New(clientID, clientSecret string, logger *zap.Logger) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		APIURL:       apiURL,
		TokenURL:     tokenURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}
