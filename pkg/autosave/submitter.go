package autosave

import (
	"net/http"

	"github.com/fyrsmithlabs/assessd/pkg/client"
)

// NewHTTPSubmitter returns a Submitter posting to
// POST {baseURL}/api/answers/:id/batch. A nil hc uses the client default.
func NewHTTPSubmitter(baseURL string, hc *http.Client) Submitter {
	return client.New(baseURL, client.WithHTTPClient(hc))
}
