package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
)

// Confluence is a Client backed by the Confluence REST API.
// Retries and timeouts are left to the caller's context and http.Client.
type Confluence struct {
	baseURL  string
	username string
	apiToken string
	httpc    *http.Client
}

// NewConfluence creates a client for the given site. baseURL is the site
// root (e.g. https://example.atlassian.net/wiki) without a trailing slash.
func NewConfluence(baseURL, username, apiToken string) *Confluence {
	return &Confluence{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		apiToken: apiToken,
		httpc:    http.DefaultClient,
	}
}

// contentResponse mirrors the subset of the content API we consume.
type contentResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Space   struct {
		Key string `json:"key"`
	} `json:"space"`
	Version struct {
		Number int       `json:"number"`
		When   time.Time `json:"when"`
		By     struct {
			DisplayName string `json:"displayName"`
		} `json:"by"`
	} `json:"version"`
	History struct {
		CreatedDate time.Time `json:"createdDate"`
		CreatedBy   struct {
			DisplayName string `json:"displayName"`
		} `json:"createdBy"`
	} `json:"history"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Metadata struct {
		Labels struct {
			Results []struct {
				Name string `json:"name"`
			} `json:"results"`
		} `json:"labels"`
	} `json:"metadata"`
	Links struct {
		WebUI string `json:"webui"`
		Base  string `json:"base"`
	} `json:"_links"`
}

// GetDocument fetches a page in storage format with version, space,
// history, and label metadata expanded.
func (c *Confluence) GetDocument(ctx context.Context, id string) (*Document, error) {
	u := fmt.Sprintf("%s/rest/api/content/%s?expand=%s", c.baseURL, url.PathEscape(id),
		url.QueryEscape("body.storage,version,space,history,metadata.labels"))

	var cr contentResponse
	if err := c.getJSON(ctx, u, &cr); err != nil {
		return nil, err
	}

	doc := &Document{
		ID:        cr.ID,
		Title:     cr.Title,
		SpaceKey:  cr.Space.Key,
		Version:   cr.Version.Number,
		CreatedAt: cr.History.CreatedDate,
		UpdatedAt: cr.Version.When,
		Author:    cr.Version.By.DisplayName,
		Content:   cr.Body.Storage.Value,
		Labels:    []string{},
	}
	if doc.Author == "" {
		doc.Author = cr.History.CreatedBy.DisplayName
	}
	for _, l := range cr.Metadata.Labels.Results {
		doc.Labels = append(doc.Labels, l.Name)
	}
	if cr.Links.WebUI != "" {
		base := cr.Links.Base
		if base == "" {
			base = c.baseURL
		}
		doc.WebURL = strings.TrimRight(base, "/") + cr.Links.WebUI
	}
	return doc, nil
}

// searchResponse mirrors the subset of the search API we consume.
type searchResponse struct {
	Results []struct {
		Content struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"content"`
		Excerpt               string `json:"excerpt"`
		ResultGlobalContainer struct {
			DisplayURL string `json:"displayUrl"`
			Title      string `json:"title"`
		} `json:"resultGlobalContainer"`
		LastModified time.Time `json:"lastModified"`
	} `json:"results"`
}

// Search runs a site search and returns up to limit hits.
func (c *Confluence) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	cql := fmt.Sprintf(`siteSearch ~ "%s" and type = page`, strings.ReplaceAll(query, `"`, `\"`))
	u := fmt.Sprintf("%s/rest/api/search?cql=%s&limit=%d", c.baseURL, url.QueryEscape(cql), limit)

	var sr searchResponse
	if err := c.getJSON(ctx, u, &sr); err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(sr.Results))
	for _, r := range sr.Results {
		hits = append(hits, SearchHit{
			ID:           r.Content.ID,
			Title:        r.Content.Title,
			Excerpt:      r.Excerpt,
			SpaceKey:     spaceKeyFromDisplayURL(r.ResultGlobalContainer.DisplayURL),
			LastModified: r.LastModified,
		})
	}
	return hits, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
// HTTP status classes map onto the apperr sentinels so callers can
// distinguish not-found, auth, and rate-limit failures.
func (c *Confluence) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("remote: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("remote: %s: %w", u, apperr.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("remote: %s: %w", u, apperr.ErrUnauthorized)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("remote: %s: %w", u, apperr.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("remote: %s: unexpected status %d", u, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

// spaceKeyFromDisplayURL extracts the space key from container URLs of the
// form /spaces/KEY or /display/KEY. Returns empty string when absent.
func spaceKeyFromDisplayURL(display string) string {
	for _, prefix := range []string{"/spaces/", "/display/"} {
		if i := strings.Index(display, prefix); i >= 0 {
			rest := display[i+len(prefix):]
			if j := strings.IndexByte(rest, '/'); j >= 0 {
				rest = rest[:j]
			}
			return rest
		}
	}
	return ""
}

// ParsePageURL extracts the page id from a wiki page URL. Both modern
// (/spaces/KEY/pages/<id>/Title) and legacy (viewpage.action?pageId=<id>)
// forms are supported.
func ParsePageURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("remote: parse url: %w", err)
	}
	if id := u.Query().Get("pageId"); id != "" {
		return id, nil
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "pages" && i+1 < len(parts) && isDigits(parts[i+1]) {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("remote: no page id in url: %s", raw)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
