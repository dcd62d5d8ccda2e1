package subjects

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPI searches NewsAPI for headlines matching a query.
type NewsAPI struct {
	apiKey   string
	baseURL  string
	daysBack int
	client   *http.Client
	logger   *zap.Logger
}

// NewNewsAPI creates a client reading its key from apiKeyEnv. Searches look
// back daysBack days.
func NewNewsAPI(apiKeyEnv string, daysBack int, logger *zap.Logger) *NewsAPI {
	if daysBack <= 0 {
		daysBack = 7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsAPI{
		apiKey:   os.Getenv(apiKeyEnv),
		baseURL:  newsAPIBaseURL,
		daysBack: daysBack,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// IsConfigured returns whether the API key is available.
func (c *NewsAPI) IsConfigured() bool {
	return c.apiKey != ""
}

// Search returns up to limit headlines for query, most relevant first.
// Removed articles and duplicate titles are skipped.
func (c *NewsAPI) Search(ctx context.Context, query string, limit int) ([]Subject, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("NewsAPI key not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	now := time.Now()
	params := url.Values{
		"q":        {query},
		"from":     {now.AddDate(0, 0, -c.daysBack).Format("2006-01-02")},
		"to":       {now.Format("2006-01-02")},
		"language": {"en"},
		"pageSize": {strconv.Itoa(limit)},
		"sortBy":   {"relevancy"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NewsAPI error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NewsAPI returned %d", resp.StatusCode)
	}

	var result struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			URL    string `json:"url"`
			Title  string `json:"title"`
			Source struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding NewsAPI response: %w", err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("NewsAPI status %q: %s", result.Status, result.Message)
	}

	var out []Subject
	seen := make(map[string]bool)
	for _, a := range result.Articles {
		title := cleanTitle(a.Title)
		if title == "" || a.URL == "" || title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}
		key := strings.ToLower(title)
		if seen[key] {
			continue
		}
		seen[key] = true

		source := "NewsAPI"
		if a.Source.Name != "" {
			source = a.Source.Name
		}
		out = append(out, Subject{Title: title, Source: source, Link: a.URL})
	}

	c.logger.Info("searched NewsAPI", zap.String("query", query), zap.Int("subjects", len(out)))
	return out, nil
}
