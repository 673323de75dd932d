package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the odds gateway over plain request/response JSON. The
// gateway owns scraping and anti-bot concerns; this client only moves structs.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a feed client for the given gateway base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchEvents lists the events currently shown on a competition link.
func (c *Client) FetchEvents(ctx context.Context, link string) ([]EventRow, error) {
	var out struct {
		Events []EventRow `json:"events"`
	}
	if err := c.getJSON(ctx, "/events", url.Values{"link": {link}}, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// FetchLiveData fetches in-play stats and markets for one match.
func (c *Client) FetchLiveData(ctx context.Context, extID, link string) (*LiveData, error) {
	var out LiveData
	params := url.Values{"ext_id": {extID}, "link": {link}}
	if err := c.getJSON(ctx, "/live", params, &out); err != nil {
		return nil, err
	}
	if out.Markets == nil {
		out.Markets = map[string]LiveMarket{}
	}
	return &out, nil
}

// FetchResult fetches the settled outcome for one match. A gateway response
// without an outcome means the match has not been settled yet.
func (c *Client) FetchResult(ctx context.Context, extID, link string) (Outcome, bool, error) {
	var out struct {
		Outcome string `json:"outcome"`
	}
	params := url.Values{"ext_id": {extID}, "link": {link}}
	if err := c.getJSON(ctx, "/result", params, &out); err != nil {
		return "", false, err
	}
	switch Outcome(out.Outcome) {
	case OutcomeHome, OutcomeDraw, OutcomeAway:
		return Outcome(out.Outcome), true, nil
	}
	return "", false, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("feed request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed request %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("feed decode %s: %w", path, err)
	}
	return nil
}
