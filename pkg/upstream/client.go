package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heraldbot/herald/pkg/clock"
	"github.com/heraldbot/herald/pkg/log"
	"github.com/heraldbot/herald/pkg/types"
)

const (
	defaultOrgPageBase = "https://peoply.app/orgs/"
	defaultEventsURL   = "https://api.peoply.app/events"

	requestTimeout = 10 * time.Second

	// The organization page is served by a frontend that answers
	// differently to non-browser agents, so resolution pretends to
	// be one. The API endpoint gets an honest bot agent.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"
	botUserAgent     = "herald-bot/1.0 (+https://github.com/heraldbot/herald)"

	metadataScriptID = "__NEXT_DATA__"
)

// Client is the engine's view of the upstream provider.
type Client interface {
	ResolveOrganizationID(ctx context.Context, name string) (string, error)
	FetchEventsSince(ctx context.Context, orgID string, watermark time.Time) ([]types.RawEvent, error)
	Close()
}

// HTTPClient implements Client against peoply.app. NewHTTPClient sets
// OrgPageBase and EventsURL to the production endpoints; tests point
// them at local servers.
type HTTPClient struct {
	OrgPageBase string
	EventsURL   string

	logger zerolog.Logger

	mu   sync.Mutex
	http *http.Client
}

// NewHTTPClient creates a client for the production endpoints. The
// underlying HTTP session is created lazily on first use.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		OrgPageBase: defaultOrgPageBase,
		EventsURL:   defaultEventsURL,
		logger:      log.WithComponent("upstream"),
	}
}

func (c *HTTPClient) session() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http == nil {
		c.http = &http.Client{Timeout: requestTimeout}
	}
	return c.http
}

// Close releases the HTTP session. The client is unusable afterwards
// except by lazily recreating the session, which Herald never does
// after stop.
func (c *HTTPClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http != nil {
		c.http.CloseIdleConnections()
		c.http = nil
	}
}

// organizationPage mirrors the slice of the Next.js data blob the
// resolver needs.
type organizationPage struct {
	Props struct {
		PageProps struct {
			Organization struct {
				ID string `json:"id"`
			} `json:"organization"`
		} `json:"pageProps"`
	} `json:"props"`
}

// ResolveOrganizationID scrapes the public organization page and
// extracts the organization's stable UUID from the embedded metadata
// script. Called once per process lifetime, at startup.
func (c *HTTPClient) ResolveOrganizationID(ctx context.Context, name string) (string, error) {
	pageURL := c.OrgPageBase + url.PathEscape(name)
	c.logger.Debug().Str("url", pageURL).Msg("Resolving organization id")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.session().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: %d fetching %s", ErrHTTP, resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: parse organization page: %v", ErrMetadataNotFound, err)
	}

	sel := doc.Find("#" + metadataScriptID)
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: no #%s node", ErrMetadataNotFound, metadataScriptID)
	}

	node := sel.First()
	if goquery.NodeName(node) != "script" {
		return "", fmt.Errorf("%w: #%s is a %s element", ErrNotATag, metadataScriptID, goquery.NodeName(node))
	}
	if mediaType, _ := node.Attr("type"); mediaType != "application/json" {
		return "", fmt.Errorf("%w: #%s has media type %q", ErrNotATag, metadataScriptID, mediaType)
	}

	raw := node.Text()
	if raw == "" {
		return "", fmt.Errorf("%w: #%s is empty", ErrMetadataNotFound, metadataScriptID)
	}

	var page organizationPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		// The blob occasionally carries stray whitespace; retry on
		// the trimmed text before giving up.
		if err2 := json.Unmarshal([]byte(strings.TrimSpace(raw)), &page); err2 != nil {
			return "", fmt.Errorf("%w: decode metadata: %v", ErrJSON, err)
		}
	}

	id := page.Props.PageProps.Organization.ID
	if id == "" {
		return "", fmt.Errorf("%w: props.pageProps.organization.id", ErrSchema)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: organization id %q is not a UUID", ErrSchema, id)
	}

	c.logger.Info().Str("organization_id", id).Msg("Resolved organization id")
	return id, nil
}

// FetchEventsSince queries the events API for everything modified
// after the watermark. The upstream answers with either a JSON array
// or a bare object; both are normalized to a slice.
func (c *HTTPClient) FetchEventsSince(ctx context.Context, orgID string, watermark time.Time) ([]types.RawEvent, error) {
	query := url.Values{}
	query.Set("afterDate", clock.Format(watermark))
	query.Set("organizationId", orgID)
	fetchURL := c.EventsURL + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", botUserAgent)

	resp, err := c.session().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %d fetching %s", ErrHTTP, resp.StatusCode, fetchURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	return normalizeEvents(body)
}

// normalizeEvents accepts either a JSON array of event payloads or a
// single payload object.
func normalizeEvents(body []byte) ([]types.RawEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrJSON)
	}

	switch trimmed[0] {
	case '[':
		var events []types.RawEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("%w: decode event list: %v", ErrJSON, err)
		}
		return events, nil
	case '{':
		var event types.RawEvent
		if err := json.Unmarshal(trimmed, &event); err != nil {
			return nil, fmt.Errorf("%w: decode event object: %v", ErrJSON, err)
		}
		return []types.RawEvent{event}, nil
	default:
		return nil, fmt.Errorf("%w: body is neither array nor object", ErrJSON)
	}
}
