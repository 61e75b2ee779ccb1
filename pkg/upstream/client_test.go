package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrgID = "3f2c8a4e-9d11-4f6b-a0c7-5e8b21d94f03"

func orgPageHTML(body string) string {
	return "<html><head></head><body>" + body + "</body></html>"
}

func nextDataScript(content string) string {
	return `<script id="__NEXT_DATA__" type="application/json">` + content + `</script>`
}

func testClient(server *httptest.Server) *HTTPClient {
	c := NewHTTPClient()
	c.OrgPageBase = server.URL + "/orgs/"
	c.EventsURL = server.URL + "/events"
	return c
}

func TestResolveOrganizationID(t *testing.T) {
	blob := fmt.Sprintf(`{"props":{"pageProps":{"organization":{"id":%q,"name":"Fagkom"}}}}`, testOrgID)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgs/fagkom", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		fmt.Fprint(w, orgPageHTML(nextDataScript(blob)))
	}))
	defer server.Close()

	c := testClient(server)
	defer c.Close()

	id, err := c.ResolveOrganizationID(context.Background(), "fagkom")
	require.NoError(t, err)
	assert.Equal(t, testOrgID, id)
}

func TestResolveOrganizationIDWhitespaceFallback(t *testing.T) {
	blob := fmt.Sprintf("\n\t  {\"props\":{\"pageProps\":{\"organization\":{\"id\":%q}}}}  \n", testOrgID)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, orgPageHTML(nextDataScript(blob)))
	}))
	defer server.Close()

	c := testClient(server)
	defer c.Close()

	id, err := c.ResolveOrganizationID(context.Background(), "fagkom")
	require.NoError(t, err)
	assert.Equal(t, testOrgID, id)
}

func TestResolveOrganizationIDErrors(t *testing.T) {
	tests := []struct {
		name string
		page string
		code int
		want error
	}{
		{
			name: "error status",
			page: "not found",
			code: http.StatusNotFound,
			want: ErrHTTP,
		},
		{
			name: "no metadata script",
			page: orgPageHTML("<p>hello</p>"),
			code: http.StatusOK,
			want: ErrMetadataNotFound,
		},
		{
			name: "empty metadata script",
			page: orgPageHTML(nextDataScript("")),
			code: http.StatusOK,
			want: ErrMetadataNotFound,
		},
		{
			name: "metadata node is not a script",
			page: orgPageHTML(`<div id="__NEXT_DATA__" type="application/json">{}</div>`),
			code: http.StatusOK,
			want: ErrNotATag,
		},
		{
			name: "metadata script has wrong media type",
			page: orgPageHTML(`<script id="__NEXT_DATA__" type="text/javascript">{}</script>`),
			code: http.StatusOK,
			want: ErrNotATag,
		},
		{
			name: "metadata is not json",
			page: orgPageHTML(nextDataScript("{not json")),
			code: http.StatusOK,
			want: ErrJSON,
		},
		{
			name: "organization id absent",
			page: orgPageHTML(nextDataScript(`{"props":{"pageProps":{}}}`)),
			code: http.StatusOK,
			want: ErrSchema,
		},
		{
			name: "organization id is not a uuid",
			page: orgPageHTML(nextDataScript(`{"props":{"pageProps":{"organization":{"id":"fagkom"}}}}`)),
			code: http.StatusOK,
			want: ErrSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				fmt.Fprint(w, tt.page)
			}))
			defer server.Close()

			c := testClient(server)
			defer c.Close()

			_, err := c.ResolveOrganizationID(context.Background(), "fagkom")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolveOrganizationIDTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	c := testClient(server)
	defer c.Close()

	_, err := c.ResolveOrganizationID(context.Background(), "fagkom")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestFetchEventsSinceArray(t *testing.T) {
	watermark := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-01-01T00:00:00.000Z", r.URL.Query().Get("afterDate"))
		assert.Equal(t, testOrgID, r.URL.Query().Get("organizationId"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		fmt.Fprint(w, `[
			{"urlId":"e1","title":"Workshop","updatedAt":"2025-01-02T10:00:00.000Z"},
			{"urlId":"e2","title":"Bedpres","updatedAt":"2025-01-03T10:00:00.000Z"}
		]`)
	}))
	defer server.Close()

	c := testClient(server)
	defer c.Close()

	events, err := c.FetchEventsSince(context.Background(), testOrgID, watermark)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", *events[0].URLID)
	assert.Equal(t, "Workshop", *events[0].Title)
	assert.Equal(t, "e2", *events[1].URLID)
}

func TestFetchEventsSinceBareObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"urlId":"e1","title":"Workshop","updatedAt":"2025-01-02T10:00:00.000Z"}`)
	}))
	defer server.Close()

	c := testClient(server)
	defer c.Close()

	events, err := c.FetchEventsSince(context.Background(), testOrgID, time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", *events[0].URLID)
}

func TestFetchEventsSinceAbsentFieldsStayNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"urlId":"e1","updatedAt":"2025-01-02T10:00:00.000Z"}]`)
	}))
	defer server.Close()

	c := testClient(server)
	defer c.Close()

	events, err := c.FetchEventsSince(context.Background(), testOrgID, time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Title)
	assert.Nil(t, events[0].Description)
	assert.Nil(t, events[0].StartDate)
	assert.Nil(t, events[0].LocationName)
}

func TestFetchEventsSinceErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		want error
	}{
		{"error status", "busy", http.StatusInternalServerError, ErrHTTP},
		{"empty body", "", http.StatusOK, ErrJSON},
		{"malformed body", "{broken", http.StatusOK, ErrJSON},
		{"scalar body", `"hello"`, http.StatusOK, ErrJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			c := testClient(server)
			defer c.Close()

			_, err := c.FetchEventsSince(context.Background(), testOrgID, time.Now())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchEventsSinceCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	c := testClient(server)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.FetchEventsSince(ctx, testOrgID, time.Now())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestNormalizeEventsPreservesOrder(t *testing.T) {
	body := []byte(`[{"urlId":"a"},{"urlId":"b"},{"urlId":"c"}]`)
	events, err := normalizeEvents(body)
	require.NoError(t, err)

	var ids []string
	for _, e := range events {
		ids = append(ids, *e.URLID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

var _ Client = (*HTTPClient)(nil)
