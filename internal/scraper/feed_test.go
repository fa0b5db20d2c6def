package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Appeal documents</title>
  <item>
    <title>MDRPH052 Philippines Floods DREF</title>
    <link>https://example.org/docs/MDRPH052.pdf</link>
    <pubDate>Mon, 04 Mar 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Operation update</title>
    <link>https://example.org/docs/mdrke050-ou1.pdf</link>
  </item>
  <item>
    <title>Annual report</title>
    <link>https://example.org/annual.pdf</link>
  </item>
  <item>
    <title>MAANP001 country plan</title>
    <link>https://example.org/page</link>
    <enclosure url="https://example.org/files/plan.pdf" type="application/pdf" length="10"/>
  </item>
</channel>
</rss>`

func TestAppealCode(t *testing.T) {
	code, ok := AppealCode("DREF MDRbd001 final report")
	assert.True(t, ok)
	assert.Equal(t, "MDRBD001", code)

	_, ok = AppealCode("XMDRBD0012")
	assert.False(t, ok)
}

func TestParseFeed(t *testing.T) {
	items, err := ParseFeed(strings.NewReader(sampleFeed))
	require.NoError(t, err)
	require.Len(t, items, 3, "items without an appeal code are dropped")

	assert.Equal(t, "MDRPH052", items[0].Code)
	assert.Equal(t, "https://example.org/docs/MDRPH052.pdf", items[0].URL)
	require.NotNil(t, items[0].Published)
	assert.Equal(t, 2024, items[0].Published.Year())

	assert.Equal(t, "MDRKE050", items[1].Code, "code taken from the link")
	assert.Equal(t, "MAANP001", items[2].Code)
	assert.Equal(t, "https://example.org/files/plan.pdf", items[2].URL, "pdf enclosure preferred")
}

func TestFetchFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	items, err := FetchFeed(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	_, err = FetchFeed(context.Background(), srv.Client(), "http://127.0.0.1:1/feed")
	assert.Error(t, err)
}
