package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const portalPage = `<html><head><meta charset="utf-8"></head><body>
<table>
  <tr>
    <td class="views-field views-field-title">
      TEC Register - 2 days ago
    </td>
    <td class="views-field views-field-format">CSV</td>
  </tr>
  <tr>
    <td class="views-field views-field-title">Older Register - 3 weeks ago</td>
  </tr>
</table>
</body></html>`

func TestExtractFreshness(t *testing.T) {
	fr, err := ExtractFreshness([]byte(portalPage))
	require.NoError(t, err)
	assert.Equal(t, FreshnessOK, fr.State)
	assert.Equal(t, "2 days ago", fr.Label)
	assert.Equal(t, "2 days ago", fr.String())
}

func TestExtractFreshness_KeepsLaterDashes(t *testing.T) {
	page := `<td class="views-field views-field-title">TEC Register - 27-09-2024</td>`
	fr, err := ExtractFreshness([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "27-09-2024", fr.Label)
}

func TestExtractFreshness_SkipsCellsWithoutSeparator(t *testing.T) {
	page := `<table><tr><td class="views-field views-field-title">Untitled</td></tr>
<tr><td class="views-field views-field-title">TEC Register - yesterday</td></tr></table>`
	fr, err := ExtractFreshness([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "yesterday", fr.Label)
}

func TestExtractFreshness_NoMatchIsUnknown(t *testing.T) {
	page := `<html><body><table><tr><td class="views-field">TEC Register - 2 days ago</td></tr></table></body></html>`
	fr, err := ExtractFreshness([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, UnknownFreshness, fr)
	assert.Equal(t, "unknown", fr.String())
}

func TestExtractFreshness_Latin1(t *testing.T) {
	page := `<html><head><meta http-equiv="Content-Type" content="text/html; charset=iso-8859-1"></head>
<body><table><tr><td class="views-field views-field-title">Registre - mis à jour</td></tr></table></body></html>`
	encoded, err := charmap.ISO8859_1.NewEncoder().String(page)
	require.NoError(t, err)

	fr, err := ExtractFreshness([]byte(encoded))
	require.NoError(t, err)
	assert.Equal(t, "mis à jour", fr.Label)
}

func TestExtractFreshness_UnsupportedCharset(t *testing.T) {
	page := `<meta charset="x-klingon"><td class="views-field views-field-title">a - b</td>`
	fr, err := ExtractFreshness([]byte(page))
	require.Error(t, err)
	assert.Equal(t, UnknownFreshness, fr)
}

func TestScrapeFreshness(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, portalPage)
	}))
	defer srv.Close()

	fr := ScrapeFreshness(context.Background(), newTestFetcher(), srv.URL)
	assert.Equal(t, Freshness{State: FreshnessOK, Label: "2 days ago"}, fr)
}

func TestScrapeFreshness_ChangedLayout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body><p>Redesigned portal</p></body></html>")
	}))
	defer srv.Close()

	fr := ScrapeFreshness(context.Background(), newTestFetcher(), srv.URL)
	assert.Equal(t, "unknown", fr.String())
}

func TestScrapeFreshness_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	fr := ScrapeFreshness(context.Background(), newTestFetcher(), addr)
	assert.Equal(t, FreshnessError, fr.State)
	assert.NotEmpty(t, fr.Err)
	assert.True(t, strings.HasPrefix(fr.String(), "Error fetching the URL: "))
}

func TestScrapeFreshness_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fr := ScrapeFreshness(context.Background(), newTestFetcher(), srv.URL)
	assert.Equal(t, FreshnessError, fr.State)
	assert.Contains(t, fr.Err, "502")
}
