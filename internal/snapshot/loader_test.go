package snapshot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/tec-dashboard/internal/fetcher"
	"github.com/sells-group/tec-dashboard/internal/tec"
)

const registerCSV = "Project Name,Customer Name,HOST TO,Plant Type,Project Status,Agreement Type,Cumulative Total Capacity (MW),MW Increase / Decrease,MW Effective From\n" +
	"Alpha Wind,Alpha Ltd,NGET,Wind Offshore,Scoping,Directly Connected,1200,200,2026-03-31\n" +
	"Beta Storage,Beta Ltd,SHET,Energy Storage System,Built,Embedded,49.9,-0.1,N/A\n" +
	"Gamma CCGT,Gamma plc,SPT,CCGT,Awaiting Consents,Directly Connected,800,0,31/10/2027\n"

const portalHTML = `<table><tr><td class="views-field views-field-title">TEC Register - 4 days ago</td></tr></table>`

type fakeNESO struct {
	csvStatus  int
	csvBody    string
	htmlStatus int
	htmlBody   string
}

func (n fakeNESO) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/register.csv":
			if n.csvStatus != 0 {
				w.WriteHeader(n.csvStatus)
			}
			io.WriteString(w, n.csvBody)
		case "/portal":
			if n.htmlStatus != 0 {
				w.WriteHeader(n.htmlStatus)
			}
			io.WriteString(w, n.htmlBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testParams(t *testing.T, srv *httptest.Server) Params {
	t.Helper()
	return Params{
		DatasetURL:  srv.URL + "/register.csv",
		MetadataURL: srv.URL + "/portal",
		CachePath:   filepath.Join(t.TempDir(), "datastore", "tecregister.csv"),
	}
}

func newTestLoader() *Loader {
	l := NewLoader(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second}))
	l.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return l
}

func TestLoad(t *testing.T) {
	srv := fakeNESO{csvBody: registerCSV, htmlBody: portalHTML}.server(t)
	p := testParams(t, srv)

	snap, err := newTestLoader().Load(context.Background(), p)
	require.NoError(t, err)

	assert.False(t, snap.Degraded)
	assert.Equal(t, 3, snap.Dataset.Len())
	assert.Equal(t, []string{"Customer Name"}, snap.Dataset.ExtraColumns)
	assert.Equal(t, "4 days ago", snap.Freshness.String())
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), snap.FetchedAt)

	beta := snap.Dataset.Records[1]
	assert.Nil(t, beta.ConnectionDate)
	assert.Equal(t, "2027-10-31", tec.FormatDate(snap.Dataset.Records[2].ConnectionDate))

	cached, err := os.ReadFile(p.CachePath)
	require.NoError(t, err)
	assert.Equal(t, registerCSV, string(cached))
}

func TestLoad_DatasetNon2xxIsEmpty(t *testing.T) {
	srv := fakeNESO{csvStatus: http.StatusInternalServerError, htmlBody: portalHTML}.server(t)

	snap, err := newTestLoader().Load(context.Background(), testParams(t, srv))
	require.NoError(t, err)
	assert.True(t, snap.Degraded)
	assert.Contains(t, snap.Reason, "500")
	assert.Equal(t, 0, snap.Dataset.Len())
	assert.NotNil(t, snap.Dataset.Records)

	// Downstream aggregation over the empty dataset stays well-typed.
	view := tec.Filter(snap.Dataset, tec.DefaultSelection(snap.Dataset))
	assert.Equal(t, 0, view.Len())
	assert.Empty(t, tec.CapacityByPlantTypeOwner(view).Cells)
	assert.Empty(t, tec.CapacityHierarchy(view).Leaves)
	assert.Empty(t, tec.CapacityDistribution(view).ByOwner)
	assert.Empty(t, tec.CapacityTimeline(view))
	assert.Equal(t, 0, tec.Summarize(view).Owners)
	assert.InDelta(t, 0, tec.Summarize(view).Capacity, 0.001)
}

func TestLoad_FailedDownloadKeepsPreviousCacheFile(t *testing.T) {
	srv := fakeNESO{csvStatus: http.StatusNotFound, htmlBody: portalHTML}.server(t)
	p := testParams(t, srv)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.CachePath), 0o755))
	require.NoError(t, os.WriteFile(p.CachePath, []byte(registerCSV), 0o644))

	snap, err := newTestLoader().Load(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Dataset.Len())

	cached, err := os.ReadFile(p.CachePath)
	require.NoError(t, err)
	assert.Equal(t, registerCSV, string(cached))
}

func TestLoad_FreshnessUnknownOnLayoutChange(t *testing.T) {
	srv := fakeNESO{csvBody: registerCSV, htmlBody: "<div>new portal</div>"}.server(t)

	snap, err := newTestLoader().Load(context.Background(), testParams(t, srv))
	require.NoError(t, err)
	assert.Equal(t, fetcher.UnknownFreshness, snap.Freshness)
	assert.Equal(t, 3, snap.Dataset.Len())
}

func TestLoad_SchemaDriftIsFatal(t *testing.T) {
	drifted := strings.Replace(registerCSV, "HOST TO", "Transmission Owner", 1)
	srv := fakeNESO{csvBody: drifted, htmlBody: portalHTML}.server(t)

	snap, err := newTestLoader().Load(context.Background(), testParams(t, srv))
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.True(t, eris.Is(err, tec.ErrSchemaDrift))
}

func TestLoad_EmptyBody(t *testing.T) {
	srv := fakeNESO{csvBody: "", htmlBody: portalHTML}.server(t)

	snap, err := newTestLoader().Load(context.Background(), testParams(t, srv))
	require.NoError(t, err)
	assert.True(t, snap.Degraded)
	assert.Equal(t, 0, snap.Dataset.Len())
}

func TestLoad_MockedFetcherFailures(t *testing.T) {
	f := new(mockFetcher)
	f.On("DownloadToFile", mock.Anything, "https://example.test/register.csv", "/nonexistent/tecregister.csv").
		Return(int64(0), eris.New("dial tcp: connection refused"))
	f.On("Download", mock.Anything, "https://example.test/portal").
		Return(nil, eris.New("dial tcp: connection refused"))

	l := NewLoader(f)
	snap, err := l.Load(context.Background(), Params{
		DatasetURL:  "https://example.test/register.csv",
		MetadataURL: "https://example.test/portal",
		CachePath:   "/nonexistent/tecregister.csv",
	})
	require.NoError(t, err)
	assert.True(t, snap.Degraded)
	assert.Equal(t, 0, snap.Dataset.Len())
	assert.Equal(t, fetcher.FreshnessError, snap.Freshness.State)
	assert.Contains(t, snap.Freshness.String(), "connection refused")
	f.AssertExpectations(t)
}

func TestReadTable_XLSXByExtension(t *testing.T) {
	_, err := ReadTable(context.Background(), Params{CachePath: filepath.Join(t.TempDir(), "missing.xlsx")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read workbook")
}

func TestReadTable_MissingCSV(t *testing.T) {
	_, err := ReadTable(context.Background(), Params{CachePath: filepath.Join(t.TempDir(), "missing.csv")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open cache file")
}

func TestLoad_CancelledContextIsError(t *testing.T) {
	srv := fakeNESO{csvBody: registerCSV, htmlBody: portalHTML}.server(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := newTestLoader().Load(ctx, testParams(t, srv))
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.True(t, eris.Is(err, context.Canceled))
}

func TestReadTable_XLSXSheetSelection(t *testing.T) {
	f := xlsx.NewFile()
	for _, name := range []string{"Notes", "TEC Register"} {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, line := range strings.Split(strings.TrimSpace(registerCSV), "\n") {
			row := sheet.AddRow()
			for _, cell := range strings.Split(line, ",") {
				row.AddCell().SetString(cell)
			}
			if name == "Notes" {
				break
			}
		}
	}
	path := filepath.Join(t.TempDir(), "tecregister.xlsx")
	require.NoError(t, f.Save(path))

	byName, err := ReadTable(context.Background(), Params{CachePath: path, SheetName: "TEC Register"})
	require.NoError(t, err)
	assert.Len(t, byName.Rows, 3)
	ds, err := tec.Normalize(byName)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	byIndex, err := ReadTable(context.Background(), Params{CachePath: path, SheetIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, byName, byIndex)

	first, err := ReadTable(context.Background(), Params{CachePath: path})
	require.NoError(t, err)
	assert.Empty(t, first.Rows)

	_, err = ReadTable(context.Background(), Params{CachePath: path, SheetName: "Missing"})
	assert.Error(t, err)
}

func TestLoad_SemicolonDelimitedRegister(t *testing.T) {
	body := strings.ReplaceAll(registerCSV, ",", ";")
	srv := fakeNESO{csvBody: body, htmlBody: portalHTML}.server(t)
	p := testParams(t, srv)
	p.Delimiter = ";"

	snap, err := newTestLoader().Load(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, snap.Degraded)
	assert.Equal(t, 3, snap.Dataset.Len())
	assert.Equal(t, "SHET", snap.Dataset.Records[1].HostTO)
}
