// Package snapshot loads the TEC register into a canonical dataset and
// memoizes it for the lifetime of a session.
package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tec-dashboard/internal/fetcher"
	"github.com/sells-group/tec-dashboard/internal/tec"
)

// Params identifies one snapshot source. It is the cache key.
type Params struct {
	DatasetURL  string `json:"dataset_url"`
	MetadataURL string `json:"metadata_url"`
	CachePath   string `json:"cache_path"`
	// Delimiter separates fields of a CSV register; empty means ','.
	Delimiter string `json:"delimiter,omitempty"`
	// SheetName selects the worksheet of an .xlsx register. When empty,
	// SheetIndex is used.
	SheetName  string `json:"sheet_name,omitempty"`
	SheetIndex int    `json:"sheet_index,omitempty"`
}

// Snapshot is one load of the register.
type Snapshot struct {
	Dataset   *tec.Dataset      `json:"-"`
	Freshness fetcher.Freshness `json:"freshness"`
	FetchedAt time.Time         `json:"fetched_at"`
	// Degraded is set when the register could not be downloaded or
	// persisted and Dataset is empty.
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// Source produces snapshots. Loader is the production implementation.
type Source interface {
	Load(ctx context.Context, p Params) (*Snapshot, error)
}

// Loader fetches, persists and normalizes the register.
type Loader struct {
	fetcher fetcher.Fetcher
	now     func() time.Time
}

// NewLoader creates a Loader that downloads through f.
func NewLoader(f fetcher.Fetcher) *Loader {
	return &Loader{fetcher: f, now: time.Now}
}

// Load downloads the register into p.CachePath and scrapes the freshness
// label concurrently. Network and persistence failures degrade to an empty
// dataset; a register whose columns no longer match the canonical schema is
// returned as an error wrapping tec.ErrSchemaDrift.
func (l *Loader) Load(ctx context.Context, p Params) (*Snapshot, error) {
	log := zap.L().With(zap.String("component", "snapshot.loader"))

	snap := &Snapshot{FetchedAt: l.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ds, reason, err := l.loadDataset(gctx, p)
		if err != nil {
			return err
		}
		snap.Dataset = ds
		if reason != "" {
			snap.Degraded = true
			snap.Reason = reason
		}
		return nil
	})

	g.Go(func() error {
		snap.Freshness = fetcher.ScrapeFreshness(gctx, l.fetcher, p.MetadataURL)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("snapshot loaded",
		zap.Int("records", snap.Dataset.Len()),
		zap.String("freshness", snap.Freshness.String()),
		zap.Bool("degraded", snap.Degraded),
	)
	return snap, nil
}

// loadDataset returns the normalized register, or an empty dataset plus the
// reason when the download could not be completed.
func (l *Loader) loadDataset(ctx context.Context, p Params) (*tec.Dataset, string, error) {
	log := zap.L().With(zap.String("component", "snapshot.loader"), zap.String("url", p.DatasetURL))

	n, err := l.fetcher.DownloadToFile(ctx, p.DatasetURL, p.CachePath)
	if err != nil {
		// Cancellation is not a network failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", eris.Wrap(ctxErr, "snapshot: download register")
		}
		log.Warn("register download failed, serving empty dataset", zap.Error(err))
		return tec.Empty(), err.Error(), nil
	}
	log.Debug("register cached", zap.String("path", p.CachePath), zap.Int64("bytes", n))

	raw, err := ReadTable(ctx, p)
	if err != nil {
		return nil, "", err
	}
	if raw.Header == nil {
		log.Warn("register is empty", zap.String("path", p.CachePath))
		return tec.Empty(), "register body was empty", nil
	}

	ds, err := tec.Normalize(raw)
	if err != nil {
		return nil, "", eris.Wrapf(err, "snapshot: normalize %s", filepath.Base(p.CachePath))
	}
	return ds, "", nil
}

// ReadTable reads the cached register file at p.CachePath. Files ending in
// .xlsx are read as workbooks using p's sheet selection, everything else as
// CSV split on p.Delimiter.
func ReadTable(ctx context.Context, p Params) (tec.RawTable, error) {
	if strings.EqualFold(filepath.Ext(p.CachePath), ".xlsx") {
		header, rows, err := fetcher.ReadXLSX(p.CachePath, fetcher.XLSXOptions{
			SheetName:  p.SheetName,
			SheetIndex: p.SheetIndex,
		})
		if err != nil {
			return tec.RawTable{}, eris.Wrap(err, "snapshot: read workbook")
		}
		return tec.RawTable{Header: header, Rows: rows}, nil
	}

	f, err := os.Open(p.CachePath)
	if err != nil {
		return tec.RawTable{}, eris.Wrap(err, "snapshot: open cache file")
	}
	defer f.Close() //nolint:errcheck

	opts := fetcher.CSVOptions{LazyQuotes: true}
	if p.Delimiter != "" {
		opts.Delimiter, _ = utf8.DecodeRuneInString(p.Delimiter)
	}
	header, rows, err := fetcher.ReadCSV(ctx, f, opts)
	if err != nil {
		return tec.RawTable{}, eris.Wrap(err, "snapshot: read csv")
	}
	return tec.RawTable{Header: header, Rows: rows}, nil
}
