package fetcher

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// FreshnessSelector matches the table cells that carry the register's
// "<title> - <when>" label on the data portal page.
const FreshnessSelector = "td.views-field.views-field-title"

// FreshnessState classifies a scraped freshness label.
type FreshnessState string

const (
	FreshnessOK      FreshnessState = "ok"
	FreshnessUnknown FreshnessState = "unknown"
	FreshnessError   FreshnessState = "error"
)

// Freshness is the "last updated" indicator scraped from the metadata page.
type Freshness struct {
	State FreshnessState `json:"state"`
	Label string         `json:"label,omitempty"`
	Err   string         `json:"error,omitempty"`
}

// String returns the text shown next to the dashboard title.
func (f Freshness) String() string {
	switch f.State {
	case FreshnessOK:
		return f.Label
	case FreshnessError:
		return "Error fetching the URL: " + f.Err
	default:
		return string(FreshnessUnknown)
	}
}

// UnknownFreshness is returned when the page has no usable label.
var UnknownFreshness = Freshness{State: FreshnessUnknown}

// maxPageBytes caps how much of the metadata page is read.
const maxPageBytes = 4 << 20

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_\-]+)`)

// ScrapeFreshness downloads the metadata page and extracts the last-updated
// label. It never fails: a network error yields FreshnessError and a page
// without a matching cell yields UnknownFreshness.
func ScrapeFreshness(ctx context.Context, f Fetcher, pageURL string) Freshness {
	log := zap.L().With(zap.String("component", "fetcher.freshness"), zap.String("url", pageURL))

	body, err := f.Download(ctx, pageURL)
	if err != nil {
		log.Warn("metadata page fetch failed", zap.Error(err))
		return Freshness{State: FreshnessError, Err: err.Error()}
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(body, maxPageBytes))
	if err != nil {
		log.Warn("metadata page read failed", zap.Error(err))
		return Freshness{State: FreshnessError, Err: err.Error()}
	}

	fr, err := ExtractFreshness(data)
	if err != nil {
		log.Warn("metadata page parse failed", zap.Error(err))
		return UnknownFreshness
	}
	if fr.State == FreshnessUnknown {
		log.Warn("no freshness label found", zap.String("selector", FreshnessSelector))
	}
	return fr
}

// ExtractFreshness parses an HTML page and returns the text after the first
// '-' of the first FreshnessSelector cell that contains one.
func ExtractFreshness(page []byte) (Freshness, error) {
	r, err := decodeHTML(page)
	if err != nil {
		return UnknownFreshness, err
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return UnknownFreshness, eris.Wrap(err, "html: parse")
	}

	fr := UnknownFreshness
	doc.Find(FreshnessSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		_, after, ok := strings.Cut(s.Text(), "-")
		if !ok {
			return true
		}
		label := strings.Join(strings.Fields(after), " ")
		if label == "" {
			return true
		}
		fr = Freshness{State: FreshnessOK, Label: label}
		return false
	})
	return fr, nil
}

// decodeHTML converts page to UTF-8 when its meta tag declares another
// charset.
func decodeHTML(page []byte) (io.Reader, error) {
	head := page
	if len(head) > 1024 {
		head = head[:1024]
	}
	m := metaCharsetRe.FindSubmatch(head)
	if m == nil || strings.EqualFold(string(m[1]), "utf-8") {
		return bytes.NewReader(page), nil
	}
	enc, err := htmlindex.Get(string(m[1]))
	if err != nil {
		return nil, eris.Wrapf(err, "html: unsupported charset %q", m[1])
	}
	return enc.NewDecoder().Reader(bytes.NewReader(page)), nil
}
