package snapshot

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
)

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *mockFetcher) DownloadToFile(ctx context.Context, url string, path string) (int64, error) {
	args := m.Called(ctx, url, path)
	return args.Get(0).(int64), args.Error(1)
}

// --- Source Fake ---

// countingSource returns a fresh snapshot per call and counts loads. When
// gate is non-nil each load blocks until it is closed.
type countingSource struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error

	mu     sync.Mutex
	params []Params
}

func (s *countingSource) Load(_ context.Context, p Params) (*Snapshot, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.params = append(s.params, p)
	s.mu.Unlock()
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return &Snapshot{FetchedAt: time.Now()}, nil
}

// ctxSource blocks until release is closed and then reports a degraded
// snapshot if its context was cancelled meanwhile, as Loader would on a
// failed download.
type ctxSource struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (s *ctxSource) Load(ctx context.Context, _ Params) (*Snapshot, error) {
	s.calls.Add(1)
	close(s.started)
	<-s.release
	if ctx.Err() != nil {
		return &Snapshot{Degraded: true, Reason: ctx.Err().Error()}, nil
	}
	return &Snapshot{FetchedAt: time.Now()}, nil
}
