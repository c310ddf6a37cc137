package propora

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Haven-Estates/propora-adapter/internal/store"
	"github.com/Haven-Estates/propora-adapter/pkg/model"
)

// memoryStore is an in-memory store.Store for sync tests.
type memoryStore struct {
	leads   map[string]model.Lead
	kv      map[string][]byte
	upserts int
	fail    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{leads: map[string]model.Lead{}, kv: map[string][]byte{}}
}

func (m *memoryStore) UpsertLeadByExternalID(_ context.Context, lead model.Lead) error {
	if m.fail != nil {
		return m.fail
	}
	m.upserts++
	m.leads[lead.ExternalID] = lead
	return nil
}

func (m *memoryStore) GetLeadByExternalID(_ context.Context, id string) (*model.Lead, error) {
	l, ok := m.leads[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *memoryStore) ListLeads(context.Context, store.LeadFilter) ([]model.Lead, error) {
	var out []model.Lead
	for _, l := range m.leads {
		out = append(out, l)
	}
	return out, nil
}

func (m *memoryStore) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	m.kv[key] = []byte(fmt.Sprintf("%v", value))
	return nil
}

func (m *memoryStore) GetJSON(_ context.Context, key string, _ any) error {
	if _, ok := m.kv[key]; !ok {
		return store.ErrCacheMiss
	}
	return nil
}

func (m *memoryStore) HealthCheck(context.Context) error { return nil }
func (m *memoryStore) Close() error                      { return nil }

// fakeFetcher serves a fixed raw batch and records the requested window.
type fakeFetcher struct {
	raws  []RawRecord
	err   error
	since time.Time
	calls int
}

func (f *fakeFetcher) FetchLeadsSince(_ context.Context, since time.Time) ([]RawRecord, error) {
	f.calls++
	f.since = since
	return f.raws, f.err
}

type fakePublisher struct {
	count  int
	events int
}

func (f *fakePublisher) PublishLeadSynced(_ context.Context, _ string, count int, _ time.Time) error {
	f.events++
	f.count = count
	return nil
}

func tenRawLeads() []RawRecord {
	raws := make([]RawRecord, 0, 10)
	for i := 1; i <= 10; i++ {
		raws = append(raws, RawRecord{
			"id": fmt.Sprintf("ext-%d", i),
			"sender": map[string]any{
				"name":  fmt.Sprintf("Client %d", i),
				"email": fmt.Sprintf("client%d@example.com", i),
			},
		})
	}
	return raws
}

func TestSyncLeads_SyncsAndCounts(t *testing.T) {
	st := newMemoryStore()
	fetcher := &fakeFetcher{raws: tenRawLeads()}
	pub := &fakePublisher{}
	svc := NewService(zap.NewNop(), fetcher, st, pub, "evt.lead.synced.v1.PROPORA")

	result, err := svc.SyncLeads(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 10, result.Count)
	assert.Len(t, st.leads, 10)
	assert.Equal(t, 1, pub.events)
	assert.Equal(t, 10, pub.count)
}

func TestSyncLeads_RerunIsIdempotent(t *testing.T) {
	st := newMemoryStore()
	fetcher := &fakeFetcher{raws: tenRawLeads()}
	svc := NewService(zap.NewNop(), fetcher, st, nil, "")

	for run := 0; run < 2; run++ {
		result, err := svc.SyncLeads(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, 10, result.Count)
	}

	// Two runs over an unchanged upstream: still exactly 10 unique leads,
	// every row replaced in place by the second run.
	assert.Len(t, st.leads, 10)
	assert.Equal(t, 20, st.upserts)
	assert.Equal(t, "Client 3", st.leads["ext-3"].Name)
}

func TestSyncLeads_DefaultWindowIsTwoMonths(t *testing.T) {
	st := newMemoryStore()
	fetcher := &fakeFetcher{}
	svc := NewService(zap.NewNop(), fetcher, st, nil, "")

	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.SyncLeads(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, -2, 0), fetcher.since)
}

func TestSyncLeads_ExplicitSinceWins(t *testing.T) {
	st := newMemoryStore()
	fetcher := &fakeFetcher{}
	svc := NewService(zap.NewNop(), fetcher, st, nil, "")

	since := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.SyncLeads(context.Background(), &since)
	require.NoError(t, err)
	assert.Equal(t, since, fetcher.since)
}

func TestSyncLeads_FetchFailureAbortsBeforePersisting(t *testing.T) {
	st := newMemoryStore()
	fetcher := &fakeFetcher{err: errors.New("propora server error: 503")}
	svc := NewService(zap.NewNop(), fetcher, st, nil, "")

	result, err := svc.SyncLeads(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, st.leads)
}

func TestSyncLeads_UpsertFailureAborts(t *testing.T) {
	st := newMemoryStore()
	st.fail = errors.New("postgres unavailable")
	fetcher := &fakeFetcher{raws: tenRawLeads()}
	svc := NewService(zap.NewNop(), fetcher, st, nil, "")

	_, err := svc.SyncLeads(context.Background(), nil)
	assert.Error(t, err)
}

func TestSyncLeads_UnkeyableRecordsAreSkippedNotFatal(t *testing.T) {
	raws := tenRawLeads()
	raws = append(raws, RawRecord{"name": "No ID At All"})

	st := newMemoryStore()
	fetcher := &fakeFetcher{raws: raws}
	svc := NewService(zap.NewNop(), fetcher, st, nil, "")

	result, err := svc.SyncLeads(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Count)
	assert.Len(t, st.leads, 10)
}
