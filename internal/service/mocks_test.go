package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/vipul43/listing-sync/internal/models"
)

type mockListingFetcher struct {
	fetchListingsFunc func(ctx context.Context, agencyID int64, pageSize int) ([]models.Listing, error)
}

func (m *mockListingFetcher) FetchListings(ctx context.Context, agencyID int64, pageSize int) ([]models.Listing, error) {
	if m.fetchListingsFunc != nil {
		return m.fetchListingsFunc(ctx, agencyID, pageSize)
	}
	return nil, nil
}

type mockStatisticsFetcher struct {
	fetchFunc func(ctx context.Context, listingID int64) (*models.ListingStatistics, bool)
}

func (m *mockStatisticsFetcher) Fetch(ctx context.Context, listingID int64) (*models.ListingStatistics, bool) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, listingID)
	}
	return nil, false
}

type upsertCall struct {
	ListingID string
	Fields    models.Fields
}

type mockRecordUpserter struct {
	mu         sync.Mutex
	calls      []upsertCall
	upsertFunc func(ctx context.Context, listingID string, fields models.Fields) error
}

func (m *mockRecordUpserter) Upsert(ctx context.Context, listingID string, fields models.Fields) error {
	m.mu.Lock()
	m.calls = append(m.calls, upsertCall{ListingID: listingID, Fields: fields})
	m.mu.Unlock()
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, listingID, fields)
	}
	return nil
}

// memoryRecordStore is an in-memory RecordStore keyed like the real one.
type memoryRecordStore struct {
	mu      sync.Mutex
	nextID  int
	byKey   map[string]string
	records map[string]models.Fields
	findErr error
}

func newMemoryRecordStore() *memoryRecordStore {
	return &memoryRecordStore{byKey: map[string]string{}, records: map[string]models.Fields{}}
}

func (s *memoryRecordStore) FindByKey(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return "", false, s.findErr
	}
	id, ok := s.byKey[key]
	return id, ok, nil
}

func (s *memoryRecordStore) Create(_ context.Context, key string, fields models.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("rec%d", s.nextID)
	s.byKey[key] = id
	s.records[id] = fields
	return nil
}

func (s *memoryRecordStore) Update(_ context.Context, id string, fields models.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("record %s not found", id)
	}
	s.records[id] = fields
	return nil
}

type mockValidator struct {
	err error
}

func (m *mockValidator) Validate() error { return m.err }

type mockAccountProcessor struct {
	processAccountFunc func(ctx context.Context, account models.SourceAccount, pageSize int) (int, error)
}

func (m *mockAccountProcessor) ProcessAccount(ctx context.Context, account models.SourceAccount, pageSize int) (int, error) {
	if m.processAccountFunc != nil {
		return m.processAccountFunc(ctx, account, pageSize)
	}
	return 0, nil
}
