package models

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

// fakeLinkStore keeps links in memory and can inject concurrent attaches
// partway through a bulk insert.
type fakeLinkStore struct {
	links        map[int]bool // cableId -> linked
	batchCalls   int
	rowCalls     int
	raceOnCable  int // cableId linked by "someone else" just before the batch insert
	raceArmed    bool
	failRowError error
}

func newFakeLinkStore() *fakeLinkStore {
	return &fakeLinkStore{links: map[int]bool{}}
}

func duplicateErr() error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
}

func (s *fakeLinkStore) ExistingLinks(ctx context.Context, reportId int, cableIds []int) (map[int]bool, error) {
	existing := map[int]bool{}
	for _, id := range cableIds {
		if s.links[id] {
			existing[id] = true
		}
	}
	return existing, nil
}

func (s *fakeLinkStore) InsertLinks(ctx context.Context, links []*DailyLink) error {
	s.batchCalls++
	if s.raceArmed {
		s.links[s.raceOnCable] = true
		s.raceArmed = false
	}
	for _, link := range links {
		if s.links[link.CableId] {
			return duplicateErr()
		}
	}
	for _, link := range links {
		s.links[link.CableId] = true
	}
	return nil
}

func (s *fakeLinkStore) InsertLink(ctx context.Context, link *DailyLink) error {
	s.rowCalls++
	if s.failRowError != nil {
		return s.failRowError
	}
	if s.links[link.CableId] {
		return duplicateErr()
	}
	s.links[link.CableId] = true
	return nil
}

func cableFixtures(n int) []*CableRecord {
	cables := make([]*CableRecord, n)
	for i := range cables {
		cables[i] = &CableRecord{ID: i + 1, Code: fmt.Sprintf("C-%03d", i+1)}
	}
	return cables
}

func TestAttachResolved_SkipsAlreadyLinked(t *testing.T) {
	store := newFakeLinkStore()
	cables := cableFixtures(10)
	for _, id := range []int{2, 5, 9} {
		store.links[id] = true
	}

	report := &BulkAttachReport{MissingCodes: []string{}}
	if err := attachResolved(context.Background(), store, 42, cables, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Added != 7 || report.SkippedAlreadyLinked != 3 {
		t.Fatalf("expected 7 added / 3 skipped, got %+v", report)
	}
	if report.DuplicateRaceCount != 0 {
		t.Fatalf("expected no races, got %+v", report)
	}
}

func TestAttachResolved_ChunksLargeBatches(t *testing.T) {
	store := newFakeLinkStore()
	cables := cableFixtures(60)

	report := &BulkAttachReport{MissingCodes: []string{}}
	if err := attachResolved(context.Background(), store, 42, cables, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Added != 60 {
		t.Fatalf("expected 60 added, got %+v", report)
	}
	// 60 rows in chunks of 25: 25 + 25 + 10.
	if store.batchCalls != 3 {
		t.Fatalf("expected 3 batch inserts, got %d", store.batchCalls)
	}
	if store.rowCalls != 0 {
		t.Fatalf("expected no row-by-row fallback, got %d", store.rowCalls)
	}
}

func TestAttachResolved_RacedChunkReplaysRowByRow(t *testing.T) {
	store := newFakeLinkStore()
	cables := cableFixtures(10)
	// Cable 4 gets linked by a concurrent request after the existence check.
	store.raceOnCable = 4
	store.raceArmed = true

	report := &BulkAttachReport{MissingCodes: []string{}}
	if err := attachResolved(context.Background(), store, 42, cables, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Added != 9 {
		t.Fatalf("expected 9 added, got %+v", report)
	}
	if report.DuplicateRaceCount != 1 {
		t.Fatalf("expected 1 raced duplicate, got %+v", report)
	}
	// The failed chunk is replayed one row at a time.
	if store.rowCalls != 10 {
		t.Fatalf("expected 10 row inserts in the replay, got %d", store.rowCalls)
	}
	for _, cable := range cables {
		if !store.links[cable.ID] {
			t.Fatalf("cable %d ended up unlinked", cable.ID)
		}
	}
}

func TestAttachResolved_NonDuplicateErrorAborts(t *testing.T) {
	store := newFakeLinkStore()
	cables := cableFixtures(3)
	store.raceOnCable = 1
	store.raceArmed = true
	store.failRowError = fmt.Errorf("connection lost")

	report := &BulkAttachReport{MissingCodes: []string{}}
	err := attachResolved(context.Background(), store, 42, cables, report)
	if err == nil {
		t.Fatalf("expected the row replay to surface the error")
	}
}

func TestAttachResolved_EmptyInput(t *testing.T) {
	store := newFakeLinkStore()
	report := &BulkAttachReport{MissingCodes: []string{}}
	if err := attachResolved(context.Background(), store, 42, nil, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Added != 0 || store.batchCalls != 0 {
		t.Fatalf("expected nothing to happen, got %+v calls=%d", report, store.batchCalls)
	}
}
