package models

import (
	"context"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
)

// LinkStore is the persistence surface of the bulk attach path. Tests
// substitute an in-memory implementation; handlers use the gorm one.
type LinkStore interface {
	// ExistingLinks returns the cable ids among cableIds already linked to
	// the report.
	ExistingLinks(ctx context.Context, reportId int, cableIds []int) (map[int]bool, error)
	// InsertLinks inserts a batch in one statement. A uniqueness violation
	// fails the whole statement.
	InsertLinks(ctx context.Context, links []*DailyLink) error
	// InsertLink inserts a single row.
	InsertLink(ctx context.Context, link *DailyLink) error
}

type gormLinkStore struct{}

func (gormLinkStore) ExistingLinks(ctx context.Context, reportId int, cableIds []int) (map[int]bool, error) {
	existing := make(map[int]bool)
	if len(cableIds) == 0 {
		return existing, nil
	}

	db := config.GetDB()
	var linked []int
	err := db.WithContext(ctx).Model(&DailyLink{}).
		Where("report_id = ? AND cable_id IN ?", reportId, cableIds).
		Pluck("cable_id", &linked).Error
	if err != nil {
		return nil, err
	}
	for _, id := range linked {
		existing[id] = true
	}
	return existing, nil
}

func (gormLinkStore) InsertLinks(ctx context.Context, links []*DailyLink) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(&links).Error
}

func (gormLinkStore) InsertLink(ctx context.Context, link *DailyLink) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(link).Error
}

// DefaultLinkStore returns the gorm-backed store used by the handlers.
func DefaultLinkStore() LinkStore {
	return gormLinkStore{}
}
