package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
)

// ImportRun is the audit record of one reconciliation batch: which files
// were read, what the merge changed, and the warnings the adapter collected.
type ImportRun struct {
	ID       int    `gorm:"primary_key" json:"id"`
	VesselId string `gorm:"index;not null" json:"vessel_id"`

	FileNames   string `gorm:"type:text" json:"file_names"`
	ArchivePath string `gorm:"size:255" json:"archive_path"`

	RowsRead        int `gorm:"not null" json:"rows_read"`
	Added           int `gorm:"not null" json:"added"`
	UpdatedMetadata int `gorm:"not null" json:"updated_metadata"`
	Unchanged       int `gorm:"not null" json:"unchanged"`

	Warnings string `gorm:"type:text" json:"warnings"`

	ImportedBy int       `gorm:"not null" json:"imported_by"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateImportRun(ctx context.Context, run *ImportRun) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(run).Error
}

func GetImportRun(ctx context.Context, id int) (*ImportRun, error) {
	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}
	return utils.FetchModel[ImportRun](ctx, vesselId, id)
}

func ListImportRuns(ctx context.Context, vesselId string, limit int) ([]*ImportRun, error) {
	if limit <= 0 {
		limit = config.SearchLimit
	}
	db := config.GetDB()
	var runs []*ImportRun
	err := db.WithContext(ctx).
		Where("vessel_id = ?", vesselId).
		Order("id desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
