package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/ingest"
	"bitbucket.org/mmdatafocus/cabletrack_backend/models"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MergeStats counts what one reconciliation pass did to the registry.
type MergeStats struct {
	Added           int `json:"added"`
	UpdatedMetadata int `json:"updated_metadata"`
	Unchanged       int `json:"unchanged"`
}

// CablePatch is a metadata update for one existing registry row. Progress
// fields never appear here: imports reconcile the as-designed registry, not
// the as-built state.
type CablePatch struct {
	CableId int
	Updates map[string]interface{}
}

// MergePlan is the pure outcome of matching candidates against the registry.
type MergePlan struct {
	ToInsert []*models.CableRecord
	ToUpdate []CablePatch
	Stats    MergeStats
}

// MergeCandidates dedupes candidates by code and diffs them against the
// existing registry.
//
// Rules:
//   - candidates sharing a code collapse to one, keeping the longest
//     reference length seen
//   - an existing cable keeps its progress and status untouched
//   - existing metadata wins: a description or zone is only filled in when
//     the registry value is empty, a reference length only while it is
//     still zero (it never regresses back to zero either)
//   - new cables come out sorted by code so inserts are deterministic
//
// Running the same batch twice yields an empty second plan.
func MergeCandidates(vesselId string, existing map[string]*models.CableRecord, candidates []ingest.CandidateCable) *MergePlan {
	plan := &MergePlan{}

	// collapse duplicate codes inside the batch
	deduped := make(map[string]ingest.CandidateCable)
	order := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		prev, seen := deduped[cand.Code]
		if !seen {
			deduped[cand.Code] = cand
			order = append(order, cand.Code)
			continue
		}
		if cand.ReferenceLength.GreaterThan(prev.ReferenceLength) {
			prev.ReferenceLength = cand.ReferenceLength
		}
		if prev.Description == "" {
			prev.Description = cand.Description
		}
		if prev.Zone == "" {
			prev.Zone = cand.Zone
		}
		deduped[cand.Code] = prev
	}

	var insertCodes []string
	for _, code := range order {
		cand := deduped[code]
		current, ok := existing[code]
		if !ok {
			insertCodes = append(insertCodes, code)
			continue
		}

		updates := map[string]interface{}{}
		if current.ReferenceLength.IsZero() && cand.ReferenceLength.IsPositive() {
			updates["reference_length"] = cand.ReferenceLength
		}
		if current.Description == "" && cand.Description != "" {
			updates["description"] = cand.Description
		}
		if current.Zone == "" && cand.Zone != "" {
			updates["zone"] = cand.Zone
		}

		if len(updates) == 0 {
			plan.Stats.Unchanged++
			continue
		}
		updates["source_file"] = cand.SourceFile
		plan.ToUpdate = append(plan.ToUpdate, CablePatch{CableId: current.ID, Updates: updates})
		plan.Stats.UpdatedMetadata++
	}

	sort.Strings(insertCodes)
	for _, code := range insertCodes {
		cand := deduped[code]
		plan.ToInsert = append(plan.ToInsert, &models.CableRecord{
			VesselId:        vesselId,
			Code:            cand.Code,
			Description:     cand.Description,
			ReferenceLength: cand.ReferenceLength,
			Zone:            cand.Zone,
			CableType:       cand.CableType,
			SourceFile:      cand.SourceFile,
			Status:          models.CableStatusNotLaid,
		})
	}
	plan.Stats.Added = len(plan.ToInsert)

	return plan
}

// applyMergePlan persists a plan in one transaction.
func applyMergePlan(ctx context.Context, plan *MergePlan) error {
	if len(plan.ToInsert) == 0 && len(plan.ToUpdate) == 0 {
		return nil
	}
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(plan.ToInsert) > 0 {
			if err := tx.Create(&plan.ToInsert).Error; err != nil {
				return err
			}
		}
		for _, patch := range plan.ToUpdate {
			if err := tx.Model(&models.CableRecord{}).
				Where("id = ?", patch.CableId).
				Updates(patch.Updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ImportResult is what a finished reconciliation run reports back.
type ImportResult struct {
	RunId        int        `json:"run_id"`
	Stats        MergeStats `json:"stats"`
	RowsRead     int        `json:"rows_read"`
	RowsAccepted int        `json:"rows_accepted"`
	RowsRejected int        `json:"rows_rejected"`
	Warnings     []string   `json:"warnings"`
}

// RunImport is the full reconciliation pass: read the workbooks, merge
// against the registry, persist, and record an audit row. Runs for the same
// vessel are serialized through a redis lock so two office clerks importing
// at once cannot double-insert.
func RunImport(ctx context.Context, files []ingest.WorkbookFile, capability models.Capability) (*ImportResult, error) {
	logger := config.GetLogger()

	if !capability.CanImport() {
		return nil, utils.ErrorUnauthorized
	}

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}
	if len(files) == 0 {
		return nil, errors.New("no files provided")
	}

	lock, err := utils.VesselLock(ctx, vesselId, "import", "reconcileWorkflow.go", "RunImport")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	batch := ingest.ReadWorkbooks(ctx, files)
	if batch.FilesRead == 0 {
		return nil, fmt.Errorf("no readable workbook among %d file(s)", len(files))
	}

	codes := make([]string, 0, len(batch.Candidates))
	for _, cand := range batch.Candidates {
		codes = append(codes, cand.Code)
	}
	existing, err := models.CablesByCodes(ctx, vesselId, codes)
	if err != nil {
		config.LogError(logger, "reconcileWorkflow.go", "RunImport", "CablesByCodes", vesselId, err)
		return nil, err
	}

	plan := MergeCandidates(vesselId, existing, batch.Candidates)
	if err := applyMergePlan(ctx, plan); err != nil {
		config.LogError(logger, "reconcileWorkflow.go", "RunImport", "applyMergePlan", plan.Stats, err)
		return nil, err
	}

	// drop cached registry entries the merge touched
	_ = utils.RemoveRedisList[models.CableRecord](vesselId)
	for _, patch := range plan.ToUpdate {
		_ = utils.RemoveRedisItem[models.CableRecord](patch.CableId)
	}

	fileNames := make([]string, len(files))
	for i, file := range files {
		fileNames[i] = file.Name
	}

	archivePath := archiveWorkbooks(ctx, vesselId, files)

	run := &models.ImportRun{
		VesselId:        vesselId,
		FileNames:       strings.Join(fileNames, ","),
		ArchivePath:     archivePath,
		RowsRead:        batch.RowsRead,
		Added:           plan.Stats.Added,
		UpdatedMetadata: plan.Stats.UpdatedMetadata,
		Unchanged:       plan.Stats.Unchanged,
		Warnings:        strings.Join(batch.Warnings, "\n"),
		ImportedBy:      capability.UserId,
	}
	if err := models.CreateImportRun(ctx, run); err != nil {
		config.LogError(logger, "reconcileWorkflow.go", "RunImport", "CreateImportRun", run, err)
		return nil, err
	}

	importedBy, _ := utils.GetUserNameFromContext(ctx)
	logger.WithFields(map[string]interface{}{
		"vessel_id":   vesselId,
		"run_id":      run.ID,
		"imported_by": importedBy,
		"added":       plan.Stats.Added,
		"updated":     plan.Stats.UpdatedMetadata,
		"unchanged":   plan.Stats.Unchanged,
		"warnings":    len(batch.Warnings),
	}).Info("cable import completed")

	return &ImportResult{
		RunId:        run.ID,
		Stats:        plan.Stats,
		RowsRead:     batch.RowsRead,
		RowsAccepted: batch.RowsAccepted,
		RowsRejected: batch.RowsRejected,
		Warnings:     batch.Warnings,
	}, nil
}

// archiveWorkbooks pushes the raw files to GCS for audit. Archival failures
// only log: the import itself already succeeded.
func archiveWorkbooks(ctx context.Context, vesselId string, files []ingest.WorkbookFile) string {
	if !config.ArchiveImportWorkbooks() {
		return ""
	}
	logger := config.GetLogger()

	prefix := fmt.Sprintf("imports/%s/%s", vesselId, utils.GenerateUniqueFilename())
	for _, file := range files {
		objectName := prefix + "/" + file.Name
		err := utils.UploadBytesToGCS(ctx, objectName,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", file.Data)
		if err != nil {
			config.LogError(logger, "reconcileWorkflow.go", "archiveWorkbooks", "UploadBytesToGCS", objectName, err)
			return ""
		}
	}
	return prefix
}

// InstalledTotal sums the installed meters of a merge target registry, used
// by the progress dashboard.
func InstalledTotal(cables []*models.CableRecord) decimal.Decimal {
	total := decimal.Zero
	for _, cable := range cables {
		if cable.Status != models.CableStatusLaid {
			continue
		}
		total = total.Add(models.InstalledMeters(cable.ReferenceLength, cable.ProgressPercent))
	}
	return total
}
