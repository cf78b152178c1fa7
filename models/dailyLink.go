package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
)

// DailyLink attaches a cable to a daily report. The (report, cable) pair is
// unique; the daily progress channel lives here, separate from the cable's
// canonical channel.
type DailyLink struct {
	ID       int `gorm:"primary_key" json:"id"`
	ReportId int `gorm:"not null;uniqueIndex:idx_report_cable" json:"report_id"`
	CableId  int `gorm:"not null;uniqueIndex:idx_report_cable" json:"cable_id"`

	// CachedCode denormalizes the cable code so report views skip a join.
	CachedCode string `gorm:"size:100" json:"cached_code"`

	StepType        StepType      `gorm:"type:enum('Laying','Rework');default:Laying" json:"step_type"`
	ProgressPercent *int          `json:"progress_percent"`
	ProgressSide    *ProgressSide `gorm:"type:enum('FromEnd','ToEnd')" json:"progress_side"`
	Note            string        `gorm:"size:255" json:"note"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MarshalJSON adds the effective daily progress next to the raw channel;
// same defaulting rule as the canonical channel on CableRecord.
func (l DailyLink) MarshalJSON() ([]byte, error) {
	type plain DailyLink
	return json.Marshal(struct {
		plain
		EffectivePercent int          `json:"effective_percent"`
		EffectiveSide    ProgressSide `json:"effective_side"`
	}{
		plain:            plain(l),
		EffectivePercent: EffectivePercent(l.ProgressPercent),
		EffectiveSide:    EffectiveSide(l.ProgressSide),
	})
}

// attachChunkSize bounds one bulk INSERT so a single duplicate only forces a
// small row-by-row replay.
const attachChunkSize = 25

// missingCodesSampleCap bounds the unresolved-code sample returned to the
// caller; the full count still lands in the log.
const missingCodesSampleCap = 20

// BulkAttachReport summarizes one bulk attach call.
type BulkAttachReport struct {
	Added                int      `json:"added"`
	SkippedAlreadyLinked int      `json:"skipped_already_linked"`
	DuplicateRaceCount   int      `json:"duplicate_race_count"`
	MissingCodes         []string `json:"missing_codes"`
}

func fetchEditableReport(ctx context.Context, vesselId string, reportId int, capability Capability) (*DailyReport, error) {
	report, err := utils.FetchModel[DailyReport](ctx, vesselId, reportId)
	if err != nil {
		return nil, err
	}
	if !report.ownedBy(capability) {
		return nil, utils.ErrorUnauthorized
	}
	if !report.Editable() {
		return nil, fmt.Errorf("report %d is %s and cannot change", report.ID, report.Status)
	}
	return report, nil
}

// AttachCableToReport links one cable to a report with default step values.
// Attaching a cable that is already linked is a benign no-op.
func AttachCableToReport(ctx context.Context, store LinkStore, reportId int, cableId int, capability Capability) (*DailyLink, bool, error) {

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, false, errors.New("vessel id is required")
	}

	if _, err := fetchEditableReport(ctx, vesselId, reportId, capability); err != nil {
		return nil, false, err
	}

	cable, err := utils.FetchModel[CableRecord](ctx, vesselId, cableId)
	if err != nil {
		return nil, false, err
	}

	link := &DailyLink{
		ReportId:   reportId,
		CableId:    cable.ID,
		CachedCode: cable.Code,
		StepType:   StepTypeLaying,
	}
	if err := store.InsertLink(ctx, link); err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, true, nil
		}
		return nil, false, err
	}
	return link, false, nil
}

// DetachLink removes a link. Detaching a link that is already gone succeeds.
func DetachLink(ctx context.Context, reportId int, cableId int, capability Capability) error {

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return errors.New("vessel id is required")
	}

	if _, err := fetchEditableReport(ctx, vesselId, reportId, capability); err != nil {
		return err
	}

	db := config.GetDB()
	return db.WithContext(ctx).
		Where("report_id = ? AND cable_id = ?", reportId, cableId).
		Delete(&DailyLink{}).Error
}

type DailyLinkUpdate struct {
	StepType        StepType      `json:"step_type" binding:"required"`
	ProgressPercent *int          `json:"progress_percent"`
	ProgressSide    *ProgressSide `json:"progress_side"`
	Note            string        `json:"note"`
}

// UpdateDailyLink rewrites a link's daily progress fields. Rework steps
// always resolve to a full pull.
func UpdateDailyLink(ctx context.Context, reportId int, cableId int, input DailyLinkUpdate, capability Capability) (*DailyLink, error) {

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}

	if _, err := fetchEditableReport(ctx, vesselId, reportId, capability); err != nil {
		return nil, err
	}

	if !input.StepType.Valid() {
		return nil, errors.New("invalid step type")
	}
	if input.ProgressPercent != nil && !allowedProgressPercents[*input.ProgressPercent] {
		return nil, fmt.Errorf("invalid progress percent %d", *input.ProgressPercent)
	}
	if input.ProgressSide != nil && !input.ProgressSide.Valid() {
		return nil, errors.New("invalid progress side")
	}
	if input.StepType == StepTypeRework {
		input.ProgressPercent = nil
		input.ProgressSide = nil
	}

	db := config.GetDB()
	var link DailyLink
	err := db.WithContext(ctx).
		Where("report_id = ? AND cable_id = ?", reportId, cableId).
		First(&link).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	err = db.WithContext(ctx).Model(&link).Updates(map[string]interface{}{
		"step_type":        input.StepType,
		"progress_percent": input.ProgressPercent,
		"progress_side":    input.ProgressSide,
		"note":             input.Note,
	}).Error
	if err != nil {
		return nil, err
	}

	link.StepType = input.StepType
	link.ProgressPercent = input.ProgressPercent
	link.ProgressSide = input.ProgressSide
	link.Note = input.Note
	return &link, nil
}

// BulkAttachCables links many cables (given as codes) to a report in one
// call. Codes that resolve to already-linked cables are skipped; unresolved
// codes are reported back, capped to a sample. Inserts run in chunks, and a
// chunk that trips the uniqueness constraint (a concurrent attach) is
// replayed row by row so only the raced rows are dropped.
func BulkAttachCables(ctx context.Context, store LinkStore, reportId int, codes []string, capability Capability) (*BulkAttachReport, error) {
	logger := config.GetLogger()

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}

	if _, err := fetchEditableReport(ctx, vesselId, reportId, capability); err != nil {
		return nil, err
	}

	report := &BulkAttachReport{MissingCodes: []string{}}

	cablesByCode, err := CablesByCodes(ctx, vesselId, codes)
	if err != nil {
		return nil, err
	}

	var missing []string
	seen := make(map[string]bool)
	var cables []*CableRecord
	for _, raw := range codes {
		code := utils.NormalizeCableCode(raw)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		cable, ok := cablesByCode[code]
		if !ok {
			missing = append(missing, code)
			continue
		}
		cables = append(cables, cable)
	}
	sort.Strings(missing)
	if len(missing) > missingCodesSampleCap {
		config.LogError(logger, "DailyLink", "BulkAttachCables",
			fmt.Sprintf("%d codes not found in registry", len(missing)), vesselId, nil)
		missing = missing[:missingCodesSampleCap]
	}
	report.MissingCodes = append(report.MissingCodes, missing...)

	if err := attachResolved(ctx, store, reportId, cables, report); err != nil {
		return nil, err
	}

	return report, nil
}

// attachResolved links already-resolved cables to a report, accumulating
// into report. Split out so the chunk and fallback logic is testable without
// a database.
func attachResolved(ctx context.Context, store LinkStore, reportId int, cables []*CableRecord, report *BulkAttachReport) error {
	cableIds := make([]int, len(cables))
	for i, cable := range cables {
		cableIds[i] = cable.ID
	}
	existing, err := store.ExistingLinks(ctx, reportId, cableIds)
	if err != nil {
		return err
	}

	var toInsert []*DailyLink
	for _, cable := range cables {
		if existing[cable.ID] {
			report.SkippedAlreadyLinked++
			continue
		}
		toInsert = append(toInsert, &DailyLink{
			ReportId:   reportId,
			CableId:    cable.ID,
			CachedCode: cable.Code,
			StepType:   StepTypeLaying,
		})
	}

	for start := 0; start < len(toInsert); start += attachChunkSize {
		end := start + attachChunkSize
		if end > len(toInsert) {
			end = len(toInsert)
		}
		chunk := toInsert[start:end]

		err := store.InsertLinks(ctx, chunk)
		if err == nil {
			report.Added += len(chunk)
			continue
		}
		if !utils.IsDuplicateKeyError(err) {
			return err
		}

		// Someone linked part of this chunk between our existence check and
		// the insert. Replay the chunk row by row and drop only the losers.
		for _, link := range chunk {
			rowErr := store.InsertLink(ctx, &DailyLink{
				ReportId:   link.ReportId,
				CableId:    link.CableId,
				CachedCode: link.CachedCode,
				StepType:   link.StepType,
			})
			if rowErr == nil {
				report.Added++
				continue
			}
			if utils.IsDuplicateKeyError(rowErr) {
				report.DuplicateRaceCount++
				continue
			}
			return rowErr
		}
	}

	return nil
}

// LinksForReport lists a report's links ordered by cable code.
func LinksForReport(ctx context.Context, reportId int) ([]*DailyLink, error) {
	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}
	if err := utils.ValidateResourceId[DailyReport](ctx, vesselId, reportId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var links []*DailyLink
	err := db.WithContext(ctx).
		Where("report_id = ?", reportId).
		Order("cached_code asc").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}
