package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"gorm.io/gorm"
)

// DailyReport groups the cable pulls a crew recorded for one working day.
// Links hang off it; the daily progress channel lives on the links.
type DailyReport struct {
	ID         int          `gorm:"primary_key" json:"id"`
	VesselId   string       `gorm:"index;not null" json:"vessel_id"`
	ReportDate time.Time    `gorm:"not null;index" json:"report_date"`
	Crew       string       `gorm:"size:100" json:"crew"`
	Zone       string       `gorm:"size:100" json:"zone"`
	Note       string       `gorm:"type:text" json:"note"`
	Status     ReportStatus `gorm:"type:enum('Draft','Submitted','Validated');default:Draft" json:"status"`
	OwnerId    int          `gorm:"not null;index" json:"owner_id"`

	// ContentSignature is a hash of the report's saved content, used by
	// autosave to skip writes when nothing changed.
	ContentSignature string `gorm:"size:64" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r DailyReport) GetVesselId() string {
	return r.VesselId
}

// Editable reports whether links and fields may still change. Validated
// reports are immutable; submitted ones too when strict immutability is on.
func (r DailyReport) Editable() bool {
	if r.Status == ReportStatusValidated {
		return false
	}
	if r.Status == ReportStatusSubmitted && config.StrictReportImmutability() {
		return false
	}
	return true
}

// ownedBy reports whether the capability may edit this report's links.
func (r DailyReport) ownedBy(capability Capability) bool {
	if capability.Role == UserRoleAdmin || capability.Role == UserRoleOffice {
		return true
	}
	return r.OwnerId == capability.UserId
}

type NewDailyReport struct {
	ReportDate time.Time `json:"report_date" binding:"required"`
	Crew       string    `json:"crew"`
	Zone       string    `json:"zone"`
	Note       string    `json:"note"`
}

func (input *NewDailyReport) signature() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s",
		input.ReportDate.Format("2006-01-02"), input.Crew, input.Zone, input.Note)))
	return hex.EncodeToString(sum[:])
}

func CreateDailyReport(ctx context.Context, input *NewDailyReport, capability Capability) (*DailyReport, error) {

	if !capability.CanMutateDailyLinks() {
		return nil, utils.ErrorUnauthorized
	}

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}

	report := DailyReport{
		VesselId:         vesselId,
		ReportDate:       input.ReportDate,
		Crew:             input.Crew,
		Zone:             input.Zone,
		Note:             input.Note,
		Status:           ReportStatusDraft,
		OwnerId:          capability.UserId,
		ContentSignature: input.signature(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveDailyReport is the autosave path. When the content signature matches
// the stored one the write is skipped entirely.
func SaveDailyReport(ctx context.Context, id int, input *NewDailyReport, capability Capability) (*DailyReport, bool, error) {

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, false, errors.New("vessel id is required")
	}

	report, err := utils.FetchModel[DailyReport](ctx, vesselId, id)
	if err != nil {
		return nil, false, err
	}
	if !report.ownedBy(capability) {
		return nil, false, utils.ErrorUnauthorized
	}
	if !report.Editable() {
		return nil, false, fmt.Errorf("report %d is %s and cannot change", report.ID, report.Status)
	}

	signature := input.signature()
	if signature == report.ContentSignature {
		return report, false, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&report).Updates(map[string]interface{}{
		"ReportDate":       input.ReportDate,
		"Crew":             input.Crew,
		"Zone":             input.Zone,
		"Note":             input.Note,
		"ContentSignature": signature,
	}).Error
	if err != nil {
		return nil, false, err
	}

	evictResource[DailyReport](report.ID, vesselId)
	return report, true, nil
}

// SubmitDailyReport moves a draft to Submitted.
func SubmitDailyReport(ctx context.Context, id int, capability Capability) (*DailyReport, error) {
	return transitionReport(ctx, id, capability, ReportStatusDraft, ReportStatusSubmitted, false)
}

// ValidateDailyReport is the office sign-off; the report freezes afterwards.
// Before the freeze every link's daily percent is re-applied through the
// canonical channel, so a cable pulled to 50% or more on this report comes
// out Laid. A failed canonical write leaves the report Submitted so the
// office can retry after fixing the cable.
func ValidateDailyReport(ctx context.Context, id int, capability Capability) (*DailyReport, error) {
	if !capability.CanValidateReports() {
		return nil, utils.ErrorUnauthorized
	}

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}
	report, err := utils.FetchModel[DailyReport](ctx, vesselId, id)
	if err != nil {
		return nil, err
	}
	if report.Status != ReportStatusSubmitted {
		return nil, fmt.Errorf("report %d is %s, expected %s", report.ID, report.Status, ReportStatusSubmitted)
	}

	links, err := LinksForReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ApplyLinksToCanonical(ctx, DefaultProgressStore(), links, capability); err != nil {
		return nil, err
	}

	return transitionReport(ctx, id, capability, ReportStatusSubmitted, ReportStatusValidated, true)
}

func transitionReport(ctx context.Context, id int, capability Capability, from ReportStatus, to ReportStatus, skipOwnership bool) (*DailyReport, error) {
	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}

	report, err := utils.FetchModel[DailyReport](ctx, vesselId, id)
	if err != nil {
		return nil, err
	}
	if !skipOwnership && !report.ownedBy(capability) {
		return nil, utils.ErrorUnauthorized
	}
	if report.Status != from {
		return nil, fmt.Errorf("report %d is %s, expected %s", report.ID, report.Status, from)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&report).Update("status", to).Error; err != nil {
		return nil, err
	}
	report.Status = to
	evictResource[DailyReport](report.ID, vesselId)
	return report, nil
}

// DeleteDailyReport removes a report and its links in one transaction.
func DeleteDailyReport(ctx context.Context, id int, capability Capability) (*DailyReport, error) {
	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}

	report, err := utils.FetchModel[DailyReport](ctx, vesselId, id)
	if err != nil {
		return nil, err
	}
	if !report.ownedBy(capability) {
		return nil, utils.ErrorUnauthorized
	}
	if !report.Editable() {
		return nil, fmt.Errorf("report %d is %s and cannot be deleted", report.ID, report.Status)
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", report.ID).Delete(&DailyLink{}).Error; err != nil {
			return err
		}
		return tx.Delete(&report).Error
	})
	if err != nil {
		return nil, err
	}
	evictResource[DailyReport](report.ID, vesselId)
	return report, nil
}

func GetDailyReport(ctx context.Context, id int) (*DailyReport, error) {
	return GetResource[DailyReport](ctx, id)
}
