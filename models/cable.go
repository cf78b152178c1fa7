package models

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CableRecord is one row of the vessel cable registry. Code is stored in
// normalized form and is unique per vessel.
type CableRecord struct {
	ID              int             `gorm:"primary_key" json:"id"`
	VesselId        string          `gorm:"index;not null;uniqueIndex:idx_vessel_code" json:"vessel_id"`
	Code            string          `gorm:"size:100;not null;uniqueIndex:idx_vessel_code" json:"code"`
	Description     string          `gorm:"size:255" json:"description"`
	ReferenceLength decimal.Decimal `gorm:"type:decimal(20,2)" json:"reference_length"`
	Zone            string          `gorm:"size:100" json:"zone"`
	CableType       string          `gorm:"size:100" json:"cable_type"`
	SourceFile      string          `gorm:"size:255" json:"source_file"`

	// Canonical progress channel, mutated only through office/admin paths.
	Status          CableStatus   `gorm:"type:enum('NotLaid','Cut','Laid','Removed','Blocked','Eliminated');default:NotLaid" json:"status"`
	ProgressPercent *int          `json:"progress_percent"`
	ProgressSide    *ProgressSide `gorm:"type:enum('FromEnd','ToEnd')" json:"progress_side"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c CableRecord) GetVesselId() string {
	return c.VesselId
}

// MarshalJSON adds the effective progress next to the raw channel, so a null
// percent always reads as 100 / FromEnd at the API boundary.
func (c CableRecord) MarshalJSON() ([]byte, error) {
	type plain CableRecord
	return json.Marshal(struct {
		plain
		EffectivePercent int          `json:"effective_percent"`
		EffectiveSide    ProgressSide `json:"effective_side"`
	}{
		plain:            plain(c),
		EffectivePercent: EffectivePercent(c.ProgressPercent),
		EffectiveSide:    EffectiveSide(c.ProgressSide),
	})
}

type NewCableRecord struct {
	Code            string          `json:"code" binding:"required"`
	Description     string          `json:"description"`
	ReferenceLength decimal.Decimal `json:"reference_length"`
	Zone            string          `json:"zone"`
	CableType       string          `json:"cable_type"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewCableRecord) validate(ctx context.Context, vesselId string, id int) error {
	code := utils.NormalizeCableCode(input.Code)
	if code == "" {
		return errors.New("cable code is required")
	}
	if err := utils.ValidateUnique[CableRecord](ctx, vesselId, "code", code, id); err != nil {
		return err
	}
	if input.ReferenceLength.IsNegative() {
		return errors.New("reference length must not be negative")
	}
	return nil
}

func CreateCableRecord(ctx context.Context, input *NewCableRecord, capability Capability) (*CableRecord, error) {

	if !capability.CanMutateCanonical() {
		return nil, utils.ErrorUnauthorized
	}

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}

	if err := input.validate(ctx, vesselId, 0); err != nil {
		return nil, err
	}

	cable := CableRecord{
		VesselId:        vesselId,
		Code:            utils.NormalizeCableCode(input.Code),
		Description:     input.Description,
		ReferenceLength: input.ReferenceLength,
		Zone:            input.Zone,
		CableType:       input.CableType,
		Status:          CableStatusNotLaid,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&cable).Error
	if err != nil {
		return nil, err
	}
	evictResource[CableRecord](cable.ID, vesselId)
	return &cable, nil
}

func UpdateCableRecord(ctx context.Context, id int, input *NewCableRecord, capability Capability) (*CableRecord, error) {

	if !capability.CanMutateCanonical() {
		return nil, utils.ErrorUnauthorized
	}

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}

	if err := input.validate(ctx, vesselId, id); err != nil {
		return nil, err
	}

	cable, err := utils.FetchModel[CableRecord](ctx, vesselId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&cable).Updates(map[string]interface{}{
		"Code":            utils.NormalizeCableCode(input.Code),
		"Description":     input.Description,
		"ReferenceLength": input.ReferenceLength,
		"Zone":            input.Zone,
		"CableType":       input.CableType,
	}).Error
	if err != nil {
		return nil, err
	}

	evictResource[CableRecord](cable.ID, vesselId)
	return cable, nil
}

func DeleteCableRecord(ctx context.Context, id int, capability Capability) (*CableRecord, error) {

	if !capability.CanMutateCanonical() {
		return nil, utils.ErrorUnauthorized
	}

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}

	cable, err := utils.FetchModel[CableRecord](ctx, vesselId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cable_id = ?", cable.ID).Delete(&DailyLink{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cable).Error
	})
	if err != nil {
		return nil, err
	}

	evictResource[CableRecord](cable.ID, vesselId)
	return cable, nil
}

func GetCableRecord(ctx context.Context, id int) (*CableRecord, error) {
	return GetResource[CableRecord](ctx, id)
}

// CablesByCodes resolves normalized codes to registry rows in one query.
// Codes absent from the registry are simply missing from the result map.
func CablesByCodes(ctx context.Context, vesselId string, codes []string) (map[string]*CableRecord, error) {
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		if c := utils.NormalizeCableCode(code); c != "" {
			normalized = append(normalized, c)
		}
	}
	normalized = utils.UniqueSlice(normalized)

	result := make(map[string]*CableRecord, len(normalized))
	if len(normalized) == 0 {
		return result, nil
	}

	db := config.GetDB()
	var cables []*CableRecord
	err := db.WithContext(ctx).
		Where("vessel_id = ? AND code IN ?", vesselId, normalized).
		Find(&cables).Error
	if err != nil {
		return nil, err
	}
	for _, cable := range cables {
		result[cable.Code] = cable
	}
	return result, nil
}

// AllCables returns every registry row for a vessel ordered by code. The
// unordered set is cached per vessel; writes evict it.
func AllCables(ctx context.Context, vesselId string) ([]*CableRecord, error) {
	cables, err := ListResources[CableRecord](ctx, vesselId)
	if err != nil {
		return nil, err
	}
	sort.Slice(cables, func(i, j int) bool {
		return cables[i].Code < cables[j].Code
	})
	return cables, nil
}
