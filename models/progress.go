package models

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"github.com/shopspring/decimal"
)

// Progress percent is a coarse checkpoint, not a measurement. A nil percent
// means the cable is fully pulled (the common case on paper reports, where
// only partial pulls get annotated).
var allowedProgressPercents = map[int]bool{50: true, 70: true, 100: true}

var ErrStaleProgress = errors.New("progress changed concurrently")

type ProgressUpdate struct {
	Percent *int          `json:"percent"`
	Side    *ProgressSide `json:"side"`
	Step    StepType      `json:"step" binding:"required"`
}

// EffectivePercent maps the stored tri-state percent to its meaning:
// nil reads as 100.
func EffectivePercent(percent *int) int {
	if percent == nil {
		return 100
	}
	return *percent
}

// EffectiveSide maps a nil side to FromEnd.
func EffectiveSide(side *ProgressSide) ProgressSide {
	if side == nil {
		return ProgressSideFromEnd
	}
	return *side
}

// InstalledMeters converts a reference length plus progress percent into
// meters pulled, rounded to centimeters.
func InstalledMeters(referenceLength decimal.Decimal, percent *int) decimal.Decimal {
	pct := decimal.NewFromInt(int64(EffectivePercent(percent)))
	return referenceLength.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
}

func validateProgressUpdate(update ProgressUpdate) error {
	if update.Percent != nil && !allowedProgressPercents[*update.Percent] {
		return fmt.Errorf("invalid progress percent %d", *update.Percent)
	}
	if update.Side != nil && !update.Side.Valid() {
		return errors.New("invalid progress side")
	}
	if !update.Step.Valid() {
		return errors.New("invalid step type")
	}
	return nil
}

// ProgressOutcome is the canonical state a progress write resolves to.
type ProgressOutcome struct {
	Percent   *int
	Side      *ProgressSide
	Status    CableStatus
	Escalated bool
}

// NextCanonicalProgress computes the canonical state after applying update to
// current. It is pure: persistence and locking happen in the caller.
//
// Rules:
//   - rework always resolves to a full pull, whatever percent was sent
//   - a (effective) percent of 50 or more on a cable that is not yet Laid
//     escalates the status to Laid, and only callers with the escalation
//     capability may trigger that
//   - cables already Removed or Eliminated do not accept progress
func NextCanonicalProgress(current *CableRecord, update ProgressUpdate, capability Capability) (ProgressOutcome, error) {
	if !capability.CanMutateCanonical() {
		return ProgressOutcome{}, utils.ErrorUnauthorized
	}
	if err := validateProgressUpdate(update); err != nil {
		return ProgressOutcome{}, err
	}
	if current.Status == CableStatusRemoved || current.Status == CableStatusEliminated {
		return ProgressOutcome{}, fmt.Errorf("cable %s is %s and cannot take progress", current.Code, current.Status)
	}

	outcome := ProgressOutcome{
		Percent: update.Percent,
		Side:    update.Side,
		Status:  current.Status,
	}

	if update.Step == StepTypeRework {
		// A rework pass means the cable ends up fully pulled again.
		outcome.Percent = nil
		outcome.Side = nil
	}

	if EffectivePercent(outcome.Percent) >= 50 && current.Status != CableStatusLaid {
		if !capability.CanEscalateStatus() {
			return ProgressOutcome{}, utils.ErrorUnauthorized
		}
		outcome.Status = CableStatusLaid
		outcome.Escalated = true
	}

	return outcome, nil
}

// ProgressStore is the persistence surface of the optimistic update loop.
// The gorm implementation is the default; tests substitute an in-memory one.
type ProgressStore interface {
	ReloadCable(ctx context.Context, vesselId string, id int) (*CableRecord, error)
	// CompareAndSwapProgress persists outcome only if the row still carries
	// prior's progress fields. Returns false without error when the guard
	// failed.
	CompareAndSwapProgress(ctx context.Context, prior *CableRecord, outcome ProgressOutcome) (bool, error)
}

type gormProgressStore struct{}

func (gormProgressStore) ReloadCable(ctx context.Context, vesselId string, id int) (*CableRecord, error) {
	return utils.FetchModel[CableRecord](ctx, vesselId, id)
}

func (gormProgressStore) CompareAndSwapProgress(ctx context.Context, prior *CableRecord, outcome ProgressOutcome) (bool, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&CableRecord{}).
		Where("id = ? AND status = ?", prior.ID, prior.Status)
	if prior.ProgressPercent == nil {
		dbCtx = dbCtx.Where("progress_percent IS NULL")
	} else {
		dbCtx = dbCtx.Where("progress_percent = ?", *prior.ProgressPercent)
	}
	if prior.ProgressSide == nil {
		dbCtx = dbCtx.Where("progress_side IS NULL")
	} else {
		dbCtx = dbCtx.Where("progress_side = ?", *prior.ProgressSide)
	}

	result := dbCtx.Updates(map[string]interface{}{
		"status":           outcome.Status,
		"progress_percent": outcome.Percent,
		"progress_side":    outcome.Side,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// maxProgressRetries bounds the reload loop when canonical writes race.
const maxProgressRetries = 3

// UpdateCanonicalProgress applies a progress write to the canonical channel.
// The write is optimistic: the new state is computed against a snapshot, and
// if another writer got there first the cable is reloaded and the update
// recomputed against the fresh state.
func UpdateCanonicalProgress(ctx context.Context, store ProgressStore, id int, update ProgressUpdate, capability Capability) (*CableRecord, error) {
	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}

	for attempt := 0; attempt < maxProgressRetries; attempt++ {
		cable, err := store.ReloadCable(ctx, vesselId, id)
		if err != nil {
			return nil, err
		}

		outcome, err := NextCanonicalProgress(cable, update, capability)
		if err != nil {
			return nil, err
		}

		swapped, err := store.CompareAndSwapProgress(ctx, cable, outcome)
		if err != nil {
			return nil, err
		}
		if swapped {
			cable.Status = outcome.Status
			cable.ProgressPercent = outcome.Percent
			cable.ProgressSide = outcome.Side
			evictResource[CableRecord](cable.ID, vesselId)
			return cable, nil
		}
	}

	return nil, ErrStaleProgress
}

// ApplyLinksToCanonical replays daily-channel progress through the canonical
// channel. This is the only path where a crew's daily links reach canonical
// state: the office sign-off re-applies each link's percent, and a percent
// of 50 or more escalates the cable to Laid inside the canonical write.
func ApplyLinksToCanonical(ctx context.Context, store ProgressStore, links []*DailyLink, capability Capability) error {
	for _, link := range links {
		update := ProgressUpdate{
			Percent: link.ProgressPercent,
			Side:    link.ProgressSide,
			Step:    link.StepType,
		}
		if _, err := UpdateCanonicalProgress(ctx, store, link.CableId, update, capability); err != nil {
			return fmt.Errorf("cable %s: %w", link.CachedCode, err)
		}
	}
	return nil
}

// UpdateCableStatus writes the status channel directly (office corrections,
// blocking, elimination). Progress fields are cleared when the cable leaves
// the Laid state family.
func UpdateCableStatus(ctx context.Context, id int, status CableStatus, capability Capability) (*CableRecord, error) {
	if !capability.CanMutateCanonical() {
		return nil, utils.ErrorUnauthorized
	}
	if !status.Valid() {
		return nil, errors.New("invalid cable status")
	}

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}

	cable, err := utils.FetchModel[CableRecord](ctx, vesselId, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": status}
	if status != CableStatusLaid {
		updates["progress_percent"] = nil
		updates["progress_side"] = nil
		cable.ProgressPercent = nil
		cable.ProgressSide = nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&cable).Updates(updates).Error; err != nil {
		return nil, err
	}
	cable.Status = status
	evictResource[CableRecord](cable.ID, vesselId)
	return cable, nil
}

// DefaultProgressStore returns the gorm-backed store used by the handlers.
func DefaultProgressStore() ProgressStore {
	return gormProgressStore{}
}
