package utils

import (
	"context"
	"errors"
	"reflect"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
)

// check if id exists, using ctx's vessel_id in WHERE, return RecordNotFound Error
func ValidateResourceId[T any](ctx context.Context, vesselId string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, vesselId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// check if ALL id exists, using ctx's vessel_id in WHERE, return RecordNotFound Error
func ValidateUnique[T any](ctx context.Context, vesselId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, vesselId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, vesselId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records, using WHERE vessel_id = ? AND $condition
// vessel_id can be blank for admin user
func ResourceCountWhere[T any](ctx context.Context, vesselId string, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if vesselId != "" {
		dbCtx = dbCtx.Where("vessel_id = ?", vesselId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
