package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
)

type Resource interface {
	GetVesselId() string
}

// first find in redis, then in db, using ctx's vessel_id in WHERE, cache result
// (may return RecordNotFound error)
func GetResource[T Resource](ctx context.Context, id int, associations ...string) (*T, error) {

	vesselId, ok := utils.GetVesselIdFromContext(ctx)
	if !ok || vesselId == "" {
		return nil, errors.New("vessel id is required")
	}
	// find in redis
	result, err := utils.RetrieveRedis[T](id)
	if err != nil {
		return nil, err
	}
	// if not found in redis
	if result == nil {
		// fetch from db
		result, err = utils.FetchModel[T](ctx, vesselId, id, associations...)
		if err != nil {
			return nil, err
		}

		// store in redis
		if err := utils.StoreRedis[T](result, id); err != nil {
			return nil, err
		}
	} else {
		// if found in redis
		// check if vessel ids match
		if (*result).GetVesselId() != vesselId {
			return nil, errors.New("cannot access resource owned by other vessel")
		}
	}

	return result, nil
}

// ListResources loads every row of a vessel, redis first, caching on a miss.
// Callers that need an ordering sort the result themselves.
func ListResources[T Resource](ctx context.Context, vesselId string) ([]*T, error) {
	results, err := utils.RetrieveRedisList[T](vesselId)
	if err != nil {
		return nil, err
	}
	if results != nil {
		return results, nil
	}

	results, err = utils.FetchAllModels[T](ctx, vesselId)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedisList[T](results, vesselId); err != nil {
		return nil, err
	}
	return results, nil
}

// evictResource drops a row and its vessel list from the cache after a write.
// Eviction failures only log: the database is the source of truth.
func evictResource[T Resource](id int, vesselId string) {
	logger := config.GetLogger()
	if err := utils.RemoveRedisItem[T](id); err != nil {
		config.LogError(logger, "generics.go", "evictResource", "RemoveRedisItem", id, err)
	}
	if err := utils.RemoveRedisList[T](vesselId); err != nil {
		config.LogError(logger, "generics.go", "evictResource", "RemoveRedisList", vesselId, err)
	}
}
