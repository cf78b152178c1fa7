package middlewares

import (
	"context"
	"reflect"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/models"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	CableLoader      *dataloader.Loader[int, *models.CableRecord]
	ReportLoader     *dataloader.Loader[int, *models.DailyReport]
	UserLoader       *dataloader.Loader[int, *models.User]
	ReportLinkLoader *dataloader.Loader[int, []*models.DailyLink]
}

func NewLoaders(conn *gorm.DB) *Loaders {
	cableReader := &cableReader{db: conn}
	reportReader := &reportReader{db: conn}
	userReader := &userReader{db: conn}
	reportLinkReader := &reportLinkReader{db: conn}

	return &Loaders{
		CableLoader:      dataloader.NewBatchedLoader(cableReader.getCables, dataloader.WithWait[int, *models.CableRecord](time.Millisecond)),
		ReportLoader:     dataloader.NewBatchedLoader(reportReader.getReports, dataloader.WithWait[int, *models.DailyReport](time.Millisecond)),
		UserLoader:       dataloader.NewBatchedLoader(userReader.getUsers, dataloader.WithWait[int, *models.User](time.Millisecond)),
		ReportLinkLoader: dataloader.NewBatchedLoader(reportLinkReader.getReportLinks, dataloader.WithWait[int, []*models.DailyLink](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns results from db into dataloader results
// (T must be a struct)
func generateLoaderResults[T models.Data](results []T, ids []int) []*dataloader.Result[*T] {
	// generate resultMap from results
	resultMap := make(map[int]T)
	var resultZero T
	resultMap[0] = resultZero.GetDefault(0).(T)
	for _, result := range results {
		resultMap[result.GetId()] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data := resultMap[id]
		if reflect.ValueOf(data).IsZero() {
			data = data.GetDefault(id).(T)
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: &data})
	}
	return loaderResults
}

// T must be struct
// each id has many related results
func generateLoaderArrayResults[T models.RelatedData](results []T, referenceIds []int) (loaderResults []*dataloader.Result[[]*T]) {
	resultMap := make(map[int][]*T)
	for _, result := range results {
		// creating a new variable every turn, to avoid pointing to the address of result
		r := result
		refId := r.GetReferenceId()
		resultMap[refId] = append(resultMap[refId], &r)
	}

	for _, id := range referenceIds {
		loaderResults = append(loaderResults, &dataloader.Result[[]*T]{Data: resultMap[id]})
	}
	return loaderResults
}
