package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/cabletrack_backend/models"
)

type cableReader struct {
	db *gorm.DB
}

func (r *cableReader) getCables(ctx context.Context, ids []int) []*dataloader.Result[*models.CableRecord] {
	var results []models.CableRecord

	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.CableRecord](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

// GetCable returns a single cable by id efficiently
func GetCable(ctx context.Context, id int) (*models.CableRecord, error) {
	loaders := For(ctx)
	return loaders.CableLoader.Load(ctx, id)()
}

// GetCables returns many cables by ids efficiently
func GetCables(ctx context.Context, ids []int) ([]*models.CableRecord, []error) {
	loaders := For(ctx)
	return loaders.CableLoader.LoadMany(ctx, ids)()
}

type reportReader struct {
	db *gorm.DB
}

func (r *reportReader) getReports(ctx context.Context, ids []int) []*dataloader.Result[*models.DailyReport] {
	var results []models.DailyReport

	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.DailyReport](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetReport(ctx context.Context, id int) (*models.DailyReport, error) {
	loaders := For(ctx)
	return loaders.ReportLoader.Load(ctx, id)()
}

type userReader struct {
	db *gorm.DB
}

func (r *userReader) getUsers(ctx context.Context, ids []int) []*dataloader.Result[*models.User] {
	var results []models.User

	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.User](len(ids), err)
	}
	for i := range results {
		results[i].Password = ""
	}
	return generateLoaderResults(results, ids)
}

func GetUser(ctx context.Context, id int) (*models.User, error) {
	loaders := For(ctx)
	return loaders.UserLoader.Load(ctx, id)()
}

type reportLinkReader struct {
	db *gorm.DB
}

func (r *reportLinkReader) getReportLinks(ctx context.Context, reportIds []int) []*dataloader.Result[[]*models.DailyLink] {
	var results []models.DailyLink

	err := r.db.WithContext(ctx).Where("report_id IN ?", reportIds).Order("cached_code asc").Find(&results).Error
	if err != nil {
		return handleError[[]*models.DailyLink](len(reportIds), err)
	}
	return generateLoaderArrayResults(results, reportIds)
}

// GetReportLinks returns the links of many reports efficiently
func GetReportLinks(ctx context.Context, reportId int) ([]*models.DailyLink, error) {
	loaders := For(ctx)
	return loaders.ReportLinkLoader.Load(ctx, reportId)()
}
