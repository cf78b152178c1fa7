package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/cabletrack_backend/middlewares"
	"bitbucket.org/mmdatafocus/cabletrack_backend/models"
)

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func createReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDailyReport
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		report, err := models.CreateDailyReport(c.Request.Context(), &input, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, report)
	}
}

func getReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		report, err := models.GetDailyReport(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		links, err := middlewares.GetReportLinks(c.Request.Context(), report.ID)
		if err != nil {
			respondModelError(c, err)
			return
		}
		owner, err := middlewares.GetUser(c.Request.Context(), report.OwnerId)
		if err != nil {
			respondModelError(c, err)
			return
		}
		cableIds := make([]int, len(links))
		for i, link := range links {
			cableIds[i] = link.CableId
		}
		cables, errs := middlewares.GetCables(c.Request.Context(), cableIds)
		for _, loadErr := range errs {
			if loadErr != nil {
				respondModelError(c, loadErr)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"report": report,
			"owner":  owner,
			"links":  links,
			"cables": cables,
		})
	}
}

func saveReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewDailyReport
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		report, changed, err := models.SaveDailyReport(c.Request.Context(), id, &input, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": report, "changed": changed})
	}
}

func deleteReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		report, err := models.DeleteDailyReport(c.Request.Context(), id, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func submitReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		report, err := models.SubmitDailyReport(c.Request.Context(), id, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func validateReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		report, err := models.ValidateDailyReport(c.Request.Context(), id, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		// sign-off escalates canonical cables, so cached windows are stale
		registryBrowser.Invalidate(report.VesselId)
		c.JSON(http.StatusOK, report)
	}
}

type attachLinkRequest struct {
	CableId int `json:"cable_id" binding:"required"`
}

func attachLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reportId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req attachLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		link, alreadyLinked, err := models.AttachCableToReport(c.Request.Context(), models.DefaultLinkStore(), reportId, req.CableId, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		if alreadyLinked {
			c.JSON(http.StatusOK, gin.H{"already_linked": true})
			return
		}
		c.JSON(http.StatusCreated, link)
	}
}

type bulkAttachRequest struct {
	Codes []string `json:"codes" binding:"required"`
}

func bulkAttachHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reportId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req bulkAttachRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		result, err := models.BulkAttachCables(c.Request.Context(), models.DefaultLinkStore(), reportId, req.Codes, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		// return the report alongside so the client refreshes its row counts
		report, err := middlewares.GetReport(c.Request.Context(), reportId)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": report, "result": result})
	}
}

func updateLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reportId, ok := pathId(c, "id")
		if !ok {
			return
		}
		cableId, ok := pathId(c, "cableId")
		if !ok {
			return
		}
		var input models.DailyLinkUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		link, err := models.UpdateDailyLink(c.Request.Context(), reportId, cableId, input, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		cable, err := middlewares.GetCable(c.Request.Context(), cableId)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"link": link, "cable": cable})
	}
}

func detachLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reportId, ok := pathId(c, "id")
		if !ok {
			return
		}
		cableId, ok := pathId(c, "cableId")
		if !ok {
			return
		}
		if err := models.DetachLink(c.Request.Context(), reportId, cableId, middlewares.CapabilityFrom(c)); err != nil {
			respondModelError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
