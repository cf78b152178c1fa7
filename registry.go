package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/cabletrack_backend/middlewares"
	"bitbucket.org/mmdatafocus/cabletrack_backend/models"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"bitbucket.org/mmdatafocus/cabletrack_backend/workflow"
)

// registry window defaults, used when the client sends no geometry
const (
	defaultRowHeight      = 28
	defaultViewportHeight = 600
	defaultOverscan       = 5
)

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}

func registryWindowHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		vesselId, ok := utils.GetVesselIdFromContext(c.Request.Context())
		if !ok || vesselId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "vessel id is required"})
			return
		}

		filter := models.RegistryFilter{
			Query: c.Query("query"),
			Zone:  c.Query("zone"),
		}
		if s := c.Query("status"); s != "" {
			status, err := models.ParseCableStatus(s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filter.Status = &status
		}

		window, err := registryBrowser.Window(c.Request.Context(), vesselId, filter,
			queryInt(c, "scroll_offset", 0),
			queryInt(c, "viewport_height", defaultViewportHeight),
			queryInt(c, "row_height", defaultRowHeight),
			queryInt(c, "overscan", defaultOverscan),
		)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, window)
	}
}

func registrySummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		vesselId, ok := utils.GetVesselIdFromContext(c.Request.Context())
		if !ok || vesselId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "vessel id is required"})
			return
		}

		cables, err := models.AllCables(c.Request.Context(), vesselId)
		if err != nil {
			respondModelError(c, err)
			return
		}

		byStatus := make(map[models.CableStatus]int)
		for _, cable := range cables {
			byStatus[cable.Status]++
		}

		c.JSON(http.StatusOK, gin.H{
			"total_cables":     len(cables),
			"by_status":        byStatus,
			"installed_meters": workflow.InstalledTotal(cables),
		})
	}
}

// cableSelection serializes detail-pane lookups: a fast scroll fires a new
// selection before the previous fetch lands, and only the latest one wins.
var cableSelection = &models.SelectionTracker{}

func selectCableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"selection": cableSelection.Select()})
	}
}

func resolveSelectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := strconv.ParseUint(c.Param("token"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid selection"})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		cable, current, err := cableSelection.ResolveSelection(c.Request.Context(), token, id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		if !current {
			c.JSON(http.StatusConflict, gin.H{"error": "selection superseded"})
			return
		}
		c.JSON(http.StatusOK, cable)
	}
}

func getCableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		cable, err := models.GetCableRecord(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, cable)
	}
}

func createCableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCableRecord
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		cable, err := models.CreateCableRecord(c.Request.Context(), &input, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		registryBrowser.Invalidate(cable.VesselId)
		c.JSON(http.StatusCreated, cable)
	}
}

func updateCableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var input models.NewCableRecord
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		cable, err := models.UpdateCableRecord(c.Request.Context(), id, &input, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		registryBrowser.Invalidate(cable.VesselId)
		c.JSON(http.StatusOK, cable)
	}
}

func deleteCableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		cable, err := models.DeleteCableRecord(c.Request.Context(), id, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		registryBrowser.Invalidate(cable.VesselId)
		c.JSON(http.StatusOK, cable)
	}
}

func updateProgressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var update models.ProgressUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		cable, err := models.UpdateCanonicalProgress(c.Request.Context(), models.DefaultProgressStore(), id, update, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		registryBrowser.Invalidate(cable.VesselId)
		c.JSON(http.StatusOK, cable)
	}
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func updateStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		status, err := models.ParseCableStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cable, err := models.UpdateCableStatus(c.Request.Context(), id, status, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}
		registryBrowser.Invalidate(cable.VesselId)
		c.JSON(http.StatusOK, cable)
	}
}
