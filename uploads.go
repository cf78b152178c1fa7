package main

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/ingest"
	"bitbucket.org/mmdatafocus/cabletrack_backend/middlewares"
	"bitbucket.org/mmdatafocus/cabletrack_backend/models"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"bitbucket.org/mmdatafocus/cabletrack_backend/workflow"
)

// maxWorkbookSize bounds one uploaded spreadsheet.
const maxWorkbookSize = 50 << 20 // 50 MB

// importCablesHandler accepts one or more .xlsx files under the "files"
// multipart field and runs the reconciliation pass over them.
func importCablesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
			return
		}
		fileHeaders := form.File["files"]
		if len(fileHeaders) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least one file is required"})
			return
		}

		var files []ingest.WorkbookFile
		for _, fh := range fileHeaders {
			if fh.Size > maxWorkbookSize {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fh.Filename + " exceeds the size limit"})
				return
			}
			f, err := fh.Open()
			if err != nil {
				config.LogError(logger, "uploads.go", "importCablesHandler", "open upload", fh.Filename, err)
				c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read " + fh.Filename})
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				config.LogError(logger, "uploads.go", "importCablesHandler", "read upload", fh.Filename, err)
				c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read " + fh.Filename})
				return
			}
			files = append(files, ingest.WorkbookFile{Name: fh.Filename, Data: data})
		}

		result, err := workflow.RunImport(c.Request.Context(), files, middlewares.CapabilityFrom(c))
		if err != nil {
			respondModelError(c, err)
			return
		}

		if vesselId, ok := utils.GetVesselIdFromContext(c.Request.Context()); ok {
			registryBrowser.Invalidate(vesselId)
		}

		c.JSON(http.StatusOK, result)
	}
}

func listImportRunsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		vesselId, ok := utils.GetVesselIdFromContext(c.Request.Context())
		if !ok || vesselId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "vessel id is required"})
			return
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		runs, err := models.ListImportRuns(c.Request.Context(), vesselId, limit)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

func getImportRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		run, err := models.GetImportRun(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, run)
	}
}
