package server

import (
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/contract-tracker/internal/pipeline"
	"github.com/joseph-ayodele/contract-tracker/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func getJob(jobs repository.ExtractJobRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pipeline.JobID(c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		job, err := jobs.Get(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func listJobs(jobs repository.ExtractJobRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "limit은 0 이상의 정수여야 합니다", "code": "INVALID_INPUT"})
				return
			}
			limit = n
		}
		list, err := jobs.List(c.Request.Context(), limit)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": list, "count": len(list)})
	}
}

func exportJob(x Exporter, jobs repository.ExtractJobRepository, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pipeline.JobID(c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		data, err := x.ExportJobXLSX(c.Request.Context(), id)
		if err != nil {
			logger.Warn("export.xlsx.failed", "job_id", id, "err", err)
			fail(c, err)
			return
		}

		name := id.String() + ".xlsx"
		if jobs != nil {
			if job, err := jobs.Get(c.Request.Context(), id); err == nil {
				name = strings.TrimSuffix(job.FileName, filepath.Ext(job.FileName)) + "_일정.xlsx"
			}
		}
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		c.Data(http.StatusOK, xlsxContentType, data)
	}
}
