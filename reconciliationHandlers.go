package main

import (
	"fmt"
	"net/http"

	"github.com/LakshayGajra/material-audit-mvp-sub001/middlewares"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models/reports"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/gin-gonic/gin"
)

func submitReconciliationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewReconciliation
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "body", "is not valid JSON: "+err.Error())
			return
		}
		input.ReportedBy = actor(c, input.ReportedBy)
		rec, err := models.CreateReconciliation(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "submitReconciliationHandler", err)
			return
		}
		if err := middlewares.AttachReconciliationNames(c.Request.Context(), rec); err != nil {
			respondError(c, "submitReconciliationHandler", err)
			return
		}
		c.JSON(http.StatusCreated, rec)
	}
}

func getReconciliationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		rec, err := models.GetReconciliation(c.Request.Context(), id)
		if err != nil {
			respondError(c, "getReconciliationHandler", err)
			return
		}
		if err := middlewares.AttachReconciliationNames(c.Request.Context(), rec); err != nil {
			respondError(c, "getReconciliationHandler", err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func listPendingReconciliationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := models.ListPendingReconciliations(c.Request.Context())
		if err != nil {
			respondError(c, "listPendingReconciliationsHandler", err)
			return
		}
		if err := middlewares.AttachReconciliationNames(c.Request.Context(), recs...); err != nil {
			respondError(c, "listPendingReconciliationsHandler", err)
			return
		}
		c.JSON(http.StatusOK, recs)
	}
}

func listReconciliationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := queryInt(c, "limit")
		if !ok {
			return
		}
		contractorId, ok := queryInt(c, "contractor_id")
		if !ok {
			return
		}
		var after *string
		if v := c.Query("after"); v != "" {
			after = &v
		}
		page, err := models.PaginateReconciliations(c.Request.Context(), limit, after, models.ReconciliationFilter{
			ContractorId: contractorId,
			Status:       models.ReconciliationStatus(c.Query("status")),
		})
		if err != nil {
			respondError(c, "listReconciliationsHandler", err)
			return
		}
		if err := middlewares.AttachReconciliationNames(c.Request.Context(), page.Edges...); err != nil {
			respondError(c, "listReconciliationsHandler", err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func reviewReconciliationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.ReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "body", "is not valid JSON: "+err.Error())
			return
		}
		input.ReviewedBy = actor(c, input.ReviewedBy)
		rec, err := models.ReviewReconciliation(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "reviewReconciliationHandler", err)
			return
		}
		if err := middlewares.AttachReconciliationNames(c.Request.Context(), rec); err != nil {
			respondError(c, "reviewReconciliationHandler", err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// exportReconciliationHandler streams the xlsx, or with ?upload=true stores
// it in GCS and returns the object URL.
func exportReconciliationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		rec, err := models.GetReconciliation(ctx, id)
		if err != nil {
			respondError(c, "exportReconciliationHandler", err)
			return
		}
		if err := middlewares.AttachReconciliationNames(ctx, rec); err != nil {
			respondError(c, "exportReconciliationHandler", err)
			return
		}
		data, filename, err := reports.ExportReconciliation(rec)
		if err != nil {
			respondError(c, "exportReconciliationHandler", err)
			return
		}

		if c.Query("upload") == "true" {
			if !utils.GCSConfigured() {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "GCS_BUCKET is not configured"})
				return
			}
			objectName := fmt.Sprintf("%s/reconciliations/%s", rec.BusinessId, filename)
			url, err := utils.UploadToGCS(ctx, objectName, reports.ExcelContentType, data)
			if err != nil {
				respondError(c, "exportReconciliationHandler", err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": url})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, reports.ExcelContentType, data)
	}
}
