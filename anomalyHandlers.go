package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/LakshayGajra/material-audit-mvp-sub001/middlewares"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models/reports"
	"github.com/gin-gonic/gin"
)

// listAnomaliesHandler answers JSON, or an xlsx sheet with ?format=xlsx.
func listAnomaliesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		resolved, err := models.ParseResolvedFilter(c.Query("resolved"))
		if err != nil {
			respondError(c, "listAnomaliesHandler", err)
			return
		}
		contractorId, ok := queryInt(c, "contractor_id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		anomalies, err := models.ListAnomalies(ctx, models.AnomalyFilter{Resolved: resolved, ContractorId: contractorId})
		if err != nil {
			respondError(c, "listAnomaliesHandler", err)
			return
		}

		if err := middlewares.AttachAnomalyNames(ctx, anomalies); err != nil {
			respondError(c, "listAnomaliesHandler", err)
			return
		}

		if c.Query("format") == "xlsx" {
			data, err := reports.ExportAnomalies(anomalies)
			if err != nil {
				respondError(c, "listAnomaliesHandler", err)
				return
			}
			c.Header("Content-Disposition", `attachment; filename="anomalies.xlsx"`)
			c.Data(http.StatusOK, reports.ExcelContentType, data)
			return
		}
		c.JSON(http.StatusOK, anomalies)
	}
}

func getAnomalyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		anomaly, err := models.GetAnomaly(c.Request.Context(), id)
		if err != nil {
			respondError(c, "getAnomalyHandler", err)
			return
		}
		if err := middlewares.AttachAnomalyNames(c.Request.Context(), []*models.Anomaly{anomaly}); err != nil {
			respondError(c, "getAnomalyHandler", err)
			return
		}
		c.JSON(http.StatusOK, anomaly)
	}
}

func resolveAnomalyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		// the body is optional; a bare POST resolves with no notes
		var input models.ResolveAnomalyInput
		if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "body", "is not valid JSON: "+err.Error())
			return
		}
		input.ResolvedBy = actor(c, input.ResolvedBy)
		anomaly, err := models.ResolveAnomaly(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "resolveAnomalyHandler", err)
			return
		}
		c.JSON(http.StatusOK, anomaly)
	}
}
