package main

import (
	"net/http"

	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/gin-gonic/gin"
)

func resolveThresholdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		contractorId, ok := queryInt(c, "contractor_id")
		if !ok {
			return
		}
		materialId, ok := queryInt(c, "material_id")
		if !ok {
			return
		}
		if contractorId == 0 || materialId == 0 {
			badRequest(c, "contractor_id", "and material_id are required")
			return
		}
		ctx := c.Request.Context()
		businessId, _ := utils.GetBusinessIdFromContext(ctx)
		resolved, err := models.ResolveThreshold(ctx, nil, businessId, contractorId, materialId)
		if err != nil {
			respondError(c, "resolveThresholdHandler", err)
			return
		}
		c.JSON(http.StatusOK, resolved)
	}
}

func setGlobalThresholdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.GlobalThresholdInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "body", "is not valid JSON: "+err.Error())
			return
		}
		input.UpdatedBy = actor(c, input.UpdatedBy)
		setting, err := models.SetGlobalThreshold(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "setGlobalThresholdHandler", err)
			return
		}
		c.JSON(http.StatusOK, setting)
	}
}

func listThresholdOverridesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := models.ListThresholdOverrides(c.Request.Context())
		if err != nil {
			respondError(c, "listThresholdOverridesHandler", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func upsertThresholdOverrideHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.ThresholdOverrideInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "body", "is not valid JSON: "+err.Error())
			return
		}
		input.UpdatedBy = actor(c, input.UpdatedBy)
		override, err := models.UpsertThresholdOverride(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "upsertThresholdOverrideHandler", err)
			return
		}
		c.JSON(http.StatusOK, override)
	}
}

func deleteThresholdOverrideHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		override, err := models.DeleteThresholdOverride(c.Request.Context(), id)
		if err != nil {
			respondError(c, "deleteThresholdOverrideHandler", err)
			return
		}
		c.JSON(http.StatusOK, override)
	}
}
