package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		validation *models.ValidationError
		state      *models.InvalidStateError
		notFound   *models.NotFoundError
		resolved   *models.AlreadyResolvedError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &state), errors.As(err, &resolved), errors.Is(err, utils.ErrLockNotAcquired):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, funcName string, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	var validation *models.ValidationError
	if errors.As(err, &validation) && validation.Field != "" {
		body["field"] = validation.Field
	}
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "server.go", funcName, c.Request.Method+" "+c.FullPath(), c.Params, err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, field string, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed: " + field + " " + message, "field": field})
}

// pathId reads a positive integer path parameter or answers 400.
func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, name, "must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, name, "must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// actor is the session username, used when a body omits its actor field.
func actor(c *gin.Context, given string) string {
	if given != "" {
		return given
	}
	username, _ := utils.GetUsernameFromContext(c.Request.Context())
	return username
}

func historyHandler(referenceType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		rows, err := models.ListHistory(c.Request.Context(), referenceType, id)
		if err != nil {
			respondError(c, "historyHandler", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func contractorInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		rows, err := models.ListContractorInventory(c.Request.Context(), id)
		if err != nil {
			respondError(c, "contractorInventoryHandler", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func inventoryMovementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		contractorId, ok := pathId(c, "id")
		if !ok {
			return
		}
		materialId, ok := pathId(c, "materialId")
		if !ok {
			return
		}
		rows, err := models.ListInventoryMovements(c.Request.Context(), contractorId, materialId)
		if err != nil {
			respondError(c, "inventoryMovementsHandler", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
