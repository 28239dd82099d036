package main

import (
	"net/http"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
	"github.com/LakshayGajra/material-audit-mvp-sub001/workflow"
	"github.com/gin-gonic/gin"
)

// outboxReviveHandler requeues the caller's DEAD outbox events.
func outboxReviveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		businessId, _ := utils.GetBusinessIdFromContext(ctx)
		revived, err := workflow.RevertDeadEvents(ctx, config.GetDB(), businessId)
		if err != nil {
			respondError(c, "outboxReviveHandler", err)
			return
		}
		username, _ := utils.GetUsernameFromContext(ctx)
		config.LogInfo(config.GetLogger(), "Server", "outboxReviveHandler", "outbox events revived", map[string]interface{}{
			"business_id": businessId,
			"revived":     revived,
			"username":    username,
		})
		cid, _ := utils.GetCorrelationIdFromContext(ctx)
		c.JSON(http.StatusOK, gin.H{
			"business_id":    businessId,
			"revived":        revived,
			"correlation_id": cid,
		})
	}
}
