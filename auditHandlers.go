package main

import (
	"github.com/gin-gonic/gin"

	"github.com/clodeb/retail_backend/models"
)

func listAuditLogsHandler(c *gin.Context) {
	page, limit := pagination(c)

	var action *models.AuditAction
	if v := c.Query("action"); v != "" {
		a := models.AuditAction(v)
		action = &a
	}

	entries, total, err := models.PaginateAuditLogs(c.Request.Context(), page, limit, action)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, entries, total, page, limit)
}
