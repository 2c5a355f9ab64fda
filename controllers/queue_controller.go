package controllers

import (
	"safewatch/models"
	"safewatch/services"
	"safewatch/utils"

	"github.com/gin-gonic/gin"
)

type QueueController struct {
	safetyService *services.SafetyService
	onRetry       func()
}

// NewQueueController takes onRetry to start delivery of a re-queued alert
// without waiting for the next poll.
func NewQueueController(safetyService *services.SafetyService, onRetry func()) *QueueController {
	return &QueueController{
		safetyService: safetyService,
		onRetry:       onRetry,
	}
}

func (qc *QueueController) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, "Alert queue status", models.QueueResponse{
		Status:   qc.safetyService.QueueStatus(),
		Failures: qc.safetyService.AlertFailures(utils.GetUserID(c)),
	})
}

func (qc *QueueController) Retry(c *gin.Context) {
	task, err := qc.safetyService.RetryAlert(c.Request.Context(), utils.GetUserID(c), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	if qc.onRetry != nil {
		qc.onRetry()
	}
	utils.AcceptedResponse(c, "Alert queued for delivery", task)
}

func (qc *QueueController) Discard(c *gin.Context) {
	if err := qc.safetyService.DiscardAlert(c.Request.Context(), utils.GetUserID(c), c.Param("id")); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert discarded", nil)
}
