package controllers

import (
	"safewatch/models"
	"safewatch/services"
	"safewatch/utils"

	"github.com/gin-gonic/gin"
)

type PanicController struct {
	safetyService *services.SafetyService
}

func NewPanicController(safetyService *services.SafetyService) *PanicController {
	return &PanicController{
		safetyService: safetyService,
	}
}

// Trigger starts the countdown, or cancels it when one is already running.
func (pc *PanicController) Trigger(c *gin.Context) {
	userID := utils.GetUserID(c)

	session, err := pc.safetyService.TriggerPanic(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	message := "Panic countdown started"
	if session.State == models.PanicStateIdle {
		message = "Panic countdown cancelled"
	}
	utils.AcceptedResponse(c, message, models.PanicResponse{Session: session})
}

func (pc *PanicController) RequestDeactivate(c *gin.Context) {
	userID := utils.GetUserID(c)

	session, err := pc.safetyService.RequestPanicDeactivate(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Confirm to deactivate the panic alert", models.PanicResponse{Session: session})
}

func (pc *PanicController) ConfirmDeactivate(c *gin.Context) {
	userID := utils.GetUserID(c)

	session, err := pc.safetyService.ConfirmPanicDeactivate(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Panic alert deactivated", models.PanicResponse{Session: session})
}

// GetSession reports the current state and the outcome of the most recent
// activation attempt, including why it was refused.
func (pc *PanicController) GetSession(c *gin.Context) {
	userID := utils.GetUserID(c)

	response := models.PanicResponse{
		Session: pc.safetyService.PanicSession(userID),
	}
	result, err := pc.safetyService.LastActivation(userID)
	if result != nil {
		response.LastActivation = result
		response.Message = utils.UserMessage(err)
	}

	utils.SuccessResponse(c, "Panic session", response)
}
