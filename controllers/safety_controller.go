package controllers

import (
	"safewatch/models"
	"safewatch/services"
	"safewatch/utils"

	"github.com/gin-gonic/gin"
)

type SafetyController struct {
	safetyService *services.SafetyService
	validator     *utils.ValidationService
}

func NewSafetyController(safetyService *services.SafetyService, validator *utils.ValidationService) *SafetyController {
	return &SafetyController{
		safetyService: safetyService,
		validator:     validator,
	}
}

// Classify returns the safety level of a coordinate without scoring it.
func (sc *SafetyController) Classify(c *gin.Context) {
	var req models.LocationRequest
	if !sc.bind(c, &req) {
		return
	}

	utils.SuccessResponse(c, "Location classified", sc.safetyService.Classify(req.Coordinate()))
}

// Score classifies and scores a coordinate. The hour defaults to the current
// server hour.
func (sc *SafetyController) Score(c *gin.Context) {
	var req models.ScoreRequest
	if !sc.bind(c, &req) {
		return
	}

	location := req.Coordinate()
	var assessment models.SafetyAssessment
	if req.Hour != nil {
		assessment = sc.safetyService.Score(location, models.ScoreContext{
			Hour:                   *req.Hour,
			LocationAccuracyMeters: location.Accuracy,
		})
	} else {
		assessment = sc.safetyService.ScoreNow(location)
	}

	utils.SuccessResponse(c, "Location scored", assessment)
}

// UpdateLocation records a fix, runs geofence monitoring and returns the
// scored assessment together with any transition it caused.
func (sc *SafetyController) UpdateLocation(c *gin.Context) {
	userID := utils.GetUserID(c)

	var req models.LocationRequest
	if !sc.bind(c, &req) {
		return
	}

	location := req.Coordinate()
	event, err := sc.safetyService.UpdateLocation(c.Request.Context(), userID, location)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Location updated", models.LocationUpdateResponse{
		Assessment: sc.safetyService.ScoreNow(location),
		Event:      event,
	})
}

func (sc *SafetyController) GeofenceHistory(c *gin.Context) {
	userID := utils.GetUserID(c)
	utils.SuccessResponse(c, "Geofence history", sc.safetyService.GeofenceHistory(userID))
}

func (sc *SafetyController) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return false
	}
	if errs := sc.validator.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs)
		return false
	}
	return true
}
