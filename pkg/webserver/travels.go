package webserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
	"github.com/felipemendesbraga/EuLevo/pkg/utils"
)

type createTravelRequest struct {
	OriginDescription  string             `json:"origin_description" binding:"max=200"`
	DestinyDescription string             `json:"destiny_description" binding:"max=200"`
	TravelDate         string             `json:"travel_date" binding:"required"` // YYYY-MM-DD
	WeightCapacity     models.WeightRange `json:"weight_capacity" binding:"required"`
}

type updateTravelRequest struct {
	OriginDescription  *string             `json:"origin_description"`
	DestinyDescription *string             `json:"destiny_description"`
	TravelDate         *string             `json:"travel_date"`
	WeightCapacity     *models.WeightRange `json:"weight_capacity"`
}

func parseTravelDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}

// listTravels returns one page of the caller's travels
func (s *Server) listTravels(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	repo := db.NewRepository(s.db)
	total, err := repo.CountTravelsByOwnerID(user.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count travels")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to list travels"))
		return
	}

	page, limit := pageParams(c)
	pagination := utils.NewPagination(page, limit, int(total))

	travels, err := repo.GetTravelsByOwnerID(user.ID, pagination.GetOffset(), pagination.Limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list travels")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to list travels"))
		return
	}

	c.JSON(http.StatusOK, utils.NewPagedResponse(travels, "Travels retrieved", pagination))
}

// createTravel registers a new trip
func (s *Server) createTravel(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	var req createTravelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid request: "+err.Error()))
		return
	}

	if !req.WeightCapacity.Valid() {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid weight capacity"))
		return
	}

	travelDate, err := parseTravelDate(req.TravelDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid travel date, expected YYYY-MM-DD"))
		return
	}

	travel := &models.Travel{
		OwnerID:            user.ID,
		OriginDescription:  s.validator.SanitizeInput(req.OriginDescription),
		DestinyDescription: s.validator.SanitizeInput(req.DestinyDescription),
		TravelDate:         travelDate,
		WeightCapacity:     req.WeightCapacity,
	}

	repo := db.NewRepository(s.db)
	if err := repo.CreateTravel(travel); err != nil {
		s.logger.WithError(err).Error("Failed to create travel")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to create travel"))
		return
	}

	c.JSON(http.StatusCreated, utils.NewSuccessResponse(travel, "Travel created"))
}

// getTravel returns a single travel owned by the caller
func (s *Server) getTravel(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid travel ID"))
		return
	}

	repo := db.NewRepository(s.db)
	travel, err := repo.GetTravelOwned(uint(id), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse("Travel doesn't exist"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse(travel, "Travel retrieved"))
}

// updateTravel applies a partial update to a travel
func (s *Server) updateTravel(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid travel ID"))
		return
	}

	var req updateTravelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid request: "+err.Error()))
		return
	}

	repo := db.NewRepository(s.db)
	travel, err := repo.GetTravelOwned(uint(id), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse("Travel doesn't exist"))
		return
	}

	if req.OriginDescription != nil {
		travel.OriginDescription = s.validator.SanitizeInput(*req.OriginDescription)
	}
	if req.DestinyDescription != nil {
		travel.DestinyDescription = s.validator.SanitizeInput(*req.DestinyDescription)
	}
	if req.TravelDate != nil {
		travelDate, err := parseTravelDate(*req.TravelDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid travel date, expected YYYY-MM-DD"))
			return
		}
		travel.TravelDate = travelDate
	}
	if req.WeightCapacity != nil {
		if !req.WeightCapacity.Valid() {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid weight capacity"))
			return
		}
		travel.WeightCapacity = *req.WeightCapacity
	}

	if err := repo.UpdateTravel(travel); err != nil {
		s.logger.WithError(err).Error("Failed to update travel")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to update travel"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse(travel, "Travel updated"))
}
