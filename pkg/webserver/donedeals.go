package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/felipemendesbraga/EuLevo/pkg/utils"
)

type confirmDealRequest struct {
	DealID uint `json:"deal" binding:"required"`
}

// confirmDeal closes a proposed negotiation into a committed deal
func (s *Server) confirmDeal(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	var req confirmDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid request: "+err.Error()))
		return
	}

	doneDeal, err := s.engine.Confirm(user, req.DealID)
	if err != nil {
		s.respondErr(c, err)
		return
	}

	s.logger.LogDeal(req.DealID, 0, 0, "confirm", true)
	c.JSON(http.StatusCreated, utils.NewSuccessResponse(doneDeal, "Deal confirmed"))
}

// listDoneDeals returns committed deals on either side of the caller
func (s *Server) listDoneDeals(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	views, err := s.engine.ListDone(user)
	if err != nil {
		s.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse(views, "Done deals retrieved"))
}
