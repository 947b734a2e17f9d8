package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/felipemendesbraga/EuLevo/pkg/apperr"
	"github.com/felipemendesbraga/EuLevo/pkg/utils"
)

type proposeDealRequest struct {
	PackageID uint `json:"package" binding:"required"`
	TravelID  uint `json:"travel" binding:"required"`
}

// respondErr maps a domain error to its HTTP status and payload
func (s *Server) respondErr(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Unhandled domain error")
		c.JSON(status, utils.NewErrorResponse("Internal server error"))
		return
	}
	c.JSON(status, utils.NewKindedErrorResponse(apperr.KindOf(err).String(), err.Error()))
}

// proposeDeal creates or re-opens the negotiation between a package and
// a travel. Proposing again on an existing pair resets it to proposed and
// records the caller as the last proposer.
func (s *Server) proposeDeal(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	var req proposeDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid request: "+err.Error()))
		return
	}

	deal, err := s.engine.ProposeOrUpdate(user, req.PackageID, req.TravelID)
	if err != nil {
		s.respondErr(c, err)
		return
	}

	s.logger.LogDeal(deal.ID, deal.PackageID, deal.TravelID, "propose", true)
	c.JSON(http.StatusCreated, utils.NewSuccessResponse(deal, "Deal proposed"))
}

// listDeals returns open negotiations visible to the caller, optionally
// narrowed by ?travel= and ?package= (which must be owned by the caller).
func (s *Server) listDeals(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	var travelID, packageID *uint
	if raw := c.Query("travel"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid travel filter"))
			return
		}
		v := uint(id)
		travelID = &v
	}
	if raw := c.Query("package"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid package filter"))
			return
		}
		v := uint(id)
		packageID = &v
	}

	page, limit := pageParams(c)
	pagination := utils.NewPagination(page, limit, 0)

	deals, total, err := s.engine.List(user, travelID, packageID, pagination.GetOffset(), pagination.Limit)
	if err != nil {
		s.respondErr(c, err)
		return
	}

	pagination = utils.NewPagination(page, limit, int(total))
	c.JSON(http.StatusOK, utils.NewPagedResponse(deals, "Deals retrieved", pagination))
}
