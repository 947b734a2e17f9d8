package webserver

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/felipemendesbraga/EuLevo/pkg/apperr"
	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
	"github.com/felipemendesbraga/EuLevo/pkg/perm"
	"github.com/felipemendesbraga/EuLevo/pkg/utils"
)

type createPackageRequest struct {
	Description        string             `json:"description" binding:"required,max=140"`
	WeightRange        models.WeightRange `json:"weight_range" binding:"required"`
	DestinyLat         float64            `json:"destiny_lat"`
	DestinyLng         float64            `json:"destiny_lng"`
	DestinyDescription string             `json:"destiny_description" binding:"max=200"`
	ReceiverName       string             `json:"receiver_name" binding:"max=100"`
	ReceiverPhone      string             `json:"receiver_phone" binding:"max=15"`
}

type updatePackageRequest struct {
	Description        *string             `json:"description"`
	WeightRange        *models.WeightRange `json:"weight_range"`
	DestinyLat         *float64            `json:"destiny_lat"`
	DestinyLng         *float64            `json:"destiny_lng"`
	DestinyDescription *string             `json:"destiny_description"`
	ReceiverName       *string             `json:"receiver_name"`
	ReceiverPhone      *string             `json:"receiver_phone"`
	Closed             *bool               `json:"closed"`
	Deleted            *bool               `json:"deleted"`
}

// attachDealCounters fills the computed negotiation fields of a package
func attachDealCounters(repo *db.Repository, pkg *models.Package) error {
	hasDone, err := repo.PackageHasDoneDeal(pkg.ID)
	if err != nil {
		return err
	}
	count, err := repo.CountPackageDeals(pkg.ID)
	if err != nil {
		return err
	}
	pkg.HasDoneDeal = hasDone
	pkg.CountDeals = count
	return nil
}

// listPackages returns one page of the caller's active packages
func (s *Server) listPackages(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	repo := db.NewRepository(s.db)
	total, err := repo.CountActivePackagesByOwnerID(user.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count packages")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to list packages"))
		return
	}

	page, limit := pageParams(c)
	pagination := utils.NewPagination(page, limit, int(total))

	packages, err := repo.GetActivePackagesByOwnerID(user.ID, pagination.GetOffset(), pagination.Limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list packages")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to list packages"))
		return
	}

	for i := range packages {
		if err := attachDealCounters(repo, &packages[i]); err != nil {
			s.logger.WithError(err).Error("Failed to load deal counters")
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to list packages"))
			return
		}
	}

	c.JSON(http.StatusOK, utils.NewPagedResponse(packages, "Packages retrieved", pagination))
}

// createPackage registers a new package for delivery
func (s *Server) createPackage(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	var req createPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid request: "+err.Error()))
		return
	}

	if !req.WeightRange.Valid() {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid weight range"))
		return
	}

	pkg := &models.Package{
		OwnerID:            user.ID,
		Description:        s.validator.SanitizeInput(req.Description),
		WeightRange:        req.WeightRange,
		DestinyLat:         req.DestinyLat,
		DestinyLng:         req.DestinyLng,
		DestinyDescription: s.validator.SanitizeInput(req.DestinyDescription),
		ReceiverName:       s.validator.SanitizeInput(req.ReceiverName),
		ReceiverPhone:      s.validator.SanitizeInput(req.ReceiverPhone),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pkg).Error; err != nil {
			return err
		}
		return s.lifecycle.PackageSaved(tx, pkg, true)
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to create package")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to create package"))
		return
	}

	s.logger.LogPackage(pkg.ID, user.ID, "create", true)
	c.JSON(http.StatusCreated, utils.NewSuccessResponse(pkg, "Package created"))
}

// getPackage returns a single package owned by the caller
func (s *Server) getPackage(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid package ID"))
		return
	}

	repo := db.NewRepository(s.db)
	pkg, err := repo.GetPackageOwned(uint(id), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse("Package doesn't exist"))
		return
	}

	if err := attachDealCounters(repo, pkg); err != nil {
		s.logger.WithError(err).Error("Failed to load deal counters")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to retrieve package"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse(pkg, "Package retrieved"))
}

// updatePackage applies a partial update. Setting deleted=true cancels
// every open negotiation on the package and notifies committed travelers;
// deleted=false restores it.
func (s *Server) updatePackage(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid package ID"))
		return
	}

	var req updatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid request: "+err.Error()))
		return
	}

	repo := db.NewRepository(s.db)
	pkg, err := repo.GetPackageOwned(uint(id), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse("Package doesn't exist"))
		return
	}

	if req.Description != nil {
		pkg.Description = s.validator.SanitizeInput(*req.Description)
	}
	if req.WeightRange != nil {
		if !req.WeightRange.Valid() {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid weight range"))
			return
		}
		pkg.WeightRange = *req.WeightRange
	}
	if req.DestinyLat != nil {
		pkg.DestinyLat = *req.DestinyLat
	}
	if req.DestinyLng != nil {
		pkg.DestinyLng = *req.DestinyLng
	}
	if req.DestinyDescription != nil {
		pkg.DestinyDescription = s.validator.SanitizeInput(*req.DestinyDescription)
	}
	if req.ReceiverName != nil {
		pkg.ReceiverName = s.validator.SanitizeInput(*req.ReceiverName)
	}
	if req.ReceiverPhone != nil {
		pkg.ReceiverPhone = s.validator.SanitizeInput(*req.ReceiverPhone)
	}
	if req.Closed != nil {
		pkg.Closed = *req.Closed
	}
	if req.Deleted != nil {
		pkg.Deleted = *req.Deleted
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(pkg).Error; err != nil {
			return err
		}
		return s.lifecycle.PackageSaved(tx, pkg, false)
	})
	if err != nil {
		s.logger.LogPackage(pkg.ID, user.ID, "update", false)
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to update package"))
		return
	}

	s.logger.LogPackage(pkg.ID, user.ID, "update", true)
	c.JSON(http.StatusOK, utils.NewSuccessResponse(pkg, "Package updated"))
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// uploadPackageImage stores an image blob and attaches it to the package
func (s *Server) uploadPackageImage(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid package ID"))
		return
	}

	repo := db.NewRepository(s.db)
	pkg, err := repo.GetPackageOwned(uint(id), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse("Package doesn't exist"))
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Image file required"))
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedImageExts[ext] {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Unsupported image type"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Failed to read image"))
		return
	}
	defer file.Close()

	locator, err := s.blobs.Save(file, ext)
	if err != nil {
		s.logger.WithError(err).Error("Failed to store image blob")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to store image"))
		return
	}

	image := &models.PackageImage{
		PackageID: pkg.ID,
		Locator:   locator,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(image).Error; err != nil {
			return err
		}
		s.lifecycle.PackageImageSaved(tx, image, pkg.OwnerID, true)
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to create image record")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to store image"))
		return
	}

	c.JSON(http.StatusCreated, utils.NewSuccessResponse(image, "Image uploaded"))
}

// deletePackageImage removes the image record, then releases its blob
func (s *Server) deletePackageImage(c *gin.Context) {
	user, err := s.getCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authentication required"))
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid package ID"))
		return
	}

	imageID, err := strconv.ParseUint(c.Param("imageID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse("Invalid image ID"))
		return
	}

	repo := db.NewRepository(s.db)
	if _, err := repo.GetPackageOwned(uint(id), user.ID); err != nil {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse("Package doesn't exist"))
		return
	}

	image, err := repo.GetPackageImageByID(uint(imageID))
	if err != nil || image.PackageID != uint(id) {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse("Image doesn't exist"))
		return
	}

	allowed, err := s.perms.Holds(s.db.DB, models.CapabilityDelete, user.ID, perm.ResourcePackageImage, image.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to check image delete grant")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to delete image"))
		return
	}
	if !allowed {
		s.logger.LogSecurity("image_delete_denied", user.ID, c.ClientIP(), map[string]interface{}{
			"image_id": image.ID,
		})
		s.respondErr(c, apperr.PermissionDenied("Not allowed to delete this image"))
		return
	}

	if err := repo.DeletePackageImage(image.ID); err != nil {
		s.logger.WithError(err).Error("Failed to delete image record")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Failed to delete image"))
		return
	}

	// The record is gone; blob release failures are logged, never surfaced.
	s.lifecycle.PackageImageDeleted(image)

	c.JSON(http.StatusOK, utils.NewSuccessResponse(nil, "Image deleted"))
}
