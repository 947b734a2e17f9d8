package perm

import (
	"errors"

	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
	"gorm.io/gorm"
)

// Resource type names used in permission grants.
const (
	ResourcePackage      = "package"
	ResourcePackageImage = "package_image"
)

// Propagator grants instance-scoped capabilities to entity owners as a side
// effect of entity writes. Grants are idempotent and their failures are
// logged, never returned to the write that triggered them.
type Propagator struct {
	logger *log.Logger
}

// NewPropagator creates a new permission propagator
func NewPropagator(logger *log.Logger) *Propagator {
	return &Propagator{logger: logger}
}

// Grant records a capability for a user over a resource instance. Re-granting
// an existing capability is a no-op.
func (p *Propagator) Grant(tx *gorm.DB, capability models.Capability, userID uint, resourceType string, resourceID uint) error {
	grant := models.PermissionGrant{
		UserID:       userID,
		Capability:   capability,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}

	err := tx.Where(models.PermissionGrant{
		UserID:       userID,
		Capability:   capability,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}).FirstOrCreate(&grant).Error

	// The composite unique index can still race a concurrent grant; treat a
	// duplicate as the no-op it is.
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// PackageSaved grants the owner change rights over the package.
func (p *Propagator) PackageSaved(tx *gorm.DB, pkg *models.Package) {
	if err := p.Grant(tx, models.CapabilityChange, pkg.OwnerID, ResourcePackage, pkg.ID); err != nil {
		p.logger.WithFields(log.Fields{
			"package_id": pkg.ID,
			"owner_id":   pkg.OwnerID,
		}).WithError(err).Error("Failed to grant package permission")
	}
}

// PackageImageCreated grants the package owner change and delete rights over
// the image.
func (p *Propagator) PackageImageCreated(tx *gorm.DB, image *models.PackageImage, ownerID uint) {
	for _, capability := range []models.Capability{models.CapabilityChange, models.CapabilityDelete} {
		if err := p.Grant(tx, capability, ownerID, ResourcePackageImage, image.ID); err != nil {
			p.logger.WithFields(log.Fields{
				"image_id":   image.ID,
				"owner_id":   ownerID,
				"capability": capability,
			}).WithError(err).Error("Failed to grant image permission")
		}
	}
}

// Holds reports whether a user holds a capability over a resource instance.
func (p *Propagator) Holds(tx *gorm.DB, capability models.Capability, userID uint, resourceType string, resourceID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.PermissionGrant{}).
		Where("user_id = ? AND capability = ? AND resource_type = ? AND resource_id = ?",
			userID, capability, resourceType, resourceID).
		Count(&count).Error
	return count > 0, err
}
