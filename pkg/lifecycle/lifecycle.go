package lifecycle

import (
	"fmt"
	"time"

	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
	"github.com/felipemendesbraga/EuLevo/pkg/perm"
	"github.com/felipemendesbraga/EuLevo/pkg/storage"
	"gorm.io/gorm"
)

const (
	packageCancelledTitle = "Encomenda cancelada"
	packageCancelledBody  = "Uma encomenda para %s foi cancelada."
)

// NotificationGateway enqueues push notifications for later delivery. The
// hooks run inside the transaction that persisted the triggering write, so
// enqueueing goes through that same transaction.
type NotificationGateway interface {
	EnqueueTx(tx *gorm.DB, recipients []uint, title, body string, data models.JSON) error
}

// Manager applies entity lifecycle side effects: permission propagation,
// the package soft-delete cascade, restore handling and image blob cleanup.
// Its hooks run inside the transaction that persisted the triggering write,
// right after the write itself.
type Manager struct {
	logger  *log.Logger
	gateway NotificationGateway
	perms   *perm.Propagator
	blobs   storage.BlobStore
}

// NewManager creates a new lifecycle manager
func NewManager(logger *log.Logger, gateway NotificationGateway, perms *perm.Propagator, blobs storage.BlobStore) *Manager {
	return &Manager{
		logger:  logger,
		gateway: gateway,
		perms:   perms,
		blobs:   blobs,
	}
}

// PackageSaved runs after a package insert or update. On first insert it only
// propagates permissions; the cascade below applies to updates of existing
// rows.
//
// A package transitioning to deleted notifies the travel owners of committed
// deals, then unconditionally drops every deal of the package, committed or
// not, and finally stamps DeletedAt. The closing re-fetch that marks leftover
// deals with status 4 mirrors the historical write ordering; the cascade has
// already removed those rows, so it settles nothing new. A package saved with
// deleted=false while DeletedAt is still set is a restore: the timestamp is
// cleared, nothing else happens.
func (m *Manager) PackageSaved(tx *gorm.DB, pkg *models.Package, created bool) error {
	m.perms.PackageSaved(tx, pkg)

	if created {
		return nil
	}

	if !pkg.Deleted {
		if pkg.DeletedAt != nil {
			pkg.DeletedAt = nil
			if err := tx.Save(pkg).Error; err != nil {
				return fmt.Errorf("failed to restore package %d: %w", pkg.ID, err)
			}
			m.logger.LogPackage(pkg.ID, pkg.OwnerID, "restored", true)
		}
		return nil
	}

	var deals []models.Deal
	if err := tx.Where("package_id = ?", pkg.ID).Find(&deals).Error; err != nil {
		return fmt.Errorf("failed to load deals of package %d: %w", pkg.ID, err)
	}

	var travelOwnerIDs []uint
	err := tx.Model(&models.Deal{}).
		Joins("JOIN done_deals ON done_deals.deal_id = deals.id").
		Joins("JOIN travels ON travels.id = deals.travel_id").
		Where("deals.package_id = ?", pkg.ID).
		Pluck("travels.owner_id", &travelOwnerIDs).Error
	if err != nil {
		return fmt.Errorf("failed to collect committed travel owners: %w", err)
	}

	// One gateway call per deletion event. Enqueue failures never fail the
	// triggering save.
	body := fmt.Sprintf(packageCancelledBody, pkg.DestinyDescription)
	if err := m.gateway.EnqueueTx(tx, travelOwnerIDs, packageCancelledTitle, body, nil); err != nil {
		m.logger.WithError(err).WithField("package_id", pkg.ID).Error("Failed to enqueue cancellation notifications")
	}

	if len(deals) > 0 {
		dealIDs := make([]uint, 0, len(deals))
		for _, deal := range deals {
			dealIDs = append(dealIDs, deal.ID)
		}

		if err := tx.Where("deal_id IN ?", dealIDs).Delete(&models.DoneDeal{}).Error; err != nil {
			return fmt.Errorf("failed to delete done deals of package %d: %w", pkg.ID, err)
		}
		if err := tx.Where("package_id = ?", pkg.ID).Delete(&models.Deal{}).Error; err != nil {
			return fmt.Errorf("failed to delete deals of package %d: %w", pkg.ID, err)
		}
	}

	if pkg.DeletedAt == nil {
		now := time.Now()
		pkg.DeletedAt = &now
		if err := tx.Save(pkg).Error; err != nil {
			return fmt.Errorf("failed to stamp deletion of package %d: %w", pkg.ID, err)
		}

		var remaining []models.Deal
		if err := tx.Where("package_id = ?", pkg.ID).Find(&remaining).Error; err != nil {
			return fmt.Errorf("failed to re-fetch deals of package %d: %w", pkg.ID, err)
		}
		for i := range remaining {
			remaining[i].Status = models.DealStatusPackageDeleted
			if err := tx.Save(&remaining[i]).Error; err != nil {
				return fmt.Errorf("failed to mark deal %d cancelled: %w", remaining[i].ID, err)
			}
		}
	}

	m.logger.LogPackage(pkg.ID, pkg.OwnerID, "deleted", true)
	return nil
}

// PackageImageSaved runs after a package image insert.
func (m *Manager) PackageImageSaved(tx *gorm.DB, image *models.PackageImage, ownerID uint, created bool) {
	if created {
		m.perms.PackageImageCreated(tx, image, ownerID)
	}
}

// PackageImageDeleted releases the blob after its metadata record is gone.
// The record is deleted first; if the blob release then fails the records are
// already consistent with the image being gone, so the failure is logged as a
// storage inconsistency and not surfaced.
func (m *Manager) PackageImageDeleted(image *models.PackageImage) {
	if err := m.blobs.Delete(image.Locator); err != nil {
		m.logger.WithFields(log.Fields{
			"image_id": image.ID,
			"locator":  image.Locator,
			"type":     "storage",
		}).WithError(err).Warn("Blob release failed after image record deletion")
	}
}
