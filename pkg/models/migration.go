package models

import (
	"gorm.io/gorm"
)

// Database migration function
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Package{},
		&PackageImage{},
		&Travel{},
		&Deal{},
		&DoneDeal{},
		&Notification{},
		&PermissionGrant{},
	)
}

func CreateIndexes(db *gorm.DB) error {
	// Composite indexes for common queries
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_deals_package_status ON deals(package_id, status)").Error; err != nil {
		return err
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_packages_owner_deleted ON packages(owner_id, deleted)").Error; err != nil {
		return err
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_status_scheduled ON notifications(status, scheduled_for)").Error; err != nil {
		return err
	}

	return nil
}
