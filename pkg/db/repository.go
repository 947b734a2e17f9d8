package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/felipemendesbraga/EuLevo/pkg/models"
)

// DealFilter narrows a deal listing. Nil fields are ignored; set fields have
// already been validated for ownership by the caller. Offset and Limit page
// the result; a Limit of zero or less returns everything.
type DealFilter struct {
	TravelID  *uint
	PackageID *uint
	Offset    int
	Limit     int
}

// Repository provides database operations for specific models
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *DB {
	return r.db
}

// User repository methods
func (r *Repository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *Repository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	return &user, err
}

func (r *Repository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *Repository) UpdateUser(user *models.User) error {
	return r.db.Save(user).Error
}

// Package repository methods
func (r *Repository) CreatePackage(pkg *models.Package) error {
	return r.db.Create(pkg).Error
}

func (r *Repository) GetPackageByID(id uint) (*models.Package, error) {
	var pkg models.Package
	err := r.db.Preload("Images").First(&pkg, id).Error
	return &pkg, err
}

func (r *Repository) GetPackageOwned(id, ownerID uint) (*models.Package, error) {
	var pkg models.Package
	err := r.db.Where("id = ? AND owner_id = ?", id, ownerID).
		Preload("Images").
		First(&pkg).Error
	return &pkg, err
}

// GetActivePackagesByOwnerID excludes deleted and closed packages. A limit of
// zero or less returns everything.
func (r *Repository) GetActivePackagesByOwnerID(ownerID uint, offset, limit int) ([]models.Package, error) {
	var packages []models.Package
	query := r.db.Where("owner_id = ? AND deleted = ? AND closed = ?", ownerID, false, false).
		Preload("Images").
		Order("created_at DESC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	err := query.Find(&packages).Error
	return packages, err
}

// CountActivePackagesByOwnerID counts the packages GetActivePackagesByOwnerID
// would return unpaged.
func (r *Repository) CountActivePackagesByOwnerID(ownerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Package{}).
		Where("owner_id = ? AND deleted = ? AND closed = ?", ownerID, false, false).
		Count(&count).Error
	return count, err
}

func (r *Repository) UpdatePackage(pkg *models.Package) error {
	return r.db.Save(pkg).Error
}

// PackageHasDoneDeal reports whether any deal of the package is committed.
func (r *Repository) PackageHasDoneDeal(packageID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.DoneDeal{}).
		Joins("JOIN deals ON deals.id = done_deals.deal_id").
		Where("deals.package_id = ?", packageID).
		Count(&count).Error
	return count > 0, err
}

// CountPackageDeals counts proposed deals of a package. It is 0 whenever a
// done deal exists, no matter how many open proposals remain.
func (r *Repository) CountPackageDeals(packageID uint) (int, error) {
	hasDone, err := r.PackageHasDoneDeal(packageID)
	if err != nil {
		return 0, err
	}
	if hasDone {
		return 0, nil
	}

	var count int64
	err = r.db.Model(&models.Deal{}).
		Where("package_id = ? AND status = ?", packageID, models.DealStatusProposed).
		Count(&count).Error
	return int(count), err
}

// PackageImage repository methods
func (r *Repository) CreatePackageImage(image *models.PackageImage) error {
	return r.db.Create(image).Error
}

func (r *Repository) GetPackageImageByID(id uint) (*models.PackageImage, error) {
	var image models.PackageImage
	err := r.db.Preload("Package").First(&image, id).Error
	return &image, err
}

func (r *Repository) DeletePackageImage(id uint) error {
	return r.db.Delete(&models.PackageImage{}, id).Error
}

// Travel repository methods
func (r *Repository) CreateTravel(travel *models.Travel) error {
	return r.db.Create(travel).Error
}

func (r *Repository) GetTravelByID(id uint) (*models.Travel, error) {
	var travel models.Travel
	err := r.db.First(&travel, id).Error
	return &travel, err
}

func (r *Repository) GetTravelOwned(id, ownerID uint) (*models.Travel, error) {
	var travel models.Travel
	err := r.db.Where("id = ? AND owner_id = ?", id, ownerID).First(&travel).Error
	return &travel, err
}

func (r *Repository) UpdateTravel(travel *models.Travel) error {
	return r.db.Save(travel).Error
}

// GetTravelsByOwnerID pages the owner's travels. A limit of zero or less
// returns everything.
func (r *Repository) GetTravelsByOwnerID(ownerID uint, offset, limit int) ([]models.Travel, error) {
	var travels []models.Travel
	query := r.db.Where("owner_id = ?", ownerID).
		Order("travel_date ASC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	err := query.Find(&travels).Error
	return travels, err
}

// CountTravelsByOwnerID counts the owner's travels.
func (r *Repository) CountTravelsByOwnerID(ownerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Travel{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

// Deal repository methods
func (r *Repository) CreateDeal(deal *models.Deal) error {
	return r.db.Create(deal).Error
}

func (r *Repository) UpdateDeal(deal *models.Deal) error {
	return r.db.Save(deal).Error
}

func (r *Repository) GetDealByID(id uint) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.Preload("Package").Preload("Travel").First(&deal, id).Error
	return &deal, err
}

// GetDealByPair returns the single deal of a (package, travel) pair, or
// gorm.ErrRecordNotFound.
func (r *Repository) GetDealByPair(packageID, travelID uint) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.Where("package_id = ? AND travel_id = ?", packageID, travelID).First(&deal).Error
	return &deal, err
}

func (r *Repository) GetDealsByPackageID(packageID uint) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.Where("package_id = ?", packageID).Find(&deals).Error
	return deals, err
}

func (r *Repository) visibleDealsQuery(userID uint, filter DealFilter) *gorm.DB {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	query := r.db.Model(&models.Deal{}).
		Joins("JOIN packages ON packages.id = deals.package_id").
		Joins("JOIN travels ON travels.id = deals.travel_id").
		Where("packages.owner_id = ? OR travels.owner_id = ?", userID, userID).
		Where("travels.travel_date >= ?", today).
		Where("deals.status NOT IN ?", models.TerminalDealStatuses)

	if filter.TravelID != nil {
		query = query.Where("deals.travel_id = ?", *filter.TravelID)
	}
	if filter.PackageID != nil {
		query = query.Where("deals.package_id = ?", *filter.PackageID)
	}
	return query
}

// ListDeals returns the deals visible to a user: deals where the user owns
// either side, whose travel is dated today or later, excluding terminal
// statuses. Nil filter fields are ignored.
func (r *Repository) ListDeals(userID uint, filter DealFilter) ([]models.Deal, error) {
	query := r.visibleDealsQuery(userID, filter)
	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}

	var deals []models.Deal
	err := query.Preload("Package").Preload("Travel").
		Order("deals.created_at DESC").
		Find(&deals).Error
	return deals, err
}

// CountDeals counts the deals ListDeals would return unpaged.
func (r *Repository) CountDeals(userID uint, filter DealFilter) (int64, error) {
	var count int64
	err := r.visibleDealsQuery(userID, filter).Count(&count).Error
	return count, err
}

// DoneDeal repository methods
func (r *Repository) CreateDoneDeal(doneDeal *models.DoneDeal) error {
	return r.db.Create(doneDeal).Error
}

func (r *Repository) GetDoneDealByDealID(dealID uint) (*models.DoneDeal, error) {
	var doneDeal models.DoneDeal
	err := r.db.Where("deal_id = ?", dealID).First(&doneDeal).Error
	return &doneDeal, err
}

func (r *Repository) CountDoneDealsByDealID(dealID uint) (int, error) {
	var count int64
	err := r.db.Model(&models.DoneDeal{}).Where("deal_id = ?", dealID).Count(&count).Error
	return int(count), err
}

// ListDoneDeals returns done deals where the user owns either side of the
// underlying deal.
func (r *Repository) ListDoneDeals(userID uint) ([]models.DoneDeal, error) {
	var doneDeals []models.DoneDeal
	err := r.db.Model(&models.DoneDeal{}).
		Joins("JOIN deals ON deals.id = done_deals.deal_id").
		Joins("JOIN packages ON packages.id = deals.package_id").
		Joins("JOIN travels ON travels.id = deals.travel_id").
		Where("packages.owner_id = ? OR travels.owner_id = ?", userID, userID).
		Preload("Deal.Package").
		Preload("Deal.Travel").
		Order("done_deals.created_at DESC").
		Find(&doneDeals).Error
	return doneDeals, err
}

// Notification repository methods
func (r *Repository) CreateNotification(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

func (r *Repository) GetPendingNotifications(limit int) ([]models.Notification, error) {
	now := time.Now()
	var notifications []models.Notification
	err := r.db.Where("status = ? AND scheduled_for <= ? AND (next_retry_at IS NULL OR next_retry_at <= ?)",
		models.NotificationStatusPending, now, now).
		Preload("Recipient").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *Repository) UpdateNotificationStatus(id uint, status models.NotificationStatus) error {
	updates := map[string]interface{}{
		"status": status,
	}

	if status == models.NotificationStatusSent || status == models.NotificationStatusFailed {
		updates["processed_at"] = time.Now()
	}

	return r.db.Model(&models.Notification{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) UpdateNotification(notification *models.Notification) error {
	return r.db.Save(notification).Error
}
