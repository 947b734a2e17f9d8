package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipemendesbraga/EuLevo/pkg/models"
)

func seedUser(t *testing.T, database *DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: email, PasswordHash: "x"}
	require.NoError(t, database.Create(user).Error)
	return user
}

func seedPackage(t *testing.T, database *DB, ownerID uint) *models.Package {
	t.Helper()
	pkg := &models.Package{
		OwnerID:     ownerID,
		Description: "books",
		WeightRange: models.Weight0To5,
	}
	require.NoError(t, database.Create(pkg).Error)
	return pkg
}

func seedTravel(t *testing.T, database *DB, ownerID uint, daysAhead int) *models.Travel {
	t.Helper()
	travel := &models.Travel{
		OwnerID:        ownerID,
		TravelDate:     time.Now().AddDate(0, 0, daysAhead),
		WeightCapacity: models.Weight6To10,
	}
	require.NoError(t, database.Create(travel).Error)
	return travel
}

func seedDeal(t *testing.T, database *DB, pkg *models.Package, travel *models.Travel, status models.DealStatus) *models.Deal {
	t.Helper()
	deal := &models.Deal{
		PackageID: pkg.ID,
		TravelID:  travel.ID,
		UserID:    pkg.OwnerID,
		Status:    status,
	}
	require.NoError(t, database.Create(deal).Error)
	return deal
}

func TestListDealsVisibility(t *testing.T) {
	database := NewTestDB(t)
	repo := NewRepository(database)

	sender := seedUser(t, database, "sender@example.com")
	traveler := seedUser(t, database, "traveler@example.com")
	stranger := seedUser(t, database, "stranger@example.com")

	pkg := seedPackage(t, database, sender.ID)
	travel := seedTravel(t, database, traveler.ID, 2)
	deal := seedDeal(t, database, pkg, travel, models.DealStatusProposed)

	for _, userID := range []uint{sender.ID, traveler.ID} {
		deals, err := repo.ListDeals(userID, DealFilter{})
		require.NoError(t, err)
		require.Len(t, deals, 1)
		assert.Equal(t, deal.ID, deals[0].ID)
		// Both sides come preloaded.
		assert.Equal(t, pkg.ID, deals[0].Package.ID)
		assert.Equal(t, travel.ID, deals[0].Travel.ID)
	}

	deals, err := repo.ListDeals(stranger.ID, DealFilter{})
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestListDealsExcludesPastTravels(t *testing.T) {
	database := NewTestDB(t)
	repo := NewRepository(database)

	sender := seedUser(t, database, "sender@example.com")
	traveler := seedUser(t, database, "traveler@example.com")

	pkg := seedPackage(t, database, sender.ID)
	pastTravel := seedTravel(t, database, traveler.ID, -1)
	todayTravel := seedTravel(t, database, traveler.ID, 0)

	seedDeal(t, database, pkg, pastTravel, models.DealStatusProposed)
	todayDeal := seedDeal(t, database, pkg, todayTravel, models.DealStatusProposed)

	deals, err := repo.ListDeals(sender.ID, DealFilter{})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, todayDeal.ID, deals[0].ID)
}

func TestListDealsExcludesTerminalStatuses(t *testing.T) {
	database := NewTestDB(t)
	repo := NewRepository(database)

	sender := seedUser(t, database, "sender@example.com")
	traveler := seedUser(t, database, "traveler@example.com")
	pkg := seedPackage(t, database, sender.ID)

	statuses := []models.DealStatus{
		models.DealStatusProposed,
		models.DealStatusNegotiating,
		models.DealStatusRejected,
		models.DealStatusPackageDeleted,
		models.DealStatusExpired,
	}
	for _, status := range statuses {
		travel := seedTravel(t, database, traveler.ID, 2)
		seedDeal(t, database, pkg, travel, status)
	}

	deals, err := repo.ListDeals(sender.ID, DealFilter{})
	require.NoError(t, err)
	require.Len(t, deals, 2)
	for _, deal := range deals {
		assert.False(t, deal.Status.Terminal())
	}
}

func TestListDealsFilters(t *testing.T) {
	database := NewTestDB(t)
	repo := NewRepository(database)

	sender := seedUser(t, database, "sender@example.com")
	traveler := seedUser(t, database, "traveler@example.com")

	pkgA := seedPackage(t, database, sender.ID)
	pkgB := seedPackage(t, database, sender.ID)
	travel := seedTravel(t, database, traveler.ID, 2)

	dealA := seedDeal(t, database, pkgA, travel, models.DealStatusProposed)
	dealB := seedDeal(t, database, pkgB, travel, models.DealStatusProposed)

	deals, err := repo.ListDeals(sender.ID, DealFilter{PackageID: &pkgA.ID})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, dealA.ID, deals[0].ID)

	deals, err = repo.ListDeals(traveler.ID, DealFilter{TravelID: &travel.ID})
	require.NoError(t, err)
	assert.Len(t, deals, 2)

	deals, err = repo.ListDeals(sender.ID, DealFilter{PackageID: &pkgB.ID, TravelID: &travel.ID})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, dealB.ID, deals[0].ID)
}

func TestListDealsPaging(t *testing.T) {
	database := NewTestDB(t)
	repo := NewRepository(database)

	sender := seedUser(t, database, "sender@example.com")
	traveler := seedUser(t, database, "traveler@example.com")
	travel := seedTravel(t, database, traveler.ID, 2)

	for i := 0; i < 3; i++ {
		pkg := seedPackage(t, database, sender.ID)
		seedDeal(t, database, pkg, travel, models.DealStatusProposed)
	}

	deals, err := repo.ListDeals(sender.ID, DealFilter{Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, deals, 2)

	deals, err = repo.ListDeals(sender.ID, DealFilter{Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, deals, 1)

	total, err := repo.CountDeals(sender.ID, DealFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestDealPairIsUnique(t *testing.T) {
	database := NewTestDB(t)

	sender := seedUser(t, database, "sender@example.com")
	traveler := seedUser(t, database, "traveler@example.com")
	pkg := seedPackage(t, database, sender.ID)
	travel := seedTravel(t, database, traveler.ID, 2)

	seedDeal(t, database, pkg, travel, models.DealStatusProposed)

	dup := &models.Deal{PackageID: pkg.ID, TravelID: travel.ID, UserID: sender.ID, Status: models.DealStatusProposed}
	err := database.Create(dup).Error
	assert.Error(t, err)
}

func TestDoneDealDealIDIsUnique(t *testing.T) {
	database := NewTestDB(t)
	repo := NewRepository(database)

	sender := seedUser(t, database, "sender@example.com")
	traveler := seedUser(t, database, "traveler@example.com")
	pkg := seedPackage(t, database, sender.ID)
	travel := seedTravel(t, database, traveler.ID, 2)
	deal := seedDeal(t, database, pkg, travel, models.DealStatusProposed)

	require.NoError(t, repo.CreateDoneDeal(&models.DoneDeal{DealID: deal.ID}))
	assert.Error(t, repo.CreateDoneDeal(&models.DoneDeal{DealID: deal.ID}))
}

func TestPackageHasDoneDealAndCounting(t *testing.T) {
	database := NewTestDB(t)
	repo := NewRepository(database)

	sender := seedUser(t, database, "sender@example.com")
	traveler := seedUser(t, database, "traveler@example.com")
	pkg := seedPackage(t, database, sender.ID)

	travelA := seedTravel(t, database, traveler.ID, 2)
	travelB := seedTravel(t, database, traveler.ID, 3)
	dealA := seedDeal(t, database, pkg, travelA, models.DealStatusProposed)
	seedDeal(t, database, pkg, travelB, models.DealStatusProposed)

	hasDone, err := repo.PackageHasDoneDeal(pkg.ID)
	require.NoError(t, err)
	assert.False(t, hasDone)

	count, err := repo.CountPackageDeals(pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.CreateDoneDeal(&models.DoneDeal{DealID: dealA.ID}))

	hasDone, err = repo.PackageHasDoneDeal(pkg.ID)
	require.NoError(t, err)
	assert.True(t, hasDone)

	// A committed package reports zero open proposals regardless of how
	// many proposal rows remain.
	count, err = repo.CountPackageDeals(pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetActivePackagesExcludesDeletedAndClosed(t *testing.T) {
	database := NewTestDB(t)
	repo := NewRepository(database)

	owner := seedUser(t, database, "owner@example.com")

	active := seedPackage(t, database, owner.ID)

	closed := seedPackage(t, database, owner.ID)
	closed.Closed = true
	require.NoError(t, database.Save(closed).Error)

	deleted := seedPackage(t, database, owner.ID)
	deleted.Deleted = true
	require.NoError(t, database.Save(deleted).Error)

	packages, err := repo.GetActivePackagesByOwnerID(owner.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, active.ID, packages[0].ID)

	count, err := repo.CountActivePackagesByOwnerID(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGetActivePackagesPaging(t *testing.T) {
	database := NewTestDB(t)
	repo := NewRepository(database)

	owner := seedUser(t, database, "owner@example.com")
	for i := 0; i < 5; i++ {
		seedPackage(t, database, owner.ID)
	}

	packages, err := repo.GetActivePackagesByOwnerID(owner.ID, 0, 2)
	require.NoError(t, err)
	assert.Len(t, packages, 2)

	packages, err = repo.GetActivePackagesByOwnerID(owner.ID, 4, 2)
	require.NoError(t, err)
	assert.Len(t, packages, 1)

	count, err := repo.CountActivePackagesByOwnerID(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestGetPendingNotificationsWindow(t *testing.T) {
	database := NewTestDB(t)
	repo := NewRepository(database)

	recipient := seedUser(t, database, "r@example.com")

	due := &models.Notification{
		RecipientID:  recipient.ID,
		Title:        "due",
		Status:       models.NotificationStatusPending,
		ScheduledFor: time.Now().Add(-time.Minute),
		MaxAttempts:  3,
	}
	require.NoError(t, database.Create(due).Error)

	future := time.Now().Add(time.Hour)
	notYet := &models.Notification{
		RecipientID:  recipient.ID,
		Title:        "retry later",
		Status:       models.NotificationStatusPending,
		ScheduledFor: time.Now().Add(-time.Minute),
		NextRetryAt:  &future,
		MaxAttempts:  3,
	}
	require.NoError(t, database.Create(notYet).Error)

	sent := &models.Notification{
		RecipientID:  recipient.ID,
		Title:        "already sent",
		Status:       models.NotificationStatusSent,
		ScheduledFor: time.Now().Add(-time.Minute),
		MaxAttempts:  3,
	}
	require.NoError(t, database.Create(sent).Error)

	notifications, err := repo.GetPendingNotifications(10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "due", notifications[0].Title)
	assert.Equal(t, recipient.ID, notifications[0].Recipient.ID)
}
