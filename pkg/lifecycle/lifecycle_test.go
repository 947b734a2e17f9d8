package lifecycle

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/felipemendesbraga/EuLevo/pkg/config"
	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
	"github.com/felipemendesbraga/EuLevo/pkg/notify"
	"github.com/felipemendesbraga/EuLevo/pkg/perm"
)

type enqueueCall struct {
	recipients []uint
	title      string
	body       string
	data       models.JSON
}

type fakeGateway struct {
	calls []enqueueCall
	err   error
}

func (g *fakeGateway) EnqueueTx(_ *gorm.DB, recipients []uint, title, body string, data models.JSON) error {
	g.calls = append(g.calls, enqueueCall{recipients: recipients, title: title, body: body, data: data})
	return g.err
}

type fakeBlobStore struct {
	deleted   []string
	deleteErr error
}

func (s *fakeBlobStore) Save(_ io.Reader, _ string) (string, error) {
	return "", nil
}

func (s *fakeBlobStore) Delete(locator string) error {
	s.deleted = append(s.deleted, locator)
	return s.deleteErr
}

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	logger, err := log.New(&config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return logger
}

type fixture struct {
	db      *db.DB
	manager *Manager
	gateway *fakeGateway
	blobs   *fakeBlobStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	logger := testLogger(t)
	gateway := &fakeGateway{}
	blobs := &fakeBlobStore{}
	manager := NewManager(logger, gateway, perm.NewPropagator(logger), blobs)
	return &fixture{db: database, manager: manager, gateway: gateway, blobs: blobs}
}

func (f *fixture) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: email, PasswordHash: "x"}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) createPackage(t *testing.T, owner *models.User, destiny string) *models.Package {
	t.Helper()
	pkg := &models.Package{
		OwnerID:            owner.ID,
		Description:        "books",
		WeightRange:        models.Weight6To10,
		DestinyDescription: destiny,
	}
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pkg).Error; err != nil {
			return err
		}
		return f.manager.PackageSaved(tx, pkg, true)
	}))
	return pkg
}

func (f *fixture) createTravel(t *testing.T, owner *models.User) *models.Travel {
	t.Helper()
	travel := &models.Travel{
		OwnerID:            owner.ID,
		DestinyDescription: "Downtown",
		TravelDate:         time.Now().UTC().AddDate(0, 0, 2),
		WeightCapacity:     models.Weight11To15,
	}
	require.NoError(t, f.db.Create(travel).Error)
	return travel
}

func (f *fixture) createDeal(t *testing.T, pkg *models.Package, travel *models.Travel, userID uint, status models.DealStatus) *models.Deal {
	t.Helper()
	deal := &models.Deal{PackageID: pkg.ID, TravelID: travel.ID, UserID: userID, Status: status}
	require.NoError(t, f.db.Create(deal).Error)
	return deal
}

func (f *fixture) savePackage(t *testing.T, pkg *models.Package) error {
	t.Helper()
	return f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(pkg).Error; err != nil {
			return err
		}
		return f.manager.PackageSaved(tx, pkg, false)
	})
}

func TestPackageCreateGrantsOwnerChange(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com")
	pkg := f.createPackage(t, owner, "Downtown")

	var count int64
	require.NoError(t, f.db.Model(&models.PermissionGrant{}).
		Where("user_id = ? AND capability = ? AND resource_type = ? AND resource_id = ?",
			owner.ID, models.CapabilityChange, perm.ResourcePackage, pkg.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// No cascade side effects on create.
	assert.Empty(t, f.gateway.calls)
	assert.Nil(t, pkg.DeletedAt)
}

func TestRepeatedSaveKeepsOneGrant(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com")
	pkg := f.createPackage(t, owner, "Downtown")

	pkg.Description = "more books"
	require.NoError(t, f.savePackage(t, pkg))
	require.NoError(t, f.savePackage(t, pkg))

	var count int64
	require.NoError(t, f.db.Model(&models.PermissionGrant{}).
		Where("user_id = ? AND resource_type = ?", owner.ID, perm.ResourcePackage).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteCascade(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com")
	travelerA := f.createUser(t, "a@example.com")
	travelerB := f.createUser(t, "b@example.com")

	pkg := f.createPackage(t, owner, "Downtown")
	travelA := f.createTravel(t, travelerA)
	travelB := f.createTravel(t, travelerB)

	// One committed deal and one still open.
	committed := f.createDeal(t, pkg, travelA, owner.ID, models.DealStatusProposed)
	require.NoError(t, f.db.Create(&models.DoneDeal{DealID: committed.ID}).Error)
	f.createDeal(t, pkg, travelB, travelerB.ID, models.DealStatusNegotiating)

	pkg.Deleted = true
	require.NoError(t, f.savePackage(t, pkg))

	// Only the traveler of the committed deal is notified, once.
	require.Len(t, f.gateway.calls, 1)
	call := f.gateway.calls[0]
	assert.Equal(t, []uint{travelerA.ID}, call.recipients)
	assert.Equal(t, "Encomenda cancelada", call.title)
	assert.Equal(t, "Uma encomenda para Downtown foi cancelada.", call.body)

	// Every deal of the package is gone, committed or not.
	var dealCount, doneCount int64
	require.NoError(t, f.db.Model(&models.Deal{}).Where("package_id = ?", pkg.ID).Count(&dealCount).Error)
	require.NoError(t, f.db.Model(&models.DoneDeal{}).Count(&doneCount).Error)
	assert.Equal(t, int64(0), dealCount)
	assert.Equal(t, int64(0), doneCount)

	// Deletion is stamped and persisted.
	require.NotNil(t, pkg.DeletedAt)
	var stored models.Package
	require.NoError(t, f.db.First(&stored, pkg.ID).Error)
	assert.True(t, stored.Deleted)
	assert.NotNil(t, stored.DeletedAt)
}

func TestDeleteWithoutCommittedDealsNotifiesNobody(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com")
	traveler := f.createUser(t, "t@example.com")

	pkg := f.createPackage(t, owner, "Downtown")
	travel := f.createTravel(t, traveler)
	f.createDeal(t, pkg, travel, owner.ID, models.DealStatusProposed)

	pkg.Deleted = true
	require.NoError(t, f.savePackage(t, pkg))

	require.Len(t, f.gateway.calls, 1)
	assert.Empty(t, f.gateway.calls[0].recipients)

	var dealCount int64
	require.NoError(t, f.db.Model(&models.Deal{}).Where("package_id = ?", pkg.ID).Count(&dealCount).Error)
	assert.Equal(t, int64(0), dealCount)
}

func TestRestoreClearsDeletionStamp(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com")
	pkg := f.createPackage(t, owner, "Downtown")

	pkg.Deleted = true
	require.NoError(t, f.savePackage(t, pkg))
	require.NotNil(t, pkg.DeletedAt)
	f.gateway.calls = nil

	pkg.Deleted = false
	require.NoError(t, f.savePackage(t, pkg))

	assert.Nil(t, pkg.DeletedAt)
	var stored models.Package
	require.NoError(t, f.db.First(&stored, pkg.ID).Error)
	assert.False(t, stored.Deleted)
	assert.Nil(t, stored.DeletedAt)

	// Restoring is silent.
	assert.Empty(t, f.gateway.calls)
}

func TestRepeatedDeleteDoesNotRestamp(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com")
	pkg := f.createPackage(t, owner, "Downtown")

	pkg.Deleted = true
	require.NoError(t, f.savePackage(t, pkg))
	firstStamp := *pkg.DeletedAt

	require.NoError(t, f.savePackage(t, pkg))
	assert.Equal(t, firstStamp, *pkg.DeletedAt)

	// Each save of a deleted package still enqueues its (empty) cancellation
	// round; delivery fan-out is driven by committed deals, which are gone.
	assert.Len(t, f.gateway.calls, 2)
}

func TestEnqueueFailureDoesNotFailSave(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = assert.AnError

	owner := f.createUser(t, "owner@example.com")
	pkg := f.createPackage(t, owner, "Downtown")

	pkg.Deleted = true
	require.NoError(t, f.savePackage(t, pkg))
	assert.NotNil(t, pkg.DeletedAt)
}

// The cascade enqueues through the caller's transaction; with the single
// connection the test database allows, a gateway writing on its own
// connection would block forever here.
func TestDeleteCascadePersistsNotifications(t *testing.T) {
	database := db.NewTestDB(t)
	logger := testLogger(t)
	gateway := notify.NewGateway(database, logger, 3)
	manager := NewManager(logger, gateway, perm.NewPropagator(logger), &fakeBlobStore{})

	owner := &models.User{Email: "owner@example.com", Name: "owner", PasswordHash: "x"}
	require.NoError(t, database.Create(owner).Error)
	traveler := &models.User{Email: "t@example.com", Name: "traveler", PasswordHash: "x"}
	require.NoError(t, database.Create(traveler).Error)

	pkg := &models.Package{OwnerID: owner.ID, Description: "books", WeightRange: models.Weight6To10, DestinyDescription: "Downtown"}
	require.NoError(t, database.Create(pkg).Error)
	travel := &models.Travel{OwnerID: traveler.ID, DestinyDescription: "Downtown", TravelDate: time.Now().UTC().AddDate(0, 0, 2), WeightCapacity: models.Weight11To15}
	require.NoError(t, database.Create(travel).Error)
	deal := &models.Deal{PackageID: pkg.ID, TravelID: travel.ID, UserID: owner.ID, Status: models.DealStatusProposed}
	require.NoError(t, database.Create(deal).Error)
	require.NoError(t, database.Create(&models.DoneDeal{DealID: deal.ID}).Error)

	pkg.Deleted = true
	require.NoError(t, database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(pkg).Error; err != nil {
			return err
		}
		return manager.PackageSaved(tx, pkg, false)
	}))

	var notifications []models.Notification
	require.NoError(t, database.Where("recipient_id = ?", traveler.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Encomenda cancelada", notifications[0].Title)
	assert.Equal(t, "Uma encomenda para Downtown foi cancelada.", notifications[0].Body)
	assert.Equal(t, models.NotificationStatusPending, notifications[0].Status)
}

func TestImageLifecycle(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com")
	pkg := f.createPackage(t, owner, "Downtown")

	image := &models.PackageImage{PackageID: pkg.ID, Locator: "abc123.jpg"}
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(image).Error; err != nil {
			return err
		}
		f.manager.PackageImageSaved(tx, image, pkg.OwnerID, true)
		return nil
	}))

	// The owner gets change and delete over the image.
	for _, capability := range []models.Capability{models.CapabilityChange, models.CapabilityDelete} {
		var count int64
		require.NoError(t, f.db.Model(&models.PermissionGrant{}).
			Where("user_id = ? AND capability = ? AND resource_type = ? AND resource_id = ?",
				owner.ID, capability, perm.ResourcePackageImage, image.ID).
			Count(&count).Error)
		assert.Equal(t, int64(1), count, "capability %s", capability)
	}

	f.manager.PackageImageDeleted(image)
	assert.Equal(t, []string{"abc123.jpg"}, f.blobs.deleted)
}

func TestImageBlobFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.blobs.deleteErr = assert.AnError

	image := &models.PackageImage{ID: 1, Locator: "gone.jpg"}
	f.manager.PackageImageDeleted(image)

	assert.Equal(t, []string{"gone.jpg"}, f.blobs.deleted)
}
