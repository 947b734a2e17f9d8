package deals

import (
	"errors"
	"fmt"

	"github.com/felipemendesbraga/EuLevo/pkg/apperr"
	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
	"gorm.io/gorm"
)

const (
	dealProposedTitle  = "Nova proposta de entrega"
	dealProposedBody   = "Você recebeu uma nova proposta de entrega."
	dealConfirmedTitle = "Negócio fechado"
	dealConfirmedBody  = "Um negócio foi fechado para sua proposta."
)

// NotificationGateway enqueues push notifications for later delivery.
type NotificationGateway interface {
	Enqueue(recipients []uint, title, body string, data models.JSON) error
}

// Engine governs the deal lifecycle: proposal, listing, confirmation. It is
// the only writer of Deal and DoneDeal rows outside the package-deletion
// cascade.
type Engine struct {
	db      *db.DB
	logger  *log.Logger
	gateway NotificationGateway
}

// NewEngine creates a new deal matching engine
func NewEngine(database *db.DB, logger *log.Logger, gateway NotificationGateway) *Engine {
	return &Engine{
		db:      database,
		logger:  logger,
		gateway: gateway,
	}
}

// DoneDealView is the read-side projection of a confirmed match.
type DoneDealView struct {
	ID        uint           `json:"id"`
	DealID    uint           `json:"deal_id"`
	CreatedAt string         `json:"created_at"`
	Package   PackageSummary `json:"package"`
	Travel    TravelSummary  `json:"travel"`
}

type PackageSummary struct {
	ID                 uint               `json:"id"`
	OwnerID            uint               `json:"owner_id"`
	Description        string             `json:"description"`
	DestinyDescription string             `json:"destiny_description"`
	WeightRange        models.WeightRange `json:"weight_range"`
}

type TravelSummary struct {
	ID                 uint   `json:"id"`
	OwnerID            uint   `json:"owner_id"`
	DestinyDescription string `json:"destiny_description"`
	TravelDate         string `json:"travel_date"`
}

// ProposeOrUpdate creates the deal for a (package, travel) pair, or, when one
// already exists, re-proposes it by forcing the status back to 1. Exactly one
// deal ever exists per pair. The counter-party of the acting user is notified
// with a payload pointing at the entity on their side.
func (e *Engine) ProposeOrUpdate(actingUser *models.User, packageID, travelID uint) (*models.Deal, error) {
	repo := db.NewRepository(e.db)

	pkg, err := repo.GetPackageByID(packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Package doesn't exist")
		}
		return nil, fmt.Errorf("failed to load package %d: %w", packageID, err)
	}

	travel, err := repo.GetTravelByID(travelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Travel doesn't exist")
		}
		return nil, fmt.Errorf("failed to load travel %d: %w", travelID, err)
	}

	deal, err := repo.GetDealByPair(packageID, travelID)
	switch {
	case err == nil:
		// Re-propose: same row, status forced back to proposed.
		deal.Status = models.DealStatusProposed
		deal.UserID = actingUser.ID
		if err := repo.UpdateDeal(deal); err != nil {
			return nil, fmt.Errorf("failed to re-propose deal %d: %w", deal.ID, err)
		}
		e.logger.LogDeal(deal.ID, packageID, travelID, "re-proposed", true)

	case errors.Is(err, gorm.ErrRecordNotFound):
		deal = &models.Deal{
			PackageID: packageID,
			TravelID:  travelID,
			UserID:    actingUser.ID,
			Status:    models.DealStatusProposed,
		}
		if err := repo.CreateDeal(deal); err != nil {
			// The unique pair index turns a concurrent double-propose into a
			// duplicate here; fall back to the surviving row.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return e.ProposeOrUpdate(actingUser, packageID, travelID)
			}
			return nil, fmt.Errorf("failed to create deal: %w", err)
		}
		e.logger.LogDeal(deal.ID, packageID, travelID, "proposed", true)

	default:
		return nil, fmt.Errorf("failed to look up deal pair (%d, %d): %w", packageID, travelID, err)
	}

	e.notifyCounterParty(actingUser, deal, pkg, travel)
	return deal, nil
}

// notifyCounterParty notifies the other side of the deal. Failures are
// logged, never returned: the proposal has already been persisted.
func (e *Engine) notifyCounterParty(actingUser *models.User, deal *models.Deal, pkg *models.Package, travel *models.Travel) {
	var recipient uint
	var data models.JSON

	if actingUser.ID == pkg.OwnerID {
		recipient = travel.OwnerID
		data = models.JSON{"type": "travel", "id": travel.ID, "deal": deal.ID}
	} else {
		recipient = pkg.OwnerID
		data = models.JSON{"type": "package", "id": pkg.ID, "deal": deal.ID}
	}

	if err := e.gateway.Enqueue([]uint{recipient}, dealProposedTitle, dealProposedBody, data); err != nil {
		e.logger.WithError(err).WithField("deal_id", deal.ID).Error("Failed to enqueue proposal notification")
	}
}

// List returns one page of the deals visible to the acting user, along with
// the unpaged total. An explicit travel or package filter must reference an
// entity owned by the acting user. A limit of zero or less returns everything.
func (e *Engine) List(actingUser *models.User, travelID, packageID *uint, offset, limit int) ([]models.Deal, int64, error) {
	repo := db.NewRepository(e.db)
	filter := db.DealFilter{Offset: offset, Limit: limit}

	if travelID != nil {
		if _, err := repo.GetTravelOwned(*travelID, actingUser.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, apperr.NotFound("Travel doesn't exist")
			}
			return nil, 0, fmt.Errorf("failed to validate travel filter: %w", err)
		}
		filter.TravelID = travelID
	}

	if packageID != nil {
		if _, err := repo.GetPackageOwned(*packageID, actingUser.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, apperr.NotFound("Package doesn't exist")
			}
			return nil, 0, fmt.Errorf("failed to validate package filter: %w", err)
		}
		filter.PackageID = packageID
	}

	total, err := repo.CountDeals(actingUser.ID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count deals: %w", err)
	}

	deals, err := repo.ListDeals(actingUser.ID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deals: %w", err)
	}
	return deals, total, nil
}

// Confirm finalizes a deal into a DoneDeal. The gate is strict: the deal must
// exist and currently hold status 1. The unique index on DoneDeal.DealID
// keeps concurrent confirmations from both committing.
func (e *Engine) Confirm(actingUser *models.User, dealID uint) (*models.DoneDeal, error) {
	repo := db.NewRepository(e.db)

	deal, err := repo.GetDealByID(dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validation("Deal not available")
		}
		return nil, fmt.Errorf("failed to load deal %d: %w", dealID, err)
	}

	if deal.Status != models.DealStatusProposed {
		return nil, apperr.Validation("Deal not available")
	}

	doneDeal := &models.DoneDeal{DealID: deal.ID}
	if err := repo.CreateDoneDeal(doneDeal); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation("Deal not available")
		}
		return nil, fmt.Errorf("failed to create done deal: %w", err)
	}

	e.logger.LogDeal(deal.ID, deal.PackageID, deal.TravelID, "confirmed", true)

	data := models.JSON{"deal": deal.ID}
	if err := e.gateway.Enqueue([]uint{actingUser.ID}, dealConfirmedTitle, dealConfirmedBody, data); err != nil {
		e.logger.WithError(err).WithField("deal_id", deal.ID).Error("Failed to enqueue confirmation notification")
	}

	return doneDeal, nil
}

// ListDone returns the confirmed matches visible to the acting user as view
// projections.
func (e *Engine) ListDone(actingUser *models.User) ([]DoneDealView, error) {
	repo := db.NewRepository(e.db)

	doneDeals, err := repo.ListDoneDeals(actingUser.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list done deals: %w", err)
	}

	views := make([]DoneDealView, 0, len(doneDeals))
	for _, doneDeal := range doneDeals {
		views = append(views, DoneDealView{
			ID:        doneDeal.ID,
			DealID:    doneDeal.DealID,
			CreatedAt: doneDeal.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Package: PackageSummary{
				ID:                 doneDeal.Deal.Package.ID,
				OwnerID:            doneDeal.Deal.Package.OwnerID,
				Description:        doneDeal.Deal.Package.Description,
				DestinyDescription: doneDeal.Deal.Package.DestinyDescription,
				WeightRange:        doneDeal.Deal.Package.WeightRange,
			},
			Travel: TravelSummary{
				ID:                 doneDeal.Deal.Travel.ID,
				OwnerID:            doneDeal.Deal.Travel.OwnerID,
				DestinyDescription: doneDeal.Deal.Travel.DestinyDescription,
				TravelDate:         doneDeal.Deal.Travel.TravelDate.Format("2006-01-02"),
			},
		})
	}
	return views, nil
}
