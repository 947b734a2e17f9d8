package notify

import (
	"time"

	"gorm.io/gorm"

	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
)

// Gateway accepts notification requests and persists them for asynchronous
// delivery by the queue workers. Enqueue is fire-and-forget: delivery is
// at-least-once, unordered, and never acknowledged to the caller.
type Gateway struct {
	db          *db.DB
	logger      *log.Logger
	maxAttempts int
}

// NewGateway creates a new notification gateway. retryAttempts caps delivery
// retries per notification.
func NewGateway(database *db.DB, logger *log.Logger, retryAttempts int) *Gateway {
	if retryAttempts < 1 {
		retryAttempts = 3
	}
	return &Gateway{
		db:          database,
		logger:      logger,
		maxAttempts: retryAttempts,
	}
}

// Enqueue queues one notification per recipient on the gateway's own
// connection. Callers running inside a transaction must use EnqueueTx.
func (g *Gateway) Enqueue(recipients []uint, title, body string, data models.JSON) error {
	return g.EnqueueTx(g.db.DB, recipients, title, body, data)
}

// EnqueueTx queues one notification per recipient through tx. Lifecycle
// hooks pass their surrounding transaction here so the rows commit
// atomically with the triggering write and never contend with its
// connection for the database. A failure to queue is logged and reported,
// but callers triggering notifications from entity mutations must not fail
// the mutation on it.
func (g *Gateway) EnqueueTx(tx *gorm.DB, recipients []uint, title, body string, data models.JSON) error {
	now := time.Now()

	var firstErr error
	for _, recipientID := range recipients {
		notification := &models.Notification{
			RecipientID:  recipientID,
			Title:        title,
			Body:         body,
			Data:         data,
			Status:       models.NotificationStatusPending,
			ScheduledFor: now,
			MaxAttempts:  g.maxAttempts,
		}

		if err := tx.Create(notification).Error; err != nil {
			g.logger.WithField("recipient_id", recipientID).WithError(err).Error("Failed to enqueue notification")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		g.logger.LogNotification(notification.ID, recipientID, "enqueued", true)
	}

	return firstErr
}
