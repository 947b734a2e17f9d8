package queue

import (
	"context"
	"sync"
	"time"

	"github.com/felipemendesbraga/EuLevo/pkg/config"
	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
	"github.com/felipemendesbraga/EuLevo/pkg/push"
)

// Worker represents a queue worker
type Worker struct {
	id       int
	config   *config.Config
	db       *db.DB
	logger   *log.Logger
	provider push.Provider
	stopCh   chan struct{}
	wg       *sync.WaitGroup
}

// Manager manages multiple workers draining the notification queue.
type Manager struct {
	config   *config.Config
	db       *db.DB
	logger   *log.Logger
	provider push.Provider
	workers  []*Worker
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a new queue manager
func NewManager(cfg *config.Config, database *db.DB, logger *log.Logger, provider push.Provider) *Manager {
	return &Manager{
		config:   cfg,
		db:       database,
		logger:   logger,
		provider: provider,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the queue manager and workers
func (m *Manager) Start(ctx context.Context) error {
	workerCount := m.config.Queue.WorkerCount
	if workerCount <= 0 {
		workerCount = 5
	}

	m.logger.WithField("worker_count", workerCount).Info("Starting queue workers")

	for i := 0; i < workerCount; i++ {
		worker := &Worker{
			id:       i + 1,
			config:   m.config,
			db:       m.db,
			logger:   m.logger,
			provider: m.provider,
			stopCh:   make(chan struct{}),
			wg:       &m.wg,
		}

		m.workers = append(m.workers, worker)
		m.wg.Add(1)
		go worker.start(ctx)
	}

	// Start cleanup goroutine
	m.wg.Add(1)
	go m.cleanupWorker(ctx)

	m.logger.Info("Queue manager started successfully")
	return nil
}

// Stop stops the queue manager and all workers
func (m *Manager) Stop() {
	m.logger.Info("Stopping queue manager...")

	close(m.stopCh)
	for _, worker := range m.workers {
		close(worker.stopCh)
	}

	m.wg.Wait()

	m.logger.Info("Queue manager stopped")
}

// start starts a single worker
func (w *Worker) start(ctx context.Context) {
	defer w.wg.Done()

	w.logger.WithField("worker_id", w.id).Info("Worker started")

	pollInterval := time.Duration(w.config.Queue.PollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.WithField("worker_id", w.id).Info("Worker stopped by context")
			return
		case <-w.stopCh:
			w.logger.WithField("worker_id", w.id).Info("Worker stopped")
			return
		case <-ticker.C:
			w.processQueue()
		}
	}
}

// processQueue processes pending notifications
func (w *Worker) processQueue() {
	repo := db.NewRepository(w.db)

	batchSize := w.config.Queue.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	notifications, err := repo.GetPendingNotifications(batchSize)
	if err != nil {
		w.logger.WithError(err).Error("Failed to get pending notifications")
		return
	}

	if len(notifications) == 0 {
		return
	}

	w.logger.WithFields(log.Fields{
		"worker_id": w.id,
		"count":     len(notifications),
	}).Debug("Processing notifications")

	for i := range notifications {
		w.ProcessNotification(&notifications[i])
	}
}

// ProcessNotification attempts delivery of a single queued notification.
func (w *Worker) ProcessNotification(notification *models.Notification) {
	repo := db.NewRepository(w.db)

	if err := repo.UpdateNotificationStatus(notification.ID, models.NotificationStatusProcessing); err != nil {
		w.logger.WithError(err).Error("Failed to mark notification as processing")
		return
	}

	recipient := notification.Recipient
	if recipient.ID == 0 {
		loaded, err := repo.GetUserByID(notification.RecipientID)
		if err != nil {
			w.failNotification(repo, notification, "recipient not found")
			return
		}
		recipient = *loaded
	}

	success, errorMsg := w.provider.Send(recipient.DeviceToken, notification.Title, notification.Body, notification.Data)

	if success {
		repo.UpdateNotificationStatus(notification.ID, models.NotificationStatusSent)
		w.logger.LogQueue(notification.ID, notification.RecipientID, "sent", true, notification.Attempts+1, "")
		return
	}

	w.handleFailure(repo, notification, errorMsg)
}

// handleFailure schedules a retry with exponential backoff, or gives up.
func (w *Worker) handleFailure(repo *db.Repository, notification *models.Notification, errorMsg string) {
	notification.Attempts++
	notification.LastError = errorMsg

	if notification.Attempts >= notification.MaxAttempts {
		repo.UpdateNotificationStatus(notification.ID, models.NotificationStatusFailed)
		notification.Status = models.NotificationStatusFailed
		repo.UpdateNotification(notification)
		w.logger.LogQueue(notification.ID, notification.RecipientID, "failed_max_attempts", false, notification.Attempts, "")
		return
	}

	backoffSeconds := w.calculateBackoff(notification.Attempts)
	nextRetry := time.Now().Add(time.Duration(backoffSeconds) * time.Second)

	notification.NextRetryAt = &nextRetry
	notification.Status = models.NotificationStatusPending
	repo.UpdateNotification(notification)

	w.logger.LogQueue(notification.ID, notification.RecipientID, "retry_scheduled", false, notification.Attempts, nextRetry.Format(time.RFC3339))
}

// failNotification marks a notification as terminally failed.
func (w *Worker) failNotification(repo *db.Repository, notification *models.Notification, errorMsg string) {
	notification.LastError = errorMsg
	notification.Status = models.NotificationStatusFailed
	repo.UpdateNotification(notification)
	repo.UpdateNotificationStatus(notification.ID, models.NotificationStatusFailed)
	w.logger.LogQueue(notification.ID, notification.RecipientID, "failed", false, notification.Attempts, "")
}

// calculateBackoff calculates exponential backoff delay
func (w *Worker) calculateBackoff(attempts int) int {
	minBackoff := w.config.Queue.RetryBackoffMin
	maxBackoff := w.config.Queue.RetryBackoffMax

	// Exponential backoff: min * 2^(attempts-1)
	backoff := minBackoff * (1 << uint(attempts-1))

	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	return backoff
}

// cleanupWorker performs periodic cleanup tasks
func (m *Manager) cleanupWorker(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.performCleanup()
		}
	}
}

// performCleanup prunes settled notifications and unsticks stale ones.
func (m *Manager) performCleanup() {
	m.logger.Debug("Performing queue cleanup")

	repo := db.NewRepository(m.db)

	// Remove settled notifications older than 7 days
	cutoffDate := time.Now().AddDate(0, 0, -7)

	result := repo.DB().Where("status IN ? AND updated_at < ?",
		[]models.NotificationStatus{models.NotificationStatusSent, models.NotificationStatusFailed},
		cutoffDate).
		Delete(&models.Notification{})

	if result.Error == nil && result.RowsAffected > 0 {
		m.logger.WithField("cleaned_items", result.RowsAffected).Info("Cleaned up old notifications")
	}

	// Reset notifications stuck in processing for over an hour
	stuckCutoff := time.Now().Add(-1 * time.Hour)
	result = repo.DB().Model(&models.Notification{}).
		Where("status = ? AND updated_at < ?", models.NotificationStatusProcessing, stuckCutoff).
		Updates(map[string]interface{}{
			"status":        models.NotificationStatusPending,
			"scheduled_for": time.Now(),
		})

	if result.Error == nil && result.RowsAffected > 0 {
		m.logger.WithField("reset_items", result.RowsAffected).Warn("Reset stuck processing notifications")
	}
}
