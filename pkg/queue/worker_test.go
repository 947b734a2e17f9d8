package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipemendesbraga/EuLevo/pkg/config"
	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
)

type sentMessage struct {
	deviceToken string
	title       string
	body        string
	data        models.JSON
}

type fakeProvider struct {
	succeed bool
	reason  string
	sent    []sentMessage
}

func (p *fakeProvider) Send(deviceToken, title, body string, data models.JSON) (bool, string) {
	p.sent = append(p.sent, sentMessage{deviceToken: deviceToken, title: title, body: body, data: data})
	return p.succeed, p.reason
}

func (p *fakeProvider) GetName() string { return "fake" }

func newTestWorker(t *testing.T, provider *fakeProvider) (*Worker, *db.DB) {
	t.Helper()

	logger, err := log.New(&config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"})
	require.NoError(t, err)

	database := db.NewTestDB(t)

	cfg := &config.Config{
		Queue: config.QueueConfig{
			WorkerCount:     1,
			PollInterval:    1,
			BatchSize:       10,
			RetryAttempts:   3,
			RetryBackoffMin: 2,
			RetryBackoffMax: 300,
		},
	}

	worker := &Worker{
		id:       1,
		config:   cfg,
		db:       database,
		logger:   logger,
		provider: provider,
		stopCh:   make(chan struct{}),
		wg:       &sync.WaitGroup{},
	}

	return worker, database
}

func seedNotification(t *testing.T, database *db.DB, recipientID uint) *models.Notification {
	t.Helper()

	user := &models.User{Email: "r@example.com", Name: "r", PasswordHash: "x", DeviceToken: "device-1"}
	user.ID = recipientID
	require.NoError(t, database.Create(user).Error)

	notification := &models.Notification{
		RecipientID:  recipientID,
		Title:        "Titulo",
		Body:         "Corpo",
		Status:       models.NotificationStatusPending,
		ScheduledFor: time.Now().Add(-time.Minute),
		MaxAttempts:  3,
	}
	require.NoError(t, database.Create(notification).Error)
	return notification
}

func TestProcessNotificationSuccess(t *testing.T) {
	provider := &fakeProvider{succeed: true}
	worker, database := newTestWorker(t, provider)

	notification := seedNotification(t, database, 1)
	worker.ProcessNotification(notification)

	require.Len(t, provider.sent, 1)
	assert.Equal(t, "device-1", provider.sent[0].deviceToken)
	assert.Equal(t, "Titulo", provider.sent[0].title)

	var stored models.Notification
	require.NoError(t, database.First(&stored, notification.ID).Error)
	assert.Equal(t, models.NotificationStatusSent, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestProcessNotificationFailureSchedulesRetry(t *testing.T) {
	provider := &fakeProvider{succeed: false, reason: "gateway timeout"}
	worker, database := newTestWorker(t, provider)

	notification := seedNotification(t, database, 1)
	worker.ProcessNotification(notification)

	var stored models.Notification
	require.NoError(t, database.First(&stored, notification.ID).Error)
	assert.Equal(t, models.NotificationStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, "gateway timeout", stored.LastError)
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.After(time.Now()))
}

func TestProcessNotificationExhaustsAttempts(t *testing.T) {
	provider := &fakeProvider{succeed: false, reason: "invalid token"}
	worker, database := newTestWorker(t, provider)

	notification := seedNotification(t, database, 1)
	notification.Attempts = 2
	require.NoError(t, database.Save(notification).Error)

	worker.ProcessNotification(notification)

	var stored models.Notification
	require.NoError(t, database.First(&stored, notification.ID).Error)
	assert.Equal(t, models.NotificationStatusFailed, stored.Status)
	assert.Equal(t, 3, stored.Attempts)
}

func TestProcessNotificationMissingRecipient(t *testing.T) {
	provider := &fakeProvider{succeed: true}
	worker, database := newTestWorker(t, provider)

	notification := &models.Notification{
		RecipientID:  999,
		Title:        "Titulo",
		Status:       models.NotificationStatusPending,
		ScheduledFor: time.Now().Add(-time.Minute),
		MaxAttempts:  3,
	}
	require.NoError(t, database.Create(notification).Error)

	worker.ProcessNotification(notification)

	assert.Empty(t, provider.sent)

	var stored models.Notification
	require.NoError(t, database.First(&stored, notification.ID).Error)
	assert.Equal(t, models.NotificationStatusFailed, stored.Status)
}

func TestCalculateBackoff(t *testing.T) {
	worker, _ := newTestWorker(t, &fakeProvider{})

	assert.Equal(t, 2, worker.calculateBackoff(1))
	assert.Equal(t, 4, worker.calculateBackoff(2))
	assert.Equal(t, 8, worker.calculateBackoff(3))
	assert.Equal(t, 300, worker.calculateBackoff(20))
}

func TestProcessQueueSkipsFutureRetries(t *testing.T) {
	provider := &fakeProvider{succeed: true}
	worker, database := newTestWorker(t, provider)

	notification := seedNotification(t, database, 1)
	future := time.Now().Add(time.Hour)
	notification.NextRetryAt = &future
	require.NoError(t, database.Save(notification).Error)

	worker.processQueue()
	assert.Empty(t, provider.sent)

	past := time.Now().Add(-time.Minute)
	notification.NextRetryAt = &past
	require.NoError(t, database.Save(notification).Error)

	worker.processQueue()
	assert.Len(t, provider.sent, 1)
}
