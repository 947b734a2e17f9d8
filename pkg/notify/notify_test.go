package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipemendesbraga/EuLevo/pkg/config"
	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
)

func newTestGateway(t *testing.T, retryAttempts int) (*Gateway, *db.DB) {
	t.Helper()
	logger, err := log.New(&config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	database := db.NewTestDB(t)
	return NewGateway(database, logger, retryAttempts), database
}

func TestEnqueueCreatesOneRowPerRecipient(t *testing.T) {
	gateway, database := newTestGateway(t, 3)

	data := models.JSON{"type": "package", "id": float64(3)}
	require.NoError(t, gateway.Enqueue([]uint{1, 2, 3}, "Titulo", "Corpo", data))

	var notifications []models.Notification
	require.NoError(t, database.Order("recipient_id ASC").Find(&notifications).Error)
	require.Len(t, notifications, 3)

	for i, notification := range notifications {
		assert.Equal(t, uint(i+1), notification.RecipientID)
		assert.Equal(t, "Titulo", notification.Title)
		assert.Equal(t, "Corpo", notification.Body)
		assert.Equal(t, models.NotificationStatusPending, notification.Status)
		assert.Equal(t, 0, notification.Attempts)
		assert.Equal(t, 3, notification.MaxAttempts)
		assert.False(t, notification.ScheduledFor.IsZero())
	}
}

func TestEnqueueNoRecipients(t *testing.T) {
	gateway, database := newTestGateway(t, 3)

	require.NoError(t, gateway.Enqueue(nil, "Titulo", "Corpo", nil))

	var count int64
	require.NoError(t, database.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestConfiguredRetryAttemptsLandOnRows(t *testing.T) {
	gateway, database := newTestGateway(t, 5)

	require.NoError(t, gateway.Enqueue([]uint{1}, "Titulo", "Corpo", nil))

	var notification models.Notification
	require.NoError(t, database.First(&notification).Error)
	assert.Equal(t, 5, notification.MaxAttempts)
}

func TestRetryAttemptsFallBackWhenUnset(t *testing.T) {
	gateway, database := newTestGateway(t, 0)

	require.NoError(t, gateway.Enqueue([]uint{1}, "Titulo", "Corpo", nil))

	var notification models.Notification
	require.NoError(t, database.First(&notification).Error)
	assert.Equal(t, 3, notification.MaxAttempts)
}
