package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradhub/thesis-api/internal/models"
	"github.com/gradhub/thesis-api/pkg/jobs"
)

type mockNotificationRepo struct {
	mu      sync.Mutex
	created []models.Notification
	done    chan struct{}
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{done: make(chan struct{}, 16)}
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	m.created = append(m.created, *n)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created, len(m.created), nil
}

func (m *mockNotificationRepo) waitForWrite(t *testing.T) {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification write")
	}
}

func TestNotifyPersistsThroughQueue(t *testing.T) {
	repo := newMockNotificationRepo()
	svc := NewNotificationService(repo, nil, nil, jobs.QueueConfig{Workers: 1})
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(models.Notification{
		UserID:  "user-1",
		Type:    models.NotificationTaskAssigned,
		Title:   "New task assigned",
		Message: "Task was assigned.",
	})
	repo.waitForWrite(t)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.created, 1)
	assert.Equal(t, "user-1", repo.created[0].UserID)
	assert.NotEmpty(t, repo.created[0].ID)
	assert.False(t, repo.created[0].CreatedAt.IsZero())
}

func TestNotifyCountsDispatchedMetric(t *testing.T) {
	repo := newMockNotificationRepo()
	metrics := NewMetricsService()
	svc := NewNotificationService(repo, metrics, nil, jobs.QueueConfig{Workers: 1})
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(models.Notification{UserID: "user-1", Type: models.NotificationTaskAssigned, Title: "t", Message: "m"})
	svc.Notify(models.Notification{UserID: "user-2", Type: models.NotificationTaskAssigned, Title: "t", Message: "m"})
	repo.waitForWrite(t)
	repo.waitForWrite(t)

	assert.Equal(t, 2.0, counterValue(t, metrics, "notifications_dispatched_total"))
}
