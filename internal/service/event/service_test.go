package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
)

type mockOutbox struct {
	mock.Mock
}

func (m *mockOutbox) Create(ctx context.Context, event *model.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockOutbox) GetPendingEventsWithLock(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, tx, limit)
	return args.Get(0).([]*model.OutboxEvent), args.Error(1)
}

func (m *mockOutbox) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	return m.Called(ctx, tx, id, status, errorMessage, retryAt).Error(0)
}

func (m *mockOutbox) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutbox) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return m.Called(ctx, fn).Error(0)
}

func TestEmitWritesOutbox(t *testing.T) {
	repo := new(mockOutbox)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(e *model.OutboxEvent) bool {
		return e.EventType == model.EventAppointmentBooked && string(e.Payload) == `{"id":"a1"}`
	})).Return(nil)

	err := NewService(repo).Emit(context.Background(), model.EventAppointmentBooked, map[string]string{"id": "a1"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestEmitRejectsUnmarshalable(t *testing.T) {
	err := NewService(new(mockOutbox)).Emit(context.Background(), "X", make(chan int))
	assert.Error(t, err)
}
