package services

import (
	"context"
	"errors"
	"testing"

	"github.com/carbonledger/api/internal/database/memory"
	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/platform"
	"github.com/carbonledger/api/internal/types"
	sharedInterfaces "github.com/carbonledger/api/shared/interfaces"
	taskErrors "github.com/carbonledger/api/tasks/errors"
	"github.com/carbonledger/api/tasks/models"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) MissingUsers(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockDirectory) UserSummaries(ctx context.Context, ids []uuid.UUID) ([]sharedInterfaces.UserSummary, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]sharedInterfaces.UserSummary), args.Error(1)
}

func (m *mockDirectory) AssignRole(ctx context.Context, userIDs []uuid.UUID, roleID uuid.UUID) error {
	return m.Called(ctx, userIDs, roleID).Error(0)
}

func (m *mockDirectory) ClearRole(ctx context.Context, roleID uuid.UUID) error {
	return m.Called(ctx, roleID).Error(0)
}

type mockTargets struct {
	mock.Mock
}

func (m *mockTargets) TargetIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func newMockedService(t *testing.T) (TaskService, *mockDirectory, *mockTargets) {
	t.Helper()
	users, targets := &mockDirectory{}, &mockTargets{}
	t.Cleanup(func() {
		users.AssertExpectations(t)
		targets.AssertExpectations(t)
	})
	return NewTaskService(platform.NewBaseServiceWithRepo(memory.NewRepository()), users, targets), users, targets
}

func TestCreateResolvesTargetAndUsers(t *testing.T) {
	svc, users, targets := newMockedService(t)
	ctx := context.Background()
	targetID := uuid.Must(uuid.NewV4())
	assignee := uuid.Must(uuid.NewV4())

	targets.On("TargetIDByName", mock.Anything, "Net zero").Return(targetID, nil).Once()
	users.On("MissingUsers", mock.Anything, []uuid.UUID{assignee}).Return([]uuid.UUID{}, nil).Once()

	task, err := svc.Create(ctx, &models.CreateTaskRequest{
		TaskName:   " Audit fleet ",
		TargetName: " Net zero ",
		DueDate:    "2025-03-31",
		UsersIds:   []uuid.UUID{assignee},
	}, types.UserContext{UserID: uuid.Must(uuid.NewV4())})
	require.NoError(t, err)
	assert.Equal(t, "Audit fleet", task.TaskName)
	assert.Equal(t, targetID, task.TargetId)
	assert.Equal(t, models.StatusPending, task.Status)
}

func TestCreateStopsAtFirstFailure(t *testing.T) {
	t.Run("unknown target skips the user check", func(t *testing.T) {
		svc, _, targets := newMockedService(t)
		targets.On("TargetIDByName", mock.Anything, "Ghost").Return(uuid.Nil, sharedInterfaces.ErrTargetNotFound).Once()

		_, err := svc.Create(context.Background(), &models.CreateTaskRequest{
			TaskName: "t", TargetName: "Ghost", DueDate: "2025-01-01", UsersIds: []uuid.UUID{uuid.Must(uuid.NewV4())},
		}, types.UserContext{})
		assert.ErrorIs(t, err, taskErrors.ErrTargetNotFound)
	})

	t.Run("unknown users are reported", func(t *testing.T) {
		svc, users, targets := newMockedService(t)
		ghost := uuid.Must(uuid.NewV4())
		targets.On("TargetIDByName", mock.Anything, "Net zero").Return(uuid.Must(uuid.NewV4()), nil).Once()
		users.On("MissingUsers", mock.Anything, []uuid.UUID{ghost}).Return([]uuid.UUID{ghost}, nil).Once()

		_, err := svc.Create(context.Background(), &models.CreateTaskRequest{
			TaskName: "t", TargetName: "Net zero", DueDate: "2025-01-01", UsersIds: []uuid.UUID{ghost},
		}, types.UserContext{})
		var unknown *taskErrors.UnknownUsersError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, []uuid.UUID{ghost}, unknown.IDs)
	})

	t.Run("directory failure is wrapped", func(t *testing.T) {
		svc, users, targets := newMockedService(t)
		boom := errors.New("boom")
		targets.On("TargetIDByName", mock.Anything, "Net zero").Return(uuid.Must(uuid.NewV4()), nil).Once()
		users.On("MissingUsers", mock.Anything, mock.Anything).Return(nil, boom).Once()

		_, err := svc.Create(context.Background(), &models.CreateTaskRequest{
			TaskName: "t", TargetName: "Net zero", DueDate: "2025-01-01", UsersIds: []uuid.UUID{uuid.Must(uuid.NewV4())},
		}, types.UserContext{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestListForUnknownUser(t *testing.T) {
	svc, users, _ := newMockedService(t)
	id := uuid.Must(uuid.NewV4())
	users.On("MissingUsers", mock.Anything, []uuid.UUID{id}).Return([]uuid.UUID{id}, nil).Once()

	_, err := svc.ListForUser(context.Background(), id, filter.Request{})
	assert.ErrorIs(t, err, taskErrors.ErrUserNotFound)
}
