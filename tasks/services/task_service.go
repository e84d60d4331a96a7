package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/platform"
	"github.com/carbonledger/api/internal/types"
	sharedInterfaces "github.com/carbonledger/api/shared/interfaces"
	taskErrors "github.com/carbonledger/api/tasks/errors"
	"github.com/carbonledger/api/tasks/models"
	"github.com/gofrs/uuid"
)

const Collection = "tasks"

var Resource = filter.Resource{
	Collection:   Collection,
	RecordsField: "tasks",
	Search:       []string{"taskName", "targetName"},
	Range: &filter.Range{
		StartParam: "startDate",
		EndParam:   "endDate",
		StartField: "dueDate",
		Kind:       filter.Date,
	},
	Columns: map[string]filter.Kind{
		"taskName":   filter.String,
		"targetName": filter.String,
		"dueDate":    filter.Date,
		"progress":   filter.Number,
		"status":     filter.String,
	},
	DefaultLimit: 10,
	Sort:         []interfaces.SortField{{Field: "dueDate", Direction: 1}},
}

var Indexes = map[string][]interfaces.IndexSpec{
	Collection: {
		{Field: "objectId", Unique: true},
		{Field: "taskName", Unique: true},
		{Field: "usersIds"},
		{Field: "dueDate"},
	},
}

type TaskService interface {
	Create(ctx context.Context, req *models.CreateTaskRequest, actor types.UserContext) (*models.Task, error)
	Assign(ctx context.Context, req *models.AssignTaskRequest, actor types.UserContext) (*models.Task, error)
	Complete(ctx context.Context, id uuid.UUID, actor types.UserContext) (*models.Task, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateTaskRequest, actor types.UserContext) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// List pages through tasks. A non-empty dueDay restricts the listing to
	// tasks due on that day (or within that year for a bare year).
	List(ctx context.Context, req filter.Request, dueDay string) (*filter.Page[models.Task], error)
	// ListForUser pages through the tasks assigned to userID.
	ListForUser(ctx context.Context, userID uuid.UUID, req filter.Request) (*filter.Page[models.Task], error)
}

type taskService struct {
	base    *platform.BaseService
	users   sharedInterfaces.UserDirectory
	targets sharedInterfaces.TargetResolver
}

func NewTaskService(base *platform.BaseService, users sharedInterfaces.UserDirectory, targets sharedInterfaces.TargetResolver) TaskService {
	return &taskService{base: base, users: users, targets: targets}
}

func parseDueDate(value string) (time.Time, error) {
	t, err := filter.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", taskErrors.ErrInvalidDueDate, value)
	}
	return t, nil
}

func (s *taskService) checkUsers(ctx context.Context, ids []uuid.UUID) error {
	missing, err := s.users.MissingUsers(ctx, ids)
	if err != nil {
		return fmt.Errorf("check users: %w", err)
	}
	if len(missing) > 0 {
		return &taskErrors.UnknownUsersError{IDs: missing}
	}
	return nil
}

func (s *taskService) nameTaken(ctx context.Context, name string) error {
	exists, err := s.base.Exists(ctx, Collection, interfaces.Where("taskName", name))
	if err != nil {
		return fmt.Errorf("check task name: %w", err)
	}
	if exists {
		return taskErrors.ErrDuplicateTask
	}
	return nil
}

func (s *taskService) Create(ctx context.Context, req *models.CreateTaskRequest, actor types.UserContext) (*models.Task, error) {
	name := strings.TrimSpace(req.TaskName)
	if err := s.nameTaken(ctx, name); err != nil {
		return nil, err
	}
	targetName := strings.TrimSpace(req.TargetName)
	targetID, err := s.targets.TargetIDByName(ctx, targetName)
	if err != nil {
		return nil, err
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	if err := s.checkUsers(ctx, req.UsersIds); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &models.Task{
		ObjectId:   uuid.Must(uuid.NewV4()),
		TaskName:   name,
		TargetId:   targetID,
		TargetName: targetName,
		DueDate:    due,
		UsersIds:   req.UsersIds,
		Status:     models.StatusPending,
		CreatedBy:  actor.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if res := <-s.base.Repository.Save(ctx, Collection, task); res.Error != nil {
		if errors.Is(res.Error, interfaces.ErrDuplicateKey) {
			return nil, taskErrors.ErrDuplicateTask
		}
		return nil, fmt.Errorf("save task: %w", res.Error)
	}
	return task, nil
}

func (s *taskService) find(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := s.base.FindOne(ctx, Collection, interfaces.Where("objectId", id), &task)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, taskErrors.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// save writes set plus the audit fields to task and the store.
func (s *taskService) save(ctx context.Context, task *models.Task, set map[string]interface{}, actor types.UserContext) (*models.Task, error) {
	updatedBy := actor.UserID
	task.UpdatedBy = &updatedBy
	task.UpdatedAt = time.Now().UTC()
	set["updatedBy"] = updatedBy
	set["updatedAt"] = task.UpdatedAt

	res := <-s.base.Repository.Update(ctx, Collection, interfaces.Where("objectId", task.ObjectId), map[string]interface{}{"$set": set})
	if res.Error != nil {
		if errors.Is(res.Error, interfaces.ErrDuplicateKey) {
			return nil, taskErrors.ErrDuplicateTask
		}
		return nil, fmt.Errorf("update task: %w", res.Error)
	}
	if interfaces.AffectedCount(res) == 0 {
		return nil, taskErrors.ErrTaskNotFound
	}
	return task, nil
}

func (s *taskService) Assign(ctx context.Context, req *models.AssignTaskRequest, actor types.UserContext) (*models.Task, error) {
	task, err := s.find(ctx, req.Id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUsers(ctx, req.UsersIds); err != nil {
		return nil, err
	}
	task.UsersIds = req.UsersIds
	return s.save(ctx, task, map[string]interface{}{"usersIds": req.UsersIds}, actor)
}

func (s *taskService) Complete(ctx context.Context, id uuid.UUID, actor types.UserContext) (*models.Task, error) {
	task, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Status = models.StatusCompleted
	task.Progress = 100
	return s.save(ctx, task, map[string]interface{}{"status": task.Status, "progress": task.Progress}, actor)
}

func (s *taskService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateTaskRequest, actor types.UserContext) (*models.Task, error) {
	task, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	set := map[string]interface{}{}
	if req.TaskName != nil {
		name := strings.TrimSpace(*req.TaskName)
		if name != task.TaskName {
			if err := s.nameTaken(ctx, name); err != nil {
				return nil, err
			}
			task.TaskName = name
			set["taskName"] = name
		}
	}
	if req.TargetName != nil {
		targetName := strings.TrimSpace(*req.TargetName)
		targetID, err := s.targets.TargetIDByName(ctx, targetName)
		if err != nil {
			return nil, err
		}
		task.TargetId, task.TargetName = targetID, targetName
		set["targetId"] = targetID
		set["targetName"] = targetName
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = due
		set["dueDate"] = due
	}
	if req.UsersIds != nil {
		if err := s.checkUsers(ctx, req.UsersIds); err != nil {
			return nil, err
		}
		task.UsersIds = req.UsersIds
		set["usersIds"] = req.UsersIds
	}
	if req.Progress != nil {
		task.Progress = *req.Progress
		set["progress"] = task.Progress
	}
	if req.Status != nil {
		task.Status = *req.Status
		set["status"] = task.Status
	}
	return s.save(ctx, task, set, actor)
}

func (s *taskService) Delete(ctx context.Context, id uuid.UUID) error {
	res := <-s.base.Repository.Delete(ctx, Collection, interfaces.Where("objectId", id))
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if interfaces.AffectedCount(res) == 0 {
		return taskErrors.ErrTaskNotFound
	}
	return nil
}

func (s *taskService) List(ctx context.Context, req filter.Request, dueDay string) (*filter.Page[models.Task], error) {
	var scope *interfaces.Query
	if dueDay != "" {
		span, err := filter.ParseSpan(dueDay)
		if err != nil {
			return nil, err
		}
		if span.Instant() {
			span = filter.DayOf(span.Start)
		}
		scope = &interfaces.Query{Conditions: []interfaces.Field{
			{Name: "dueDate", Operator: interfaces.OpGte, Value: span.Start},
			{Name: "dueDate", Operator: interfaces.OpLt, Value: span.End},
		}}
	}
	return filter.List[models.Task](ctx, s.base.Repository, Resource, req, scope)
}

func (s *taskService) ListForUser(ctx context.Context, userID uuid.UUID, req filter.Request) (*filter.Page[models.Task], error) {
	missing, err := s.users.MissingUsers(ctx, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if len(missing) > 0 {
		return nil, taskErrors.ErrUserNotFound
	}
	return filter.List[models.Task](ctx, s.base.Repository, Resource, req, interfaces.Where("usersIds", userID))
}
