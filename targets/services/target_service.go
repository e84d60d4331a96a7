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
	targetErrors "github.com/carbonledger/api/targets/errors"
	"github.com/carbonledger/api/targets/models"
	"github.com/gofrs/uuid"
)

const Collection = "targets"

// tasksCollection holds the tasks that reference a target by targetId.
const tasksCollection = "tasks"

// Resource lists targets. The range parameters bound a window of years:
// start applies to baseYear and end to targetYear.
var Resource = filter.Resource{
	Collection:   Collection,
	RecordsField: "targets",
	Search:       []string{"name", "type"},
	Range: &filter.Range{
		StartParam: "start",
		EndParam:   "end",
		StartField: "baseYear",
		EndField:   "targetYear",
		Kind:       filter.Number,
	},
	Columns: map[string]filter.Kind{
		"name":              filter.String,
		"type":              filter.String,
		"emissionReduction": filter.Number,
	},
	DefaultLimit: 8,
	Sort:         []interfaces.SortField{{Field: "baseYear", Direction: 1}, {Field: "name", Direction: 1}},
}

var Indexes = map[string][]interfaces.IndexSpec{
	Collection: {
		{Field: "objectId", Unique: true},
		{Field: "name", Unique: true},
	},
}

// Notification messages recorded for target changes.
const (
	MessageCreated = "created new target"
	MessageUpdated = "updated target"
	MessageDeleted = "deleted target"
)

type TargetService interface {
	Create(ctx context.Context, req *models.CreateTargetRequest, actor types.UserContext) (*models.Target, error)
	Update(ctx context.Context, req *models.UpdateTargetRequest, actor types.UserContext) (*models.Target, error)
	Delete(ctx context.Context, id uuid.UUID, actor types.UserContext) error
	List(ctx context.Context, req filter.Request) (*filter.Page[models.Target], error)

	sharedInterfaces.TargetResolver
}

type targetService struct {
	base     *platform.BaseService
	notifier sharedInterfaces.Notifier
}

// NewTargetService creates the service. notifier may be nil.
func NewTargetService(base *platform.BaseService, notifier sharedInterfaces.Notifier) TargetService {
	return &targetService{base: base, notifier: notifier}
}

func (s *targetService) notify(ctx context.Context, actor types.UserContext, message string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, actor, message)
	}
}

func (s *targetService) Create(ctx context.Context, req *models.CreateTargetRequest, actor types.UserContext) (*models.Target, error) {
	name := strings.TrimSpace(req.Name)
	exists, err := s.base.Exists(ctx, Collection, interfaces.Where("name", name))
	if err != nil {
		return nil, fmt.Errorf("check target name: %w", err)
	}
	if exists {
		return nil, targetErrors.ErrDuplicateTarget
	}
	if req.BaseYear >= req.TargetYear {
		return nil, targetErrors.ErrInvalidYears
	}

	now := time.Now().UTC()
	target := &models.Target{
		ObjectId:          uuid.Must(uuid.NewV4()),
		Name:              name,
		Type:              strings.TrimSpace(req.Type),
		EmissionReduction: req.EmissionReduction,
		BaseYear:          req.BaseYear,
		TargetYear:        req.TargetYear,
		CreatedBy:         actor.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if res := <-s.base.Repository.Save(ctx, Collection, target); res.Error != nil {
		if errors.Is(res.Error, interfaces.ErrDuplicateKey) {
			return nil, targetErrors.ErrDuplicateTarget
		}
		return nil, fmt.Errorf("save target: %w", res.Error)
	}

	s.notify(ctx, actor, MessageCreated)
	return target, nil
}

func (s *targetService) findBy(ctx context.Context, query *interfaces.Query) (*models.Target, error) {
	var target models.Target
	err := s.base.FindOne(ctx, Collection, query, &target)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, targetErrors.ErrTargetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find target: %w", err)
	}
	return &target, nil
}

func (s *targetService) Update(ctx context.Context, req *models.UpdateTargetRequest, actor types.UserContext) (*models.Target, error) {
	target, err := s.findBy(ctx, interfaces.Where("name", strings.TrimSpace(req.Name)))
	if err != nil {
		return nil, err
	}

	set := map[string]interface{}{}
	if req.Type != nil {
		target.Type = strings.TrimSpace(*req.Type)
		set["type"] = target.Type
	}
	if req.EmissionReduction != nil {
		target.EmissionReduction = *req.EmissionReduction
		set["emissionReduction"] = target.EmissionReduction
	}
	if req.BaseYear != nil {
		target.BaseYear = *req.BaseYear
		set["baseYear"] = target.BaseYear
	}
	if req.TargetYear != nil {
		target.TargetYear = *req.TargetYear
		set["targetYear"] = target.TargetYear
	}
	if target.BaseYear >= target.TargetYear {
		return nil, targetErrors.ErrInvalidYears
	}
	target.UpdatedAt = time.Now().UTC()
	set["updatedAt"] = target.UpdatedAt

	res := <-s.base.Repository.Update(ctx, Collection, interfaces.Where("objectId", target.ObjectId), map[string]interface{}{"$set": set})
	if res.Error != nil {
		return nil, fmt.Errorf("update target: %w", res.Error)
	}
	if interfaces.AffectedCount(res) == 0 {
		return nil, targetErrors.ErrTargetNotFound
	}

	s.notify(ctx, actor, MessageUpdated)
	return target, nil
}

func (s *targetService) Delete(ctx context.Context, id uuid.UUID, actor types.UserContext) error {
	inUse, err := s.base.Exists(ctx, tasksCollection, interfaces.Where("targetId", id))
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if inUse {
		return targetErrors.ErrTargetInUse
	}

	res := <-s.base.Repository.Delete(ctx, Collection, interfaces.Where("objectId", id))
	if res.Error != nil {
		return fmt.Errorf("delete target: %w", res.Error)
	}
	if interfaces.AffectedCount(res) == 0 {
		return targetErrors.ErrTargetNotFound
	}
	s.notify(ctx, actor, MessageDeleted)
	return nil
}

func (s *targetService) List(ctx context.Context, req filter.Request) (*filter.Page[models.Target], error) {
	return filter.List[models.Target](ctx, s.base.Repository, Resource, req, nil)
}

// TargetIDByName resolves the target a task refers to.
func (s *targetService) TargetIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	target, err := s.findBy(ctx, interfaces.Where("name", strings.TrimSpace(name)))
	if err != nil {
		return uuid.Nil, err
	}
	return target.ObjectId, nil
}
