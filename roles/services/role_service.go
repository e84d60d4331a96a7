package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/platform"
	"github.com/carbonledger/api/internal/types"
	roleErrors "github.com/carbonledger/api/roles/errors"
	"github.com/carbonledger/api/roles/models"
	sharedInterfaces "github.com/carbonledger/api/shared/interfaces"
	"github.com/gofrs/uuid"
)

const Collection = "roles"

var Indexes = map[string][]interfaces.IndexSpec{
	Collection: {
		{Field: "objectId", Unique: true},
		{Field: "name", Unique: true},
	},
}

// RoleService defines role management. Membership is mirrored on each user's roleId.
type RoleService interface {
	Create(ctx context.Context, req *models.CreateRoleRequest, actor types.UserContext) (*models.RoleView, error)
	List(ctx context.Context) ([]models.RoleView, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateRoleRequest) (*models.RoleView, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type roleService struct {
	base  *platform.BaseService
	users sharedInterfaces.UserDirectory
}

func NewRoleService(base *platform.BaseService, users sharedInterfaces.UserDirectory) RoleService {
	return &roleService{base: base, users: users}
}

func (s *roleService) checkUsers(ctx context.Context, ids []uuid.UUID) error {
	missing, err := s.users.MissingUsers(ctx, ids)
	if err != nil {
		return fmt.Errorf("check users: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, id := range missing {
		names[i] = id.String()
	}
	return fmt.Errorf("%w: %s", roleErrors.ErrUnknownUsers, strings.Join(names, ", "))
}

func (s *roleService) view(ctx context.Context, role *models.Role) (*models.RoleView, error) {
	members, err := s.users.UserSummaries(ctx, role.UsersIds)
	if err != nil {
		return nil, fmt.Errorf("load role members: %w", err)
	}
	return toView(role, members), nil
}

func toView(role *models.Role, members []sharedInterfaces.UserSummary) *models.RoleView {
	perms := role.Permissions
	if perms == nil {
		perms = []string{}
	}
	return &models.RoleView{
		ObjectId:    role.ObjectId,
		Name:        role.Name,
		Permissions: perms,
		Users:       members,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

func (s *roleService) Create(ctx context.Context, req *models.CreateRoleRequest, actor types.UserContext) (*models.RoleView, error) {
	if len(req.UsersIds) == 0 {
		return nil, roleErrors.ErrUsersRequired
	}
	if err := s.checkUsers(ctx, req.UsersIds); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	role := &models.Role{
		ObjectId:    uuid.Must(uuid.NewV4()),
		Name:        strings.TrimSpace(req.Name),
		Permissions: req.Permissions,
		UsersIds:    req.UsersIds,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if res := <-s.base.Repository.Save(ctx, Collection, role); res.Error != nil {
		if errors.Is(res.Error, interfaces.ErrDuplicateKey) {
			return nil, roleErrors.ErrDuplicateRole
		}
		return nil, fmt.Errorf("save role: %w", res.Error)
	}

	if err := s.users.AssignRole(ctx, role.UsersIds, role.ObjectId); err != nil {
		return nil, err
	}
	return s.view(ctx, role)
}

func (s *roleService) List(ctx context.Context) ([]models.RoleView, error) {
	roles, err := platform.FindAll[models.Role](ctx, s.base.Repository, Collection, nil, &interfaces.FindOptions{
		Sort: []interfaces.SortField{{Field: "name", Direction: 1}},
	})
	if err != nil {
		return nil, err
	}

	var all []uuid.UUID
	for _, r := range roles {
		all = append(all, r.UsersIds...)
	}
	members, err := s.users.UserSummaries(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("load role members: %w", err)
	}
	byID := make(map[uuid.UUID]sharedInterfaces.UserSummary, len(members))
	for _, m := range members {
		byID[m.ObjectId] = m
	}

	out := make([]models.RoleView, 0, len(roles))
	for i := range roles {
		users := []sharedInterfaces.UserSummary{}
		for _, id := range roles[i].UsersIds {
			if m, ok := byID[id]; ok {
				users = append(users, m)
			}
		}
		out = append(out, *toView(&roles[i], users))
	}
	return out, nil
}

func (s *roleService) find(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var role models.Role
	err := s.base.FindOne(ctx, Collection, interfaces.Where("objectId", id), &role)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, roleErrors.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &role, nil
}

func (s *roleService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateRoleRequest) (*models.RoleView, error) {
	if req.IsEmpty() {
		return nil, roleErrors.ErrNothingToUpdate
	}
	role, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	set := map[string]interface{}{}
	if name := strings.TrimSpace(req.Name); name != "" {
		role.Name = name
		set["name"] = name
	}
	if req.Permissions != nil {
		role.Permissions = req.Permissions
		set["permissions"] = req.Permissions
	}
	if req.UsersIds != nil {
		if err := s.checkUsers(ctx, req.UsersIds); err != nil {
			return nil, err
		}
		role.UsersIds = req.UsersIds
		set["usersIds"] = req.UsersIds
	}
	role.UpdatedAt = time.Now().UTC()
	set["updatedAt"] = role.UpdatedAt

	res := <-s.base.Repository.Update(ctx, Collection, interfaces.Where("objectId", id), map[string]interface{}{"$set": set})
	if res.Error != nil {
		if errors.Is(res.Error, interfaces.ErrDuplicateKey) {
			return nil, roleErrors.ErrDuplicateRole
		}
		return nil, fmt.Errorf("update role: %w", res.Error)
	}

	if req.UsersIds != nil {
		if err := s.users.ClearRole(ctx, id); err != nil {
			return nil, err
		}
		if err := s.users.AssignRole(ctx, req.UsersIds, id); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, role)
}

func (s *roleService) Delete(ctx context.Context, id uuid.UUID) error {
	res := <-s.base.Repository.Delete(ctx, Collection, interfaces.Where("objectId", id))
	if res.Error != nil {
		return fmt.Errorf("delete role: %w", res.Error)
	}
	if interfaces.AffectedCount(res) == 0 {
		return roleErrors.ErrRoleNotFound
	}
	return s.users.ClearRole(ctx, id)
}
