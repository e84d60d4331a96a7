package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carbonledger/api/internal/auth/tokens"
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/platform"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	sharedInterfaces "github.com/carbonledger/api/shared/interfaces"
	userErrors "github.com/carbonledger/api/users/errors"
	"github.com/carbonledger/api/users/models"
	"github.com/gofrs/uuid"
	gopass "github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
)

type userService struct {
	base        *platform.BaseService
	jwt         platformconfig.JWTConfig
	revocations *cache.Revocations
	hashCost    int
}

// NewUserService creates the users service. revocations may be nil, in which
// case logout only clears the client cookie.
func NewUserService(base *platform.BaseService, cfg *platformconfig.Config, revocations *cache.Revocations) UserService {
	return &userService{
		base:        base,
		jwt:         cfg.JWT,
		revocations: revocations,
		hashCost:    bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkPasswordStrength applies the zxcvbn score and entropy floor.
func checkPasswordStrength(password string) error {
	strength := gopass.PasswordStrength(password, nil)
	if strength.Score < 3 || strength.Entropy < 37 {
		return userErrors.ErrWeakPassword
	}
	return nil
}

func (s *userService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *userService) issue(user *models.User) (*models.AuthResult, error) {
	issued, err := tokens.CreateTokenWithKey(user.Context(), s.jwt.Expiry, s.jwt.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &models.AuthResult{
		User:      user,
		Token:     issued.Token,
		SessionID: issued.SessionID,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error) {
	if err := checkPasswordStrength(req.Password); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	taken, err := s.base.Exists(ctx, Collection, interfaces.Where("email", email))
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, userErrors.ErrDuplicateEmail
	}

	hashed, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ObjectId:  uuid.Must(uuid.NewV4()),
		Username:  strings.TrimSpace(req.Username),
		Email:     email,
		Firstname: strings.TrimSpace(req.Firstname),
		Lastname:  strings.TrimSpace(req.Lastname),
		Phone:     strings.TrimSpace(req.Phone),
		Password:  hashed,
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if res := <-s.base.Repository.Save(ctx, Collection, user); res.Error != nil {
		if errors.Is(res.Error, interfaces.ErrDuplicateKey) {
			return nil, userErrors.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("save user: %w", res.Error)
	}

	return s.issue(user)
}

func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	var user models.User
	err := s.base.FindOne(ctx, Collection, interfaces.Where("email", normalizeEmail(req.Email)), &user)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, userErrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !passwordMatches(user.Password, req.Password) {
		return nil, userErrors.ErrInvalidCredentials
	}
	if user.Status == models.StatusInactive {
		return nil, userErrors.ErrUserInactive
	}
	return s.issue(&user)
}

func (s *userService) Logout(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if s.revocations == nil || sessionID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, sessionID, expiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *userService) List(ctx context.Context, req filter.Request) (*filter.Page[models.User], error) {
	return filter.List[models.User](ctx, s.base.Repository, Resource, req, nil)
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.base.FindOne(ctx, Collection, interfaces.Where("objectId", id), &user)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, userErrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// changes collects the fields an update writes and mirrors them on the loaded user.
type changes map[string]interface{}

func (ch changes) text(field *string, key, value string) {
	if value = strings.TrimSpace(value); value != "" && value != *field {
		*field = value
		ch[key] = value
	}
}

func (s *userService) changeEmail(ctx context.Context, user *models.User, ch changes, email string) error {
	email = normalizeEmail(email)
	if email == "" || email == user.Email {
		return nil
	}
	taken, err := s.base.Exists(ctx, Collection, interfaces.Where("email", email))
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return userErrors.ErrDuplicateEmail
	}
	user.Email = email
	ch["email"] = email
	return nil
}

func (s *userService) changePassword(user *models.User, ch changes, password, current string, mismatch error) error {
	if password == "" {
		return nil
	}
	if !passwordMatches(user.Password, current) {
		return mismatch
	}
	if err := checkPasswordStrength(password); err != nil {
		return err
	}
	hashed, err := s.hash(password)
	if err != nil {
		return err
	}
	user.Password = hashed
	ch["password"] = hashed
	return nil
}

func (s *userService) save(ctx context.Context, user *models.User, ch changes) (*models.User, error) {
	if len(ch) == 0 {
		return user, nil
	}
	user.UpdatedAt = time.Now().UTC()
	ch["updatedAt"] = user.UpdatedAt

	res := <-s.base.Repository.Update(ctx, Collection, interfaces.Where("objectId", user.ObjectId), map[string]interface{}{"$set": map[string]interface{}(ch)})
	if res.Error != nil {
		if errors.Is(res.Error, interfaces.ErrDuplicateKey) {
			return nil, userErrors.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", res.Error)
	}
	if interfaces.AffectedCount(res) == 0 {
		return nil, userErrors.ErrUserNotFound
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ch := changes{}
	if err := s.changeEmail(ctx, user, ch, req.Email); err != nil {
		return nil, err
	}
	ch.text(&user.Firstname, "firstname", req.Firstname)
	ch.text(&user.Lastname, "lastname", req.Lastname)
	ch.text(&user.Phone, "phone", req.Phone)
	ch.text(&user.City, "city", req.City)
	ch.text(&user.Country, "country", req.Country)
	ch.text(&user.Timezone, "timezone", req.Timezone)
	if err := s.changePassword(user, ch, req.Password, req.CurrentPassword, userErrors.ErrPasswordIncorrect); err != nil {
		return nil, err
	}
	return s.save(ctx, user, ch)
}

func (s *userService) ChangeCredentials(ctx context.Context, id uuid.UUID, req *models.CredentialsRequest) (*models.User, error) {
	if strings.TrimSpace(req.Username) == "" && req.Password == "" {
		return nil, fmt.Errorf("%w: username or password is required", userErrors.ErrInvalidRequest)
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ch := changes{}
	ch.text(&user.Username, "username", req.Username)
	if err := s.changePassword(user, ch, req.Password, req.CurrentPassword, userErrors.ErrPasswordRejected); err != nil {
		return nil, err
	}
	return s.save(ctx, user, ch)
}

func (s *userService) ToggleStatus(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := models.StatusActive
	if user.Status == models.StatusActive {
		next = models.StatusInactive
	}
	user.Status = next
	return s.save(ctx, user, changes{"status": next})
}

func (s *userService) AdminUpdate(ctx context.Context, id uuid.UUID, req *models.AdminUpdateRequest) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ch := changes{}
	if err := s.changeEmail(ctx, user, ch, req.Email); err != nil {
		return nil, err
	}
	ch.text(&user.Username, "username", req.Username)
	ch.text(&user.Firstname, "firstname", req.Firstname)
	ch.text(&user.Lastname, "lastname", req.Lastname)
	ch.text(&user.Phone, "phone", req.Phone)
	ch.text(&user.City, "city", req.City)
	ch.text(&user.Country, "country", req.Country)
	ch.text(&user.Timezone, "timezone", req.Timezone)
	ch.text(&user.Status, "status", req.Status)
	if req.IsAdmin != nil && *req.IsAdmin != user.IsAdmin {
		user.IsAdmin = *req.IsAdmin
		ch["isAdmin"] = user.IsAdmin
	}
	return s.save(ctx, user, ch)
}

func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return userErrors.ErrCannotDeleteAdmin
	}
	res := <-s.base.Repository.Delete(ctx, Collection, interfaces.Where("objectId", id))
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if interfaces.AffectedCount(res) == 0 {
		return userErrors.ErrUserNotFound
	}
	return nil
}

func (s *userService) Promote(ctx context.Context, email string) error {
	res := <-s.base.Repository.Update(ctx, Collection, interfaces.Where("email", normalizeEmail(email)), map[string]interface{}{
		"$set": map[string]interface{}{"isAdmin": true, "updatedAt": time.Now().UTC()},
	})
	if res.Error != nil {
		return fmt.Errorf("promote user: %w", res.Error)
	}
	if interfaces.AffectedCount(res) == 0 {
		return userErrors.ErrUserNotFound
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []interface{} {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *userService) findByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	query := &interfaces.Query{Conditions: []interfaces.Field{
		{Name: "objectId", Operator: interfaces.OpIn, Value: uniqueIDs(ids)},
	}}
	found, err := platform.FindAll[models.User](ctx, s.base.Repository, Collection, query, nil)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.User, len(found))
	for _, u := range found {
		byID[u.ObjectId] = u
	}
	return byID, nil
}

func (s *userService) MissingUsers(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID, err := s.findByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *userService) UserSummaries(ctx context.Context, ids []uuid.UUID) ([]sharedInterfaces.UserSummary, error) {
	out := []sharedInterfaces.UserSummary{}
	if len(ids) == 0 {
		return out, nil
	}
	byID, err := s.findByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, sharedInterfaces.UserSummary{
			ObjectId:  u.ObjectId,
			Username:  u.Username,
			Email:     u.Email,
			Firstname: u.Firstname,
			Lastname:  u.Lastname,
		})
	}
	return out, nil
}

func (s *userService) AssignRole(ctx context.Context, userIDs []uuid.UUID, roleID uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := &interfaces.Query{Conditions: []interfaces.Field{
		{Name: "objectId", Operator: interfaces.OpIn, Value: uniqueIDs(userIDs)},
	}}
	res := <-s.base.Repository.UpdateMany(ctx, Collection, query, map[string]interface{}{
		"$set": map[string]interface{}{"roleId": roleID, "updatedAt": time.Now().UTC()},
	})
	if res.Error != nil {
		return fmt.Errorf("assign role: %w", res.Error)
	}
	return nil
}

func (s *userService) ClearRole(ctx context.Context, roleID uuid.UUID) error {
	res := <-s.base.Repository.UpdateMany(ctx, Collection, interfaces.Where("roleId", roleID), map[string]interface{}{
		"$unset": map[string]interface{}{"roleId": ""},
	})
	if res.Error != nil {
		return fmt.Errorf("clear role: %w", res.Error)
	}
	return nil
}
