package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/ids"
	"github.com/NeZlox/authorization-service/internal/models"
	"github.com/NeZlox/authorization-service/internal/repository"
)

const minPasswordLength = 8

type UserService struct {
	store     repository.Store
	passwords PasswordHasher
	log       zerolog.Logger
	now       func() time.Time
}

func NewUserService(store repository.Store, passwords PasswordHasher, log zerolog.Logger) *UserService {
	return &UserService{
		store:     store,
		passwords: passwords,
		log:       log,
		now:       time.Now,
	}
}

type CreateUserInput struct {
	Email    string
	Password string
	Role     models.UserRole
}

// Register creates a USER account.
func (s *UserService) Register(ctx context.Context, email, password string) (models.PublicUser, error) {
	return s.Create(ctx, CreateUserInput{Email: email, Password: password, Role: models.UserRoleUser})
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (models.PublicUser, error) {
	email, err := validateEmail(input.Email)
	if err != nil {
		return models.PublicUser{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return models.PublicUser{}, err
	}
	if input.Role == "" {
		input.Role = models.UserRoleUser
	}
	if !input.Role.Valid() {
		return models.PublicUser{}, apperr.Wrap(apperr.ErrValidation, fmt.Errorf("unknown role %q", input.Role))
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return models.PublicUser{}, internalError(err)
	}

	now := s.now()
	user, err := s.store.Users().Create(ctx, models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return models.PublicUser{}, apperr.ErrAlreadyExists
		}
		return models.PublicUser{}, internalError(err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user created")
	return user.Public(), nil
}

func (s *UserService) Get(ctx context.Context, id string) (models.PublicUser, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return models.PublicUser{}, mapUserError(err)
	}
	return user.Public(), nil
}

func (s *UserService) List(ctx context.Context, page models.Page) (models.Paginated[models.PublicUser], error) {
	page = page.Normalize()
	users, total, err := s.store.Users().List(ctx, page)
	if err != nil {
		return models.Paginated[models.PublicUser]{}, internalError(err)
	}

	items := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		items = append(items, u.Public())
	}
	return models.Paginated[models.PublicUser]{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

type UpdateUserInput struct {
	Email    *string
	Password *string
	Role     *models.UserRole
}

func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (models.PublicUser, error) {
	upd := models.UserUpdate{UpdatedAt: s.now()}

	if input.Email != nil {
		email, err := validateEmail(*input.Email)
		if err != nil {
			return models.PublicUser{}, err
		}
		upd.Email = &email
	}
	if input.Password != nil {
		if err := validatePassword(*input.Password); err != nil {
			return models.PublicUser{}, err
		}
		hash, err := s.passwords.Hash(*input.Password)
		if err != nil {
			return models.PublicUser{}, internalError(err)
		}
		upd.PasswordHash = hash
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return models.PublicUser{}, apperr.Wrap(apperr.ErrValidation, fmt.Errorf("unknown role %q", *input.Role))
		}
		upd.Role = input.Role
	}

	user, err := s.store.Users().Update(ctx, id, upd)
	if err != nil {
		return models.PublicUser{}, mapUserError(err)
	}
	return user.Public(), nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return mapUserError(err)
	}
	s.log.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

func mapUserError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.ErrUserNotFound
	case errors.Is(err, repository.ErrUserExists):
		return apperr.ErrAlreadyExists
	default:
		return internalError(err)
	}
}

func validateEmail(raw string) (string, error) {
	email := normalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Wrap(apperr.ErrValidation, fmt.Errorf("invalid email %q", raw))
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperr.Wrap(apperr.ErrValidation, fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}
