package service

import (
	"context"
	"errors"
	"strings"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserService struct {
	users UserRepository
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Profile(ctx context.Context, userID primitive.ObjectID) (*model.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User", userID.Hex())
	}
	return u, nil
}

// UpdateProfile vuelve a hashear la contraseña sólo si viene en el pedido.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req dto.UpdateProfileRequest) (*model.User, error) {
	up := repository.UserUpdate{Username: trimmed(req.Username), Email: lowered(req.Email)}
	if req.Password != nil && *req.Password != "" {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		up.PasswordHash = &hash
	}
	return s.update(ctx, userID, up)
}

func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	return s.users.FindAll(ctx)
}

func (s *UserService) Get(ctx context.Context, userID string) (*model.User, error) {
	id, err := parseID("User", userID)
	if err != nil {
		return nil, err
	}
	return s.Profile(ctx, id)
}

func (s *UserService) AdminUpdate(ctx context.Context, userID string, req dto.AdminUpdateUserRequest) (*model.User, error) {
	id, err := parseID("User", userID)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, id, repository.UserUpdate{
		Username: trimmed(req.Username),
		Email:    lowered(req.Email),
		IsAdmin:  req.IsAdmin,
	})
}

// Delete no permite borrar administradores.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsAdmin {
		return validationf("Cannot delete admin user")
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return notFound(err, "User", userID)
	}
	return nil
}

func (s *UserService) update(ctx context.Context, id primitive.ObjectID, up repository.UserUpdate) (*model.User, error) {
	u, err := s.users.Update(ctx, id, up)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: "Email already in use"}
		}
		return nil, notFound(err, "User", id.Hex())
	}
	return u, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func lowered(s *string) *string {
	v := trimmed(s)
	if v == nil {
		return nil
	}
	l := strings.ToLower(*v)
	return &l
}
