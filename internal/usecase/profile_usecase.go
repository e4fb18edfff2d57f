package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/validator"
)

type ProfileUsecase struct {
	users repository.UserRepository
}

func NewProfileUsecase(users repository.UserRepository) *ProfileUsecase {
	return &ProfileUsecase{users: users}
}

// nilの項目は変更しない
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Gender    *string
}

func (u *ProfileUsecase) GetProfile(ctx context.Context, userID int64) (*UserDTO, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil || user == nil {
		return nil, errDB()
	}

	dto := toUserDTO(user)
	return &dto, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func (u *ProfileUsecase) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (*UserDTO, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	p := repository.ProfileUpdate{
		FirstName: trimPtr(in.FirstName),
		LastName:  trimPtr(in.LastName),
		Email:     trimPtr(in.Email),
		Gender:    trimPtr(in.Gender),
	}
	if p.FirstName != nil && len(*p.FirstName) > 100 {
		return nil, NewHTTPError(http.StatusBadRequest, "first_name too long")
	}
	if p.LastName != nil && len(*p.LastName) > 100 {
		return nil, NewHTTPError(http.StatusBadRequest, "last_name too long")
	}
	// 空文字はクリア扱い
	if p.Email != nil && *p.Email != "" && !validator.IsEmailLike(*p.Email) {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if p.Gender != nil && *p.Gender != "" && !validator.IsGender(*p.Gender) {
		return nil, NewHTTPError(http.StatusBadRequest, "gender must be one of Male, Female, Other")
	}

	err := u.users.UpdateProfile(ctx, userID, p)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return nil, errDB()
	}

	return u.GetProfile(ctx, userID)
}
