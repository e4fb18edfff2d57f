package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	"github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/validator"
)

type AddressDTO struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Name        string  `json:"name"`
	Mobile      string  `json:"mobile"`
	Pincode     string  `json:"pincode"`
	State       string  `json:"state"`
	City        string  `json:"city"`
	HouseNo     string  `json:"house_no"`
	Area        string  `json:"area"`
	AddressType string  `json:"address_type"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   *string `json:"updated_at,omitempty"`
}

// 作成・更新共通
type AddressRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Mobile      string `json:"mobile" validate:"required,mobile"`
	Pincode     string `json:"pincode" validate:"required,pincode"`
	State       string `json:"state" validate:"required,max=100"`
	City        string `json:"city" validate:"required,max=100"`
	HouseNo     string `json:"house_no" validate:"required,max=255"`
	Area        string `json:"area" validate:"required,max=255"`
	AddressType string `json:"address_type" validate:"omitempty,oneof=Home Work Other"`
}

type AddressUsecase struct {
	addresses repository.AddressRepository
}

func NewAddressUsecase(addresses repository.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addresses: addresses}
}

// 入力チェック。handlerを通らない呼び出しでも同じルール
func normalizeAddress(req AddressRequest) (AddressRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Pincode = strings.TrimSpace(req.Pincode)
	req.State = strings.TrimSpace(req.State)
	req.City = strings.TrimSpace(req.City)
	req.HouseNo = strings.TrimSpace(req.HouseNo)
	req.Area = strings.TrimSpace(req.Area)

	if req.Name == "" || req.State == "" || req.City == "" || req.HouseNo == "" || req.Area == "" {
		return req, NewHTTPError(http.StatusBadRequest, "name, state, city, house_no and area are required")
	}
	if !validator.IsMobile(req.Mobile) {
		return req, NewHTTPError(http.StatusBadRequest, "mobile must be 10 digits")
	}
	if !validator.IsPincode(req.Pincode) {
		return req, NewHTTPError(http.StatusBadRequest, "pincode must be 6 digits")
	}

	switch model.AddressType(req.AddressType) {
	case "":
		req.AddressType = string(model.AddressTypeHome)
	case model.AddressTypeHome, model.AddressTypeWork, model.AddressTypeOther:
	default:
		return req, NewHTTPError(http.StatusBadRequest, "invalid address_type")
	}
	return req, nil
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, errDB()
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//入力チェック
	req, err := normalizeAddress(req)
	if err != nil {
		return AddressDTO{}, err
	}

	now := time.Now()
	created, err := u.addresses.Create(ctx, model.Address{
		UserID:      userID,
		Name:        req.Name,
		Mobile:      req.Mobile,
		Pincode:     req.Pincode,
		State:       req.State,
		City:        req.City,
		HouseNo:     req.HouseNo,
		Area:        req.Area,
		AddressType: model.AddressType(req.AddressType),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return AddressDTO{}, errDB()
	}

	return toAddressDTO(&created), nil
}

// 他人の住所は404
func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return AddressDTO{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := normalizeAddress(req)
	if err != nil {
		return AddressDTO{}, err
	}

	a, err := u.addresses.FindByIDForUser(ctx, addressID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return AddressDTO{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return AddressDTO{}, errDB()
	}

	a.Name = req.Name
	a.Mobile = req.Mobile
	a.Pincode = req.Pincode
	a.State = req.State
	a.City = req.City
	a.HouseNo = req.HouseNo
	a.Area = req.Area
	a.AddressType = model.AddressType(req.AddressType)
	a.UpdatedAt = time.Now()

	if err := u.addresses.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AddressDTO{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return AddressDTO{}, errDB()
	}

	return toAddressDTO(&a), nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.addresses.Delete(ctx, addressID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return errDB()
	}
	return nil
}

func toAddressDTO(a *model.Address) AddressDTO {
	dto := AddressDTO{
		ID:          a.ID,
		UserID:      a.UserID,
		Name:        a.Name,
		Mobile:      a.Mobile,
		Pincode:     a.Pincode,
		State:       a.State,
		City:        a.City,
		HouseNo:     a.HouseNo,
		Area:        a.Area,
		AddressType: string(a.AddressType),
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
	t := a.UpdatedAt.Format(time.RFC3339)
	dto.UpdatedAt = &t
	return dto
}
