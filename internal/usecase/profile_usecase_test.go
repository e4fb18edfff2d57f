package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProfileUsecase_UpdateProfile(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewProfileUsecase(users)

	users.On("UpdateProfile", mock.Anything, int64(5), mock.MatchedBy(func(p repo.ProfileUpdate) bool {
		return p.FirstName != nil && *p.FirstName == "Asha" && p.LastName == nil &&
			p.Email != nil && *p.Email == "" && p.Gender != nil && *p.Gender == "Female"
	})).Return(nil)
	users.On("FindByID", mock.Anything, int64(5)).
		Return(&model.User{ID: 5, Mobile: "9876543210", FirstName: "Asha", Gender: "Female", Role: model.RoleUser}, nil)

	out, err := uc.UpdateProfile(context.Background(), 5, usecase.UpdateProfileInput{
		FirstName: strPtr(" Asha "),
		Email:     strPtr(""),
		Gender:    strPtr("Female"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", out.FirstName)
	assert.Equal(t, "USER", out.Role)
}

func TestProfileUsecase_UpdateProfile_Validation(t *testing.T) {
	uc := usecase.NewProfileUsecase(new(UserRepoMock))

	_, err := uc.UpdateProfile(context.Background(), 5, usecase.UpdateProfileInput{Email: strPtr("not-an-email")})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid email")

	_, err = uc.UpdateProfile(context.Background(), 5, usecase.UpdateProfileInput{Gender: strPtr("male")})
	assertHTTPError(t, err, http.StatusBadRequest, "gender must be one of")
}

func TestAddressUsecase_Create_DefaultsToHome(t *testing.T) {
	addrs := new(AddressRepoMock)
	uc := usecase.NewAddressUsecase(addrs)

	addrs.On("Create", mock.Anything, mock.MatchedBy(func(a model.Address) bool {
		return a.UserID == 5 && a.AddressType == model.AddressTypeHome && a.Name == "Asha"
	})).Return(model.Address{ID: 1, UserID: 5, Name: "Asha", AddressType: model.AddressTypeHome}, nil)

	out, err := uc.Create(context.Background(), 5, usecase.AddressRequest{
		Name: " Asha ", Mobile: "9876543210", Pincode: "400001",
		State: "MH", City: "Mumbai", HouseNo: "12", Area: "Fort",
	})
	require.NoError(t, err)
	assert.Equal(t, "Home", out.AddressType)
}

func TestAddressUsecase_Validation(t *testing.T) {
	uc := usecase.NewAddressUsecase(new(AddressRepoMock))
	base := usecase.AddressRequest{
		Name: "Asha", Mobile: "9876543210", Pincode: "400001",
		State: "MH", City: "Mumbai", HouseNo: "12", Area: "Fort",
	}

	req := base
	req.Pincode = "4000"
	_, err := uc.Create(context.Background(), 5, req)
	assertHTTPError(t, err, http.StatusBadRequest, "pincode must be 6 digits")

	req = base
	req.AddressType = "Office"
	_, err = uc.Create(context.Background(), 5, req)
	assertHTTPError(t, err, http.StatusBadRequest, "invalid address_type")
}

func TestAddressUsecase_UpdateForeignAddress(t *testing.T) {
	addrs := new(AddressRepoMock)
	uc := usecase.NewAddressUsecase(addrs)
	addrs.On("FindByIDForUser", mock.Anything, int64(9), int64(5)).Return(model.Address{}, repo.ErrNotFound)

	_, err := uc.Update(context.Background(), 5, 9, usecase.AddressRequest{
		Name: "Asha", Mobile: "9876543210", Pincode: "400001",
		State: "MH", City: "Mumbai", HouseNo: "12", Area: "Fort",
	})
	assertHTTPError(t, err, http.StatusNotFound, "not found")
}

func TestAuditLogUsecase_List_Validation(t *testing.T) {
	audit := new(AuditRepoMock)
	uc := usecase.NewAuditLogUsecase(audit)

	_, err := uc.List(context.Background(), repo.AuditLogFilter{Limit: 0})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid limit")

	audit.On("List", mock.Anything, mock.Anything).Return(nil, nil)
	logs, err := uc.List(context.Background(), repo.AuditLogFilter{Limit: 50})
	require.NoError(t, err)
	assert.NotNil(t, logs)
}
