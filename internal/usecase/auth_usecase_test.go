package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/config"
	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	repo "github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	tx     *TxManagerMock
	users  *UserRepoMock
	otps   *OTPRepoMock
	rt     *RefreshTokenRepoMock
	audit  *AuditRepoMock
	sms    *SMSMock
	tokens *TokenIssuerMock
	uc     *usecase.AuthUsecase
}

func newAuthFixture(devMode bool) *authFixture {
	f := &authFixture{
		tx:     new(TxManagerMock),
		users:  new(UserRepoMock),
		otps:   new(OTPRepoMock),
		rt:     new(RefreshTokenRepoMock),
		audit:  new(AuditRepoMock),
		sms:    new(SMSMock),
		tokens: new(TokenIssuerMock),
	}
	f.tx.Repos = &TxReposMock{otps: f.otps}
	cfg := config.Config{
		OTPTTL:          5 * time.Minute,
		AccessTokenTTL:  24 * time.Hour,
		RefreshTokenTTL: 168 * time.Hour,
		OTPDevMode:      devMode,
	}
	f.uc = usecase.NewAuthUsecase(cfg, f.tx, f.users, f.otps, f.rt, f.audit, f.sms, f.tokens, zap.NewNop())
	return f
}

func hashOTP(t *testing.T, code string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// =====================
// SendOTP
// =====================

func TestAuthUsecase_SendOTP_InvalidatesOldAndSends(t *testing.T) {
	f := newAuthFixture(true)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.otps.On("InvalidateUnused", mock.Anything, "9876543210").Return(nil)

	var stored *model.OTP
	f.otps.On("Create", mock.Anything, mock.AnythingOfType("*model.OTP")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*model.OTP) }).
		Return(nil)
	f.sms.On("Send", mock.Anything, "9876543210", mock.AnythingOfType("string")).Return(nil)

	res, err := f.uc.SendOTP(context.Background(), "9876543210")
	require.NoError(t, err)
	require.Len(t, res.OTP, 6)

	// 平文は保存しない
	require.NotNil(t, stored)
	assert.NotEqual(t, res.OTP, stored.CodeHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte(res.OTP)))

	f.otps.AssertExpectations(t)
	f.sms.AssertExpectations(t)
}

func TestAuthUsecase_SendOTP_NoEchoOutsideDevMode(t *testing.T) {
	f := newAuthFixture(false)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.otps.On("InvalidateUnused", mock.Anything, mock.Anything).Return(nil)
	f.otps.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sms.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.uc.SendOTP(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Empty(t, res.OTP)
}

func TestAuthUsecase_SendOTP_InvalidMobile(t *testing.T) {
	f := newAuthFixture(false)

	_, err := f.uc.SendOTP(context.Background(), "12345")
	assertHTTPError(t, err, http.StatusBadRequest, "10 digits")
	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestAuthUsecase_SendOTP_SMSFailureIs502(t *testing.T) {
	f := newAuthFixture(false)
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.otps.On("InvalidateUnused", mock.Anything, mock.Anything).Return(nil)
	f.otps.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sms.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	_, err := f.uc.SendOTP(context.Background(), "9876543210")
	assertHTTPError(t, err, http.StatusBadGateway, "failed to send OTP")
}

// =====================
// VerifyOTP
// =====================

func TestAuthUsecase_VerifyOTP_NewUser(t *testing.T) {
	f := newAuthFixture(false)

	f.otps.On("FindLatestUnused", mock.Anything, "9876543210").
		Return(model.OTP{ID: 1, Mobile: "9876543210", CodeHash: hashOTP(t, "123456"), CreatedAt: time.Now()}, nil)
	f.otps.On("Consume", mock.Anything, int64(1)).Return(true, nil)
	f.users.On("FindByMobile", mock.Anything, "9876543210").Return(nil, repo.ErrNotFound)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Mobile == "9876543210" && u.Role == model.RoleUser && u.IsActive
	})).Run(func(args mock.Arguments) { args.Get(1).(*model.User).ID = 5 }).Return(nil)
	f.users.On("TouchLastLogin", mock.Anything, int64(5), mock.Anything).Return(nil)
	f.tokens.On("Issue", mock.Anything).Return("jwt-token", 86400, nil)
	f.rt.On("Create", mock.Anything, mock.MatchedBy(func(rt *model.RefreshToken) bool {
		return rt.UserID == 5 && rt.UserAgent == "ua" && rt.TokenHash != ""
	})).Return(nil)

	res, err := f.uc.VerifyOTP(context.Background(), usecase.VerifyOTPInput{Mobile: "9876543210", OTP: "123456", UserAgent: "ua"})
	require.NoError(t, err)
	assert.True(t, res.Body.IsNewUser)
	assert.Equal(t, "jwt-token", res.Body.Token.AccessToken)
	assert.Equal(t, 86400, res.Body.Token.ExpiresIn)
	assert.NotEmpty(t, res.RefreshTokenPlain)

	f.users.AssertExpectations(t)
	f.rt.AssertExpectations(t)
}

func TestAuthUsecase_VerifyOTP_WrongCode(t *testing.T) {
	f := newAuthFixture(false)
	f.otps.On("FindLatestUnused", mock.Anything, "9876543210").
		Return(model.OTP{ID: 1, CodeHash: hashOTP(t, "123456"), CreatedAt: time.Now()}, nil)

	_, err := f.uc.VerifyOTP(context.Background(), usecase.VerifyOTPInput{Mobile: "9876543210", OTP: "654321"})
	assertHTTPError(t, err, http.StatusBadRequest, "Invalid OTP")
	f.otps.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
}

func TestAuthUsecase_VerifyOTP_NoUnusedOTP(t *testing.T) {
	f := newAuthFixture(false)
	f.otps.On("FindLatestUnused", mock.Anything, "9876543210").Return(model.OTP{}, repo.ErrNotFound)

	_, err := f.uc.VerifyOTP(context.Background(), usecase.VerifyOTPInput{Mobile: "9876543210", OTP: "123456"})
	assertHTTPError(t, err, http.StatusBadRequest, "Invalid OTP")
}

func TestAuthUsecase_VerifyOTP_Expired(t *testing.T) {
	f := newAuthFixture(false)
	f.otps.On("FindLatestUnused", mock.Anything, "9876543210").
		Return(model.OTP{ID: 1, CodeHash: hashOTP(t, "123456"), CreatedAt: time.Now().Add(-6 * time.Minute)}, nil)

	_, err := f.uc.VerifyOTP(context.Background(), usecase.VerifyOTPInput{Mobile: "9876543210", OTP: "123456"})
	assertHTTPError(t, err, http.StatusBadRequest, "OTP expired")
	f.otps.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
}

func TestAuthUsecase_VerifyOTP_AlreadyConsumed(t *testing.T) {
	f := newAuthFixture(false)
	f.otps.On("FindLatestUnused", mock.Anything, "9876543210").
		Return(model.OTP{ID: 1, CodeHash: hashOTP(t, "123456"), CreatedAt: time.Now()}, nil)
	f.otps.On("Consume", mock.Anything, int64(1)).Return(false, nil)

	_, err := f.uc.VerifyOTP(context.Background(), usecase.VerifyOTPInput{Mobile: "9876543210", OTP: "123456"})
	assertHTTPError(t, err, http.StatusConflict, "OTP already used")
	f.users.AssertNotCalled(t, "FindByMobile", mock.Anything, mock.Anything)
}

func TestAuthUsecase_VerifyOTP_InactiveUser(t *testing.T) {
	f := newAuthFixture(false)
	f.otps.On("FindLatestUnused", mock.Anything, "9876543210").
		Return(model.OTP{ID: 1, CodeHash: hashOTP(t, "123456"), CreatedAt: time.Now()}, nil)
	f.otps.On("Consume", mock.Anything, int64(1)).Return(true, nil)
	f.users.On("FindByMobile", mock.Anything, "9876543210").Return(&model.User{ID: 5, IsActive: false}, nil)

	_, err := f.uc.VerifyOTP(context.Background(), usecase.VerifyOTPInput{Mobile: "9876543210", OTP: "123456"})
	assertHTTPError(t, err, http.StatusForbidden, "inactive")
}

// =====================
// Refresh / Logout / ForceLogout
// =====================

func TestAuthUsecase_Refresh_ReuseRevokesAll(t *testing.T) {
	f := newAuthFixture(false)
	used := time.Now().Add(-time.Minute)
	f.rt.On("FindByTokenHash", mock.Anything, mock.Anything).Return(&model.RefreshToken{
		ID: "t1", UserID: 5, UsedAt: &used, ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	f.rt.On("DeleteAllByUserID", mock.Anything, int64(5)).Return(nil)

	_, err := f.uc.Refresh(context.Background(), "plain", "ua")
	assertHTTPError(t, err, http.StatusUnauthorized, "unauthorized")
	f.rt.AssertExpectations(t)
}

func TestAuthUsecase_Refresh_Rotates(t *testing.T) {
	f := newAuthFixture(false)
	f.rt.On("FindByTokenHash", mock.Anything, mock.Anything).Return(&model.RefreshToken{
		ID: "t1", UserID: 5, UserAgent: "ua", ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	f.users.On("FindByID", mock.Anything, int64(5)).Return(&model.User{ID: 5, IsActive: true, TokenVersion: 2}, nil)
	f.rt.On("MarkUsed", mock.Anything, "t1").Return(nil)
	f.rt.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.tokens.On("Issue", mock.Anything).Return("jwt2", 86400, nil)

	res, err := f.uc.Refresh(context.Background(), "plain", "ua")
	require.NoError(t, err)
	assert.Equal(t, "jwt2", res.Body.AccessToken)
	assert.Equal(t, 2, res.Body.TokenVersion)
	assert.NotEqual(t, "plain", res.RefreshTokenPlain)
}

func TestAuthUsecase_Logout_DeletesToken(t *testing.T) {
	f := newAuthFixture(false)
	f.rt.On("FindByTokenHash", mock.Anything, mock.Anything).Return(&model.RefreshToken{ID: "t1", UserID: 5}, nil)
	f.rt.On("DeleteByID", mock.Anything, "t1").Return(nil)

	res, err := f.uc.Logout(context.Background(), "plain")
	require.NoError(t, err)
	assert.Equal(t, "logout success", res.Message)
}

func TestAuthUsecase_ForceLogout_BumpsVersionAndAudits(t *testing.T) {
	f := newAuthFixture(false)
	f.users.On("FindByID", mock.Anything, int64(5)).Return(&model.User{ID: 5, TokenVersion: 0}, nil).Once()
	f.users.On("IncrementTokenVersion", mock.Anything, int64(5)).Return(nil)
	f.rt.On("DeleteAllByUserID", mock.Anything, int64(5)).Return(nil)
	f.users.On("FindByID", mock.Anything, int64(5)).Return(&model.User{ID: 5, TokenVersion: 1}, nil).Once()
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionForceLogout && l.ActorUserID == 1 && l.ResourceID == 5 &&
			l.BeforeJSON == `{"token_version":0}` && l.AfterJSON == `{"token_version":1}`
	})).Return(nil)

	res, err := f.uc.ForceLogout(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewTokenVersion)
	f.audit.AssertExpectations(t)
}
