package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/config"
	"github.com/eshuuux/saptrangi-backend/internal/domain/model"
	"github.com/eshuuux/saptrangi-backend/internal/repository"
	"github.com/eshuuux/saptrangi-backend/internal/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserDTO struct {
	ID           int64  `json:"id"`
	Mobile       string `json:"mobile"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Gender       string `json:"gender"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
	IsActive     bool   `json:"is_active"`
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type SendOTPResponse struct {
	Message string `json:"message"`
	// OTP_DEV_MODEのときだけ
	OTP string `json:"otp,omitempty"`
}

type VerifyOTPInput struct {
	Mobile    string
	OTP       string
	UserAgent string
}

type AuthLoginResponse struct {
	User      UserDTO           `json:"user"`
	Token     JwtAccessTokenDTO `json:"token"`
	IsNewUser bool              `json:"is_new_user"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type ForceLogoutResponse struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

type LoginResult struct {
	Body              AuthLoginResponse
	RefreshTokenPlain string
}

type RefreshResult struct {
	Body              JwtAccessTokenDTO
	RefreshTokenPlain string
}

type AuthUsecase struct {
	cfg       config.Config
	tx        repository.TransactionManager
	users     repository.UserRepository
	otps      repository.OTPRepository
	rtRepo    repository.RefreshTokenRepository
	auditRepo repository.AuditLogRepository
	sms       SMSSender
	tokens    TokenIssuer
	log       *zap.Logger
	now       func() time.Time
}

func NewAuthUsecase(
	cfg config.Config,
	tx repository.TransactionManager,
	users repository.UserRepository,
	otps repository.OTPRepository,
	rtRepo repository.RefreshTokenRepository,
	auditRepo repository.AuditLogRepository,
	sms SMSSender,
	tokens TokenIssuer,
	log *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		cfg:       cfg,
		tx:        tx,
		users:     users,
		otps:      otps,
		rtRepo:    rtRepo,
		auditRepo: auditRepo,
		sms:       sms,
		tokens:    tokens,
		log:       log.Named("auth"),
		now:       time.Now,
	}
}

// 6桁のOTP
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// 古い未使用OTPを無効化してから新しいOTPを保存し、SMSで送る
func (u *AuthUsecase) SendOTP(ctx context.Context, mobile string) (*SendOTPResponse, error) {
	mobile = strings.TrimSpace(mobile)
	if !validator.IsMobile(mobile) {
		return nil, NewHTTPError(http.StatusBadRequest, "mobile must be 10 digits")
	}

	code, err := generateOTP()
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.OTPs().InvalidateUnused(ctx, mobile); err != nil {
			return errDB()
		}
		if err := r.OTPs().Create(ctx, &model.OTP{
			Mobile:    mobile,
			CodeHash:  string(hash),
			CreatedAt: u.now(),
		}); err != nil {
			return errDB()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := u.sms.Send(ctx, mobile, code); err != nil {
		u.log.Error("otp sms failed", zap.Error(err), zap.String("mobile", mobile))
		return nil, NewHTTPError(http.StatusBadGateway, "failed to send OTP")
	}

	res := &SendOTPResponse{Message: "OTP sent"}
	if u.cfg.OTPDevMode {
		res.OTP = code
	}
	return res, nil
}

// OTPを検証してログイン（初回はユーザー作成）
func (u *AuthUsecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*LoginResult, error) {
	mobile := strings.TrimSpace(in.Mobile)
	code := strings.TrimSpace(in.OTP)
	if !validator.IsMobile(mobile) {
		return nil, NewHTTPError(http.StatusBadRequest, "mobile must be 10 digits")
	}
	if !validator.IsOTP(code) {
		return nil, NewHTTPError(http.StatusBadRequest, "Invalid OTP")
	}

	otp, err := u.otps.FindLatestUnused(ctx, mobile)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewHTTPError(http.StatusBadRequest, "Invalid OTP")
	}
	if err != nil {
		return nil, errDB()
	}
	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil {
		return nil, NewHTTPError(http.StatusBadRequest, "Invalid OTP")
	}
	if otp.IsExpired(u.now(), u.cfg.OTPTTL) {
		return nil, NewHTTPError(http.StatusBadRequest, "OTP expired")
	}

	// 同時に2回使われないように条件付き更新
	ok, err := u.otps.Consume(ctx, otp.ID)
	if err != nil {
		return nil, errDB()
	}
	if !ok {
		return nil, NewHTTPError(http.StatusConflict, "OTP already used")
	}

	user, isNew, err := u.getOrCreateUser(ctx, mobile)
	if err != nil {
		return nil, err
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, NewHTTPError(http.StatusForbidden, "user is inactive")
	}

	//last_login更新
	now := u.now()
	user.LastLoginAt = &now
	if err := u.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		u.log.Warn("touch last login failed", zap.Error(err), zap.Int64("user_id", user.ID))
	}

	accessToken, expiresIn, err := u.tokens.Issue(user)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	refreshPlain, err := u.issueRefreshToken(ctx, user.ID, in.UserAgent)
	if err != nil {
		return nil, err
	}

	u.log.Info("user logged in", zap.Int64("user_id", user.ID), zap.Bool("new_user", isNew))
	return &LoginResult{
		Body: AuthLoginResponse{
			User: toUserDTO(user),
			Token: JwtAccessTokenDTO{
				AccessToken:  accessToken,
				ExpiresIn:    expiresIn,
				TokenVersion: user.TokenVersion,
			},
			IsNewUser: isNew,
		},
		RefreshTokenPlain: refreshPlain,
	}, nil
}

func (u *AuthUsecase) getOrCreateUser(ctx context.Context, mobile string) (*model.User, bool, error) {
	user, err := u.users.FindByMobile(ctx, mobile)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, errDB()
	}

	user = &model.User{
		Mobile:   mobile,
		Role:     model.RoleUser,
		IsActive: true,
	}
	err = u.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		// 同時ログインで先に作られた
		user, err = u.users.FindByMobile(ctx, mobile)
		if err != nil {
			return nil, false, errDB()
		}
		return user, false, nil
	}
	if err != nil {
		return nil, false, errDB()
	}
	return user, true, nil
}

// refresh token発行（DBにはhash保存）
func (u *AuthUsecase) issueRefreshToken(ctx context.Context, userID int64, userAgent string) (string, error) {
	plain, hash, err := newRandomTokenAndHash()
	if err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	rt := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hash,
		UserAgent: userAgent,
		ExpiresAt: u.now().Add(u.cfg.RefreshTokenTTL),
	}
	if err := u.rtRepo.Create(ctx, rt); err != nil {
		return "", errDB()
	}
	return plain, nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Mobile:       u.Mobile,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Gender:       u.Gender,
		Role:         string(u.Role),
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
	}
}

// refreshはローテーション。使用済みの再利用やUA違いは全トークン削除
func (u *AuthUsecase) Refresh(ctx context.Context, refreshTokenPlain string, userAgent string) (*RefreshResult, error) {
	if strings.TrimSpace(refreshTokenPlain) == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//DB照合
	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(refreshTokenPlain))
	if err != nil || rt == nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//期限切れ
	if rt.ExpiresAt.Before(u.now()) {
		_ = u.rtRepo.DeleteByID(ctx, rt.ID)
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//used済みが来たら replay → 全削除
	if rt.UsedAt != nil {
		u.log.Warn("refresh token reuse detected", zap.Int64("user_id", rt.UserID))
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//user_agent違い（再認証扱い。全削除）
	if userAgent != "" && rt.UserAgent != "" && userAgent != rt.UserAgent {
		u.log.Warn("refresh token user agent changed", zap.Int64("user_id", rt.UserID))
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, rt.UserID)
	if err != nil || user == nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !user.IsActive {
		return nil, NewHTTPError(http.StatusForbidden, "user is inactive")
	}

	//旧tokenをusedにする
	if err := u.rtRepo.MarkUsed(ctx, rt.ID); err != nil {
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	newPlain, err := u.issueRefreshToken(ctx, user.ID, userAgent)
	if err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := u.tokens.Issue(user)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return &RefreshResult{
		Body: JwtAccessTokenDTO{
			AccessToken:  accessToken,
			ExpiresIn:    expiresIn,
			TokenVersion: user.TokenVersion,
		},
		RefreshTokenPlain: newPlain,
	}, nil
}

// refreshを削除（失効）
func (u *AuthUsecase) Logout(ctx context.Context, refreshTokenPlain string) (*SuccessResponse, error) {
	if refreshTokenPlain == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(refreshTokenPlain))
	if err != nil || rt == nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := u.rtRepo.DeleteByID(ctx, rt.ID); err != nil {
		return nil, errDB()
	}

	return &SuccessResponse{Message: "logout success"}, nil
}

// token_versionを上げて既存のアクセストークンを無効化する
func (u *AuthUsecase) ForceLogout(ctx context.Context, adminUserID, targetUserID int64) (*ForceLogoutResponse, error) {
	if adminUserID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if targetUserID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	before, err := u.users.FindByID(ctx, targetUserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return nil, errDB()
	}

	if err := u.users.IncrementTokenVersion(ctx, targetUserID); err != nil {
		return nil, errDB()
	}
	if err := u.rtRepo.DeleteAllByUserID(ctx, targetUserID); err != nil {
		return nil, errDB()
	}

	//更新後を取得してnew_token_versionを返す
	user, err := u.users.FindByID(ctx, targetUserID)
	if err != nil || user == nil {
		return nil, errDB()
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionForceLogout,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetUserID,
		BeforeJSON:   fmt.Sprintf(`{"token_version":%d}`, before.TokenVersion),
		AfterJSON:    fmt.Sprintf(`{"token_version":%d}`, user.TokenVersion),
		CreatedAt:    u.now(),
	}); err != nil {
		u.log.Error("audit log failed", zap.Error(err), zap.Int64("user_id", targetUserID))
	}

	return &ForceLogoutResponse{
		UserID:          user.ID,
		NewTokenVersion: user.TokenVersion,
	}, nil
}

// refresh token生成（平文 + DB保存hash）
func newRandomTokenAndHash() (plain string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}

	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, hashToken(plain), nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
