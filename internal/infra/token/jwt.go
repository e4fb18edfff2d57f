package token

import (
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

// アクセストークン(HS256)の発行
// claims: sub=ユーザーID, role, tv=token_version
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// 署名済みトークンと有効秒数を返す
func (i *JWTIssuer) Issue(user *model.User) (string, int, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(i.ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int(i.ttl.Seconds()), nil
}
