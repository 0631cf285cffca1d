package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lvdashuaibi/rankvote/internal/apperr"
)

// Claims 能力令牌声明：身份三元组由签名保证，服务端不存会话
type Claims struct {
	PollID string `json:"pollID"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// TokenService 签发与校验能力令牌
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// IssueToken 签发令牌，sub为参与者ID
func (s *TokenService) IssueToken(userID, pollID, name string) (string, error) {
	now := time.Now()
	claims := &Claims{
		PollID: pollID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("签发令牌失败: %w", err)
	}

	return signed, nil
}

// VerifyToken 校验令牌签名与有效期
func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperr.Authentication("缺少访问令牌")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Authentication("令牌无效或已过期")
	}

	return claims, nil
}

// UserID 取参与者ID
func (c *Claims) UserID() string {
	return c.Subject
}
