package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CustomClaims определяет пользовательские данные, которые мы храним в токене.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет JWT токены.
type TokenManager struct {
	secret     []byte
	expiration time.Duration
}

// NewTokenManager создает TokenManager с заданным секретом и временем жизни токена.
func NewTokenManager(secret string, expiration time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("JWT secret must not be empty")
	}
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(secret),
		expiration: expiration,
	}, nil
}

// Generate создает новый JWT для указанного пользователя.
func (m *TokenManager) Generate(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "storypath-server",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Verify проверяет JWT и возвращает ID пользователя, если токен валиден.
func (m *TokenManager) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Убедимся, что метод подписи - HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return uuid.Nil, fmt.Errorf("token is malformed: %w", err)
		} else if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, fmt.Errorf("token is expired: %w", err)
		} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return uuid.Nil, fmt.Errorf("token not active yet: %w", err)
		}
		return uuid.Nil, fmt.Errorf("could not parse token: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user_id claim: %w", err)
	}
	return userID, nil
}
