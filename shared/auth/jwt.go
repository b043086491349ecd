package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// JWTService signs and verifies HS256 client tokens.
type JWTService struct {
	secretKey   []byte
	expiryHours int
}

// NewJWTService creates a JWTService. expiryHours <= 0 means 24 hours.
func NewJWTService(secretKey string, expiryHours int) *JWTService {
	if expiryHours <= 0 {
		expiryHours = 24
	}
	return &JWTService{
		secretKey:   []byte(secretKey),
		expiryHours: expiryHours,
	}
}

// Claims identifies the client device submitting reports.
type Claims struct {
	DeviceID string `json:"device_id"`
	User     string `json:"user,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken issues a token for deviceID.
func (s *JWTService) GenerateToken(deviceID, user string) (string, error) {
	now := time.Now()
	claims := &Claims{
		DeviceID: deviceID,
		User:     user,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour * time.Duration(s.expiryHours))),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken parses tokenString and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
