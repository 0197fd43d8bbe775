package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims. Kind distinguishes access tokens from
// refresh tokens so one can never stand in for the other.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

// Token kinds.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Token lifetimes. Access tokens are short-lived; the refresh token is
// redeemed exactly once against the server-side JTI list.
const (
	AccessExpiry  = 15 * time.Minute
	RefreshExpiry = 30 * 24 * time.Hour
)

// TokenPair is an access/refresh token pair issued at login or refresh.
type TokenPair struct {
	Access     string
	Refresh    string
	RefreshJTI string
	RefreshExp time.Time
}

// GenerateTokenPair creates a new access/refresh pair for a user. The
// refresh token's JTI and expiry are returned so the caller can persist
// them for single-use redemption.
func GenerateTokenPair(secret string, userID int64, username, role string) (*TokenPair, error) {
	access, _, _, err := generateToken(secret, userID, username, role, KindAccess, AccessExpiry)
	if err != nil {
		return nil, err
	}

	refresh, jti, exp, err := generateToken(secret, userID, username, role, KindRefresh, RefreshExpiry)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Access:     access,
		Refresh:    refresh,
		RefreshJTI: jti,
		RefreshExp: exp,
	}, nil
}

func generateToken(secret string, userID int64, username, role, kind string, expiry time.Duration) (string, string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("generating JTI: %w", err)
	}

	expiresAt := time.Now().Add(expiry)
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, jti, expiresAt, nil
}

// ValidateToken parses and validates a JWT of the expected kind, returning
// the claims.
func ValidateToken(secret, tokenStr, kind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("wrong token kind: %s", claims.Kind)
	}

	return claims, nil
}

// generateJTI creates a random token ID.
func generateJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
