package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/store_ratings/internal/models"
)

const (
	AccessTTL  = 24 * time.Hour
	RefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("refresh token revoked")
	ErrTokenExpired = errors.New("refresh token expired")
)

type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	jwt.RegisteredClaims
}

type Service struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (s *Service) SignAccessToken(userID uint, role string) (string, time.Time, error) {
	exp := time.Now().Add(AccessTTL)
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.JWTSecret)
	return signed, exp, err
}

func (s *Service) SignRefreshToken(ctx context.Context, userID uint) (string, time.Time, error) {
	exp := time.Now().Add(RefreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	stored := models.RefreshToken{
		Token:     sha256Hex(signed),
		UserID:    userID,
		JTI:       claims.ID,
		ExpiresAt: exp.Unix(),
	}
	if err := s.DB.WithContext(ctx).Create(&stored).Error; err != nil {
		return "", time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return signed, exp, nil
}

// ParseAccessToken validates the signature and returns the caller's id and role.
func (s *Service) ParseAccessToken(raw string) (uint, string, error) {
	var claims AccessClaims
	t, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.JWTSecret, nil
	})
	if err != nil || !t.Valid {
		return 0, "", ErrInvalidToken
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	return uint(id), claims.Role, nil
}

func (s *Service) validateRefresh(ctx context.Context, raw string) (uint, error) {
	var claims RefreshClaims
	t, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.RefreshSecret, nil
	})
	if err != nil || !t.Valid {
		return 0, ErrInvalidToken
	}

	var stored models.RefreshToken
	if err := s.DB.WithContext(ctx).Where("token = ?", sha256Hex(raw)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrInvalidToken
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	if stored.Revoked {
		return 0, ErrTokenRevoked
	}
	if time.Now().Unix() > stored.ExpiresAt {
		return 0, ErrTokenExpired
	}
	return stored.UserID, nil
}

// Rotate revokes the presented refresh token and issues a fresh token pair.
func (s *Service) Rotate(ctx context.Context, raw string) (string, string, error) {
	userID, err := s.validateRefresh(ctx, raw)
	if err != nil {
		return "", "", err
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrInvalidToken
		}
		return "", "", fmt.Errorf("db error: %w", err)
	}

	if err := s.Revoke(ctx, raw); err != nil {
		return "", "", err
	}

	access, _, err := s.SignAccessToken(user.ID, user.Role)
	if err != nil {
		return "", "", err
	}
	refresh, _, err := s.SignRefreshToken(ctx, user.ID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Service) Revoke(ctx context.Context, raw string) error {
	result := s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", sha256Hex(raw)).
		Update("revoked", true)
	return result.Error
}
