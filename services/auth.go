package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strconv"
	"time"

	"treasure-hunt-api/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginIDTaken       = errors.New("login id already in use")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidLoginID     = errors.New("login id must be 3-30 characters of letters, digits, '.', '_' or '-'")
	ErrUserNotActive      = errors.New("account is blocked or deleted")
	ErrInvalidToken       = errors.New("invalid token")
)

var loginIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,30}$`)

// Claims is the JWT payload. Role and AdminID are only present for
// operators; Type discriminates access from refresh tokens.
type Claims struct {
	UserID  string `json:"user_id"`
	LoginID string `json:"login_id"`
	Role    string `json:"role,omitempty"`
	AdminID string `json:"admin_id,omitempty"`
	Type    string `json:"type"` // access|refresh
	jwt.RegisteredClaims
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthService handles registration, login, token issuance and password
// management against local identities.
type AuthService struct {
	DB         *gorm.DB
	Email      *EmailService
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(db *gorm.DB, email *EmailService) *AuthService {
	accessMin := 60
	if v := os.Getenv("JWT_ACCESS_TTL_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			accessMin = n
		}
	}
	refreshDays := 14
	if v := os.Getenv("JWT_REFRESH_TTL_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			refreshDays = n
		}
	}
	return &AuthService{
		DB:         db,
		Email:      email,
		secret:     []byte(os.Getenv("JWT_SECRET")),
		accessTTL:  time.Duration(accessMin) * time.Minute,
		refreshTTL: time.Duration(refreshDays) * 24 * time.Hour,
	}
}

// Register creates a user and its local identity in one transaction.
func (s *AuthService) Register(loginID, password string, email, nickname *string) (*models.User, error) {
	if !loginIDPattern.MatchString(loginID) {
		return nil, ErrInvalidLoginID
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("login_id = ?", loginID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrLoginIDTaken
		}
		if email != nil && *email != "" {
			if err := tx.Model(&models.User{}).Where("email = ?", *email).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrEmailTaken
			}
		}

		user = models.User{
			LoginID:  loginID,
			Email:    email,
			Nickname: nickname,
			Status:   models.UserStatusActive,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		hashStr := string(hash)
		algo := "bcrypt"
		identity := models.AuthIdentity{
			UserID:         user.ID,
			Provider:       "local",
			ProviderUserID: loginID,
			PasswordHash:   &hashStr,
			PasswordAlgo:   &algo,
		}
		return tx.Create(&identity).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates by login id or email against the local identity and
// issues a token pair. An operator gets role/admin_id claims.
func (s *AuthService) Login(loginIDOrEmail, password string) (*models.User, *TokenPair, error) {
	var user models.User
	err := s.DB.Where("login_id = ? OR email = ?", loginIDOrEmail, loginIDOrEmail).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !user.IsActive() {
		return nil, nil, ErrUserNotActive
	}

	var identity models.AuthIdentity
	err = s.DB.Where("user_id = ? AND provider = ?", user.ID, "local").First(&identity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if identity.PasswordHash == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(*identity.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	now := time.Now()
	s.DB.Model(&models.AuthIdentity{}).Where("id = ?", identity.ID).Update("last_login_at", now)
	s.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("last_active_at", now)

	pair, err := s.issueTokens(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.VerifyToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != "refresh" {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := s.DB.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive() {
		return nil, ErrUserNotActive
	}
	return s.issueTokens(&user)
}

// VerifyToken parses and validates a token, HS256 only.
func (s *AuthService) VerifyToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) issueTokens(user *models.User) (*TokenPair, error) {
	role, adminID := "", ""
	var admin models.Admin
	if err := s.DB.Where("user_id = ?", user.ID).First(&admin).Error; err == nil {
		role = admin.Role
		adminID = admin.ID
	}

	access, err := s.signToken(user, role, adminID, "access", s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(user, role, adminID, "refresh", s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

func (s *AuthService) signToken(user *models.User, role, adminID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  user.ID,
		LoginID: user.LoginID,
		Role:    role,
		AdminID: adminID,
		Type:    tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ChangePassword verifies the current password and swaps in a new hash.
func (s *AuthService) ChangePassword(userID, current, next string) error {
	if len(next) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var identity models.AuthIdentity
	err := s.DB.Where("user_id = ? AND provider = ?", userID, "local").First(&identity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrInvalidCredentials
		}
		return err
	}
	if identity.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*identity.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hashStr := string(hash)
	return s.DB.Model(&models.AuthIdentity{}).
		Where("id = ?", identity.ID).
		Update("password_hash", hashStr).Error
}

// ForgotPassword issues a temporary password and mails it. The caller
// always gets a success-shaped response so addresses cannot be probed.
func (s *AuthService) ForgotPassword(email string) {
	var user models.User
	if err := s.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return
	}
	if !user.IsActive() {
		return
	}

	temp, err := generateTempPassword(12)
	if err != nil {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(temp), bcrypt.DefaultCost)
	if err != nil {
		return
	}
	hashStr := string(hash)
	err = s.DB.Model(&models.AuthIdentity{}).
		Where("user_id = ? AND provider = ?", user.ID, "local").
		Update("password_hash", hashStr).Error
	if err != nil {
		return
	}

	if s.Email != nil {
		s.Email.SendTempPassword(email, temp)
	}
}

const tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

func generateTempPassword(n int) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tempPasswordAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
