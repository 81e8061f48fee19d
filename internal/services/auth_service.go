package services

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/Murega14/agrilink/internal/cache"
	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/repositories"
	"github.com/Murega14/agrilink/pkg/rabbitmq"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenType distinguishes what a signed token may be used for.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
	TokenReset   TokenType = "reset"
)

// Claims is the JWT payload issued by AuthService.
type Claims struct {
	AccountID string      `json:"account_id"`
	Role      models.Role `json:"role"`
	Type      TokenType   `json:"typ"`
	Email     string      `json:"email,omitempty"`
	jwt.StandardClaims
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SignupInput carries the fields needed to open an account.
type SignupInput struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Email       string
	Password    string
}

// ProfileUpdate carries optional profile changes; nil fields are left alone.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
}

// Notification is the message handed to the mail worker.
type Notification struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// AuthConfig configures token lifetimes and collaborators of AuthService.
type AuthConfig struct {
	JWTSecret          string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	RefreshedAccessTTL time.Duration
	ResetTTL           time.Duration
	// ResetURL is the base the reset token is appended to in e-mails.
	ResetURL  string
	Revoked   *cache.TTLCache
	Publisher EventPublisher
}

// AuthService handles business logic for authentication and accounts.
type AuthService struct {
	accounts  repositories.AccountRepository
	jwtSecret []byte
	cfg       AuthConfig
	revoked   *cache.TTLCache
	publisher EventPublisher
	now       func() time.Time
}

// NewAuthService creates a new AuthService. Zero durations fall back to
// 2h access, 7d refresh, 30m refreshed access and 1h reset tokens.
func NewAuthService(accounts repositories.AccountRepository, cfg AuthConfig) *AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 2 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.RefreshedAccessTTL <= 0 {
		cfg.RefreshedAccessTTL = 30 * time.Minute
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	revoked := cfg.Revoked
	if revoked == nil {
		revoked = cache.New(10000, cfg.RefreshTTL)
	}
	return &AuthService{
		accounts:  accounts,
		jwtSecret: []byte(cfg.JWTSecret),
		cfg:       cfg,
		revoked:   revoked,
		publisher: cfg.Publisher,
		now:       time.Now,
	}
}

// AccessTTL is how long a login access token lives.
func (s *AuthService) AccessTTL() time.Duration {
	return s.cfg.AccessTTL
}

// Register opens a new account for role after checking e-mail and phone are unused.
func (s *AuthService) Register(role models.Role, in SignupInput) (*models.Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.PhoneNumber)

	exists, err := s.accounts.ExistsByEmailOrPhone(role, email, phone, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: email or phone number is already registered", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PhoneNumber:  phone,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.accounts.Create(account); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email or phone number is already registered", ErrConflict)
		}
		return nil, fmt.Errorf("failed to register %s: %w", role, err)
	}
	return account, nil
}

// Login authenticates by e-mail or phone number and issues a token pair.
func (s *AuthService) Login(role models.Role, identifier, password string) (*TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		identifier = strings.ToLower(identifier)
	}
	account, err := s.accounts.GetByIdentifier(role, identifier)
	if err != nil {
		// Do not reveal whether the identifier exists.
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issuePair(account.ID, role, s.cfg.AccessTTL)
}

// Refresh exchanges a refresh token for a new pair.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetByID(claims.Role, claims.AccountID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", ErrInvalidToken)
		}
		return nil, err
	}
	// The old refresh token cannot be replayed.
	s.revoke(claims)
	return s.issuePair(claims.AccountID, claims.Role, s.cfg.RefreshedAccessTTL)
}

// ValidateToken parses an access token and checks it was not revoked.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, TokenAccess)
}

// Logout revokes the access token described by claims until it expires.
func (s *AuthService) Logout(claims *Claims) {
	s.revoke(claims)
}

// GetAccount loads the account behind an authenticated identity.
func (s *AuthService) GetAccount(role models.Role, id string) (*models.Account, error) {
	return s.accounts.GetByID(role, id)
}

// UpdateProfile applies the non-nil fields of upd.
func (s *AuthService) UpdateProfile(role models.Role, id string, upd ProfileUpdate) (*models.Account, error) {
	account, err := s.accounts.GetByID(role, id)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		account.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		account.LastName = strings.TrimSpace(*upd.LastName)
	}
	contactChanged := false
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		contactChanged = contactChanged || email != account.Email
		account.Email = email
	}
	if upd.PhoneNumber != nil {
		phone := strings.TrimSpace(*upd.PhoneNumber)
		contactChanged = contactChanged || phone != account.PhoneNumber
		account.PhoneNumber = phone
	}

	if contactChanged {
		exists, err := s.accounts.ExistsByEmailOrPhone(role, account.Email, account.PhoneNumber, account.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: email or phone number is already registered", ErrConflict)
		}
	}

	if err := s.accounts.Update(account); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email or phone number is already registered", ErrConflict)
		}
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes the account; a farmer's products go with it.
func (s *AuthService) DeleteAccount(role models.Role, id string) error {
	return s.accounts.Delete(role, id)
}

// ChangePassword replaces the password after verifying the current one.
func (s *AuthService) ChangePassword(role models.Role, id, oldPassword, newPassword string) error {
	account, err := s.accounts.GetByID(role, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("%w: incorrect password", ErrValidation)
	}
	if oldPassword == newPassword {
		return fmt.Errorf("%w: new password must be different from old password", ErrValidation)
	}
	return s.setPassword(account, newPassword)
}

// ForgotPassword sends a reset link when email belongs to an account. It
// succeeds silently for unknown addresses.
func (s *AuthService) ForgotPassword(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	account, err := s.findByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	token, _, err := s.sign(account.ID, account.Role, TokenReset, account.Email, s.cfg.ResetTTL)
	if err != nil {
		return err
	}

	if s.publisher == nil {
		log.Printf("No notification publisher configured; reset e-mail for %s %s not sent", account.Role, account.ID)
		return nil
	}
	msg := Notification{
		To:      account.Email,
		Subject: "Password Reset Request",
		Body:    "Click the link below to reset your password\n" + s.resetLink(token),
	}
	if err := s.publisher.Publish(rabbitmq.NotificationQueue, msg); err != nil {
		return fmt.Errorf("failed to queue password reset e-mail: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token. Each token works once.
func (s *AuthService) ResetPassword(token, newPassword string) error {
	claims, err := s.parse(token, TokenReset)
	if err != nil {
		return err
	}
	account, err := s.accounts.GetByID(claims.Role, claims.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: account no longer exists", ErrInvalidToken)
		}
		return err
	}
	if account.Email != claims.Email {
		return fmt.Errorf("%w: e-mail changed since the token was issued", ErrInvalidToken)
	}
	if err := s.setPassword(account, newPassword); err != nil {
		return err
	}
	s.revoke(claims)
	return nil
}

func (s *AuthService) findByEmail(email string) (*models.Account, error) {
	account, err := s.accounts.GetByEmail(models.RoleFarmer, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.accounts.GetByEmail(models.RoleBuyer, email)
}

func (s *AuthService) setPassword(account *models.Account, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	account.PasswordHash = string(hash)
	return s.accounts.Update(account)
}

func (s *AuthService) resetLink(token string) string {
	base := strings.TrimRight(s.cfg.ResetURL, "/")
	return base + "/" + url.PathEscape(token)
}

func (s *AuthService) issuePair(accountID string, role models.Role, accessTTL time.Duration) (*TokenPair, error) {
	access, _, err := s.sign(accountID, role, TokenAccess, "", accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.sign(accountID, role, TokenRefresh, "", s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessTTL.Seconds()),
	}, nil
}

func (s *AuthService) sign(accountID string, role models.Role, typ TokenType, email string, ttl time.Duration) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		AccountID: accountID,
		Role:      role,
		Type:      typ,
		Email:     email,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, claims, nil
}

func (s *AuthService) parse(tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, want, claims.Type)
	}
	if !claims.Role.Valid() || claims.AccountID == "" {
		return nil, fmt.Errorf("%w: malformed claims", ErrInvalidToken)
	}
	if _, revoked := s.revoked.Get(revokedKey(claims.Id)); revoked {
		return nil, fmt.Errorf("%w: token has been revoked", ErrInvalidToken)
	}
	return claims, nil
}

func revokedKey(jti string) string {
	return "revoked:" + jti
}

func (s *AuthService) revoke(claims *Claims) {
	if claims == nil || claims.Id == "" {
		return
	}
	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if ttl <= 0 {
		return
	}
	s.revoked.SetWithTTL(revokedKey(claims.Id), true, ttl)
}
