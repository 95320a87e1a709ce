package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/resquick/portal/internal/model"
	"github.com/resquick/portal/internal/repository"
	"github.com/resquick/portal/internal/validation"
)

const SessionCookieName = "session"

var (
	ErrInvalidCredentials  = errors.New("invalid id or password")
	ErrDuplicateIdentifier = errors.New("aadhaar number already registered")
	ErrInvalidSession      = errors.New("invalid session")
)

// SignupInput is the citizen signup form.
type SignupInput struct {
	NationalID string
	Name       string
	Mobile     string
	Password   string
}

// Validate returns the first invalid field as a user-facing error.
func (in SignupInput) Validate() error {
	if err := validation.ValidateNationalID(in.NationalID); err != nil {
		return err
	}
	if err := validation.ValidateName(in.Name); err != nil {
		return err
	}
	if err := validation.ValidateMobile(in.Mobile); err != nil {
		return err
	}
	return validation.ValidatePassword(in.Password)
}

type AuthService struct {
	accountRepository repository.AccountRepository
	officials         CredentialVerifier
	jwtSecret         string
	isProduction      bool
	jwtExpiry         time.Duration
}

func NewAuthService(
	accountRepository repository.AccountRepository,
	officials CredentialVerifier,
	jwtSecret string,
	isProduction bool,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		accountRepository: accountRepository,
		officials:         officials,
		jwtSecret:         jwtSecret,
		isProduction:      isProduction,
		jwtExpiry:         jwtExpiry,
	}
}

// Signup registers a citizen. The existing row is left untouched on conflict.
func (s *AuthService) Signup(in SignupInput) (*model.Account, error) {
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)

	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		NationalID:   in.NationalID,
		Name:         in.Name,
		Mobile:       in.Mobile,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.accountRepository.Create(account)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("signup %s: %w", in.NationalID, ErrDuplicateIdentifier)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// Login authenticates a citizen by national id and password.
func (s *AuthService) Login(nationalID, password string) (*model.Account, error) {
	nationalID = strings.TrimSpace(nationalID)

	account, err := s.accountRepository.ByNationalID(nationalID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Burn comparable time so unknown ids are indistinguishable
			_ = s.ComparePassword(password, dummyHash())
			return nil, fmt.Errorf("invalid credentials: %w", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	err = s.ComparePassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrInvalidCredentials)
	}

	return account, nil
}

// LoginOfficial authenticates an official against the configured credential store.
func (s *AuthService) LoginOfficial(id, secret string) (*model.Principal, error) {
	id = strings.TrimSpace(id)
	if id == "" || s.officials == nil || !s.officials.Verify(id, secret) {
		return nil, fmt.Errorf("invalid official credentials: %w", ErrInvalidCredentials)
	}
	return model.OfficialPrincipal(id), nil
}

// Account loads the account behind a citizen principal.
func (s *AuthService) Account(p *model.Principal) (*model.Account, error) {
	id, ok := p.AccountID()
	if !ok {
		return nil, ErrInvalidSession
	}
	return s.accountRepository.ByID(id)
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

var dummyHash = sync.OnceValue(func() string {
	hash, _ := bcrypt.GenerateFromPassword([]byte("resquick-unknown-account"), bcrypt.DefaultCost)
	return string(hash)
})

type sessionClaims struct {
	Kind model.PrincipalKind `json:"kind"`
	jwt.RegisteredClaims
}

func (s *AuthService) GenerateJWT(p *model.Principal) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(s.jwtExpiry)

	claims := sessionClaims{
		Kind: p.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiry, nil
}

// VerifyJWT returns the principal carried by a session token.
func (s *AuthService) VerifyJWT(tokenString string) (*model.Principal, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if !token.Valid || claims.Subject == "" || !claims.Kind.Valid() {
		return nil, ErrInvalidSession
	}

	return &model.Principal{ID: claims.Subject, Kind: claims.Kind}, nil
}

// StartSession issues a session cookie for p.
func (s *AuthService) StartSession(w http.ResponseWriter, p *model.Principal) error {
	token, expiry, err := s.GenerateJWT(p)
	if err != nil {
		return fmt.Errorf("failed to generate session: %w", err)
	}
	s.SetJWTCookie(w, token, expiry)
	return nil
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}
