package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"rideway/internal/auth"
	"rideway/internal/kafka"
	"rideway/internal/logger"
	"rideway/internal/types"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPhoneTaken         = errors.New("phone already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrBadRequest         = errors.New("bad request")
)

const bcryptCost = 12

const resetTokenTTL = time.Hour

// Store is the user persistence contract.
type Store interface {
	Create(ctx context.Context, u *User, verifyToken string) error
	GetByID(ctx context.Context, id types.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	SetLoginFailure(ctx context.Context, id types.ID, attempts int, lockedUntil *time.Time) error
	ResetLoginFailures(ctx context.Context, id types.ID, lastLogin time.Time) error
	MarkEmailVerified(ctx context.Context, token string) (types.ID, error)
	SetResetToken(ctx context.Context, id types.ID, token string, expires time.Time) error
	GetByResetToken(ctx context.Context, token string) (*User, error)
	SetPassword(ctx context.Context, id types.ID, hash string) error

	UpdateProfile(ctx context.Context, id types.ID, firstName, lastName, phone string) error
	UpdatePreferences(ctx context.Context, id types.ID, p Preferences) error
	SetAvatar(ctx context.Context, id types.ID, url string) error
	SetStatus(ctx context.Context, id types.ID, status string) error
	SetDriverInfo(ctx context.Context, id types.ID, d DriverInfo) error

	IncrementBookings(ctx context.Context, id types.ID) error
	ApplyCompletedRide(ctx context.Context, id types.ID, fareTotal float64) error
	ApplyCancelledRide(ctx context.Context, id types.ID) error
	SetDriverRating(ctx context.Context, id types.ID, average float64) error

	ListAddresses(ctx context.Context, userID types.ID) ([]Address, error)
	AddAddress(ctx context.Context, a *Address) error
	UpdateAddress(ctx context.Context, a *Address) error
	DeleteAddress(ctx context.Context, userID, id types.ID) error
	SetDefaultAddress(ctx context.Context, userID, id types.ID) error

	ListPaymentMethods(ctx context.Context, userID types.ID) ([]PaymentMethod, error)
	AddPaymentMethod(ctx context.Context, m *PaymentMethod) error
	UpdatePaymentMethod(ctx context.Context, m *PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, userID, id types.ID) error
	SetDefaultPaymentMethod(ctx context.Context, userID, id types.ID) error
}

// Geocoder resolves a street address to coordinates. Optional; saved
// addresses keep zero coordinates without one.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Service struct {
	store    Store
	tokens   *auth.Manager
	geocoder Geocoder
	producer Publisher
	topic    string
	log      logger.Logger
}

func NewService(store Store, tokens *auth.Manager, geocoder Geocoder, producer Publisher, topic string, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    store,
		tokens:   tokens,
		geocoder: geocoder,
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

type RegisterCommand struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
	Driver    *DriverInfo
}

type Session struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Register creates an account and returns it with a signed session token.
// Driver accounts must carry license details.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if !strings.Contains(email, "@") || cmd.FirstName == "" {
		return nil, ErrBadRequest
	}
	if len(cmd.Password) < 8 {
		return nil, ErrBadRequest
	}
	role := cmd.Role
	if role == "" {
		role = auth.RoleUser
	}
	if role != auth.RoleUser && role != auth.RoleDriver {
		return nil, ErrBadRequest
	}
	if role == auth.RoleDriver && (cmd.Driver == nil || cmd.Driver.LicenseNumber == "") {
		return nil, ErrBadRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &User{
		ID:           types.ID(uuid.NewString()),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(cmd.FirstName),
		LastName:     strings.TrimSpace(cmd.LastName),
		Phone:        cmd.Phone,
		Role:         role,
		Status:       StatusActive,
		Driver:       cmd.Driver,
		Preferences:  DefaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	verifyToken := uuid.NewString()
	if err := s.store.Create(ctx, u, verifyToken); err != nil {
		return nil, err
	}

	s.notify(ctx, u.ID, "welcome", "Welcome to Rideway", "Confirm your email to finish setting up your account.")
	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}

// Authenticate checks credentials and issues a session token. Five failed
// attempts lock the account for two hours; a successful login clears the
// counter.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if u.IsLocked(now) {
		return nil, ErrAccountLocked
	}
	if u.Status != StatusActive {
		return nil, ErrAccountDisabled
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		attempts := u.FailedLogins + 1
		var lockedUntil *time.Time
		if attempts >= maxFailedLogins {
			t := now.Add(lockDuration)
			lockedUntil = &t
			s.log.Warn("account locked after failed logins", logger.String("user_id", string(u.ID)))
		}
		if err := s.store.SetLoginFailure(ctx, u.ID, attempts, lockedUntil); err != nil {
			s.log.Error("record failed login", logger.Error(err))
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.store.ResetLoginFailures(ctx, u.ID, now); err != nil {
		s.log.Error("reset failed logins", logger.Error(err))
	}
	u.FailedLogins = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	_, err := s.store.MarkEmailVerified(ctx, token)
	return err
}

// RequestPasswordReset stores a one-hour reset token. Unknown emails
// succeed silently so the endpoint does not leak which addresses exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token := uuid.NewString()
	if err := s.store.SetResetToken(ctx, u.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		return err
	}
	s.notify(ctx, u.ID, "password_reset", "Password reset requested", "Use your reset token within the next hour: "+token)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrBadRequest
	}
	u, err := s.store.GetByResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	return s.store.SetPassword(ctx, u.ID, string(hash))
}

func (s *Service) ChangePassword(ctx context.Context, ident auth.Identity, current, next string) error {
	if len(next) < 8 {
		return ErrBadRequest
	}
	u, err := s.store.GetByID(ctx, ident.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return err
	}
	return s.store.SetPassword(ctx, u.ID, string(hash))
}

func (s *Service) Get(ctx context.Context, id types.ID) (*User, error) {
	return s.store.GetByID(ctx, id)
}

type UpdateProfileCommand struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

func (s *Service) UpdateProfile(ctx context.Context, ident auth.Identity, cmd UpdateProfileCommand) (*User, error) {
	u, err := s.store.GetByID(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}
	if cmd.FirstName != nil {
		if strings.TrimSpace(*cmd.FirstName) == "" {
			return nil, ErrBadRequest
		}
		u.FirstName = strings.TrimSpace(*cmd.FirstName)
	}
	if cmd.LastName != nil {
		u.LastName = strings.TrimSpace(*cmd.LastName)
	}
	if cmd.Phone != nil {
		u.Phone = *cmd.Phone
	}
	if err := s.store.UpdateProfile(ctx, u.ID, u.FirstName, u.LastName, u.Phone); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, ident auth.Identity, p Preferences) error {
	if p.Language == "" {
		p.Language = "en"
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.Theme == "" {
		p.Theme = "light"
	}
	return s.store.UpdatePreferences(ctx, ident.UserID, p)
}

func (s *Service) SetAvatar(ctx context.Context, ident auth.Identity, url string) error {
	return s.store.SetAvatar(ctx, ident.UserID, url)
}

func (s *Service) UpdateDriverInfo(ctx context.Context, ident auth.Identity, d DriverInfo) error {
	if ident.Role != auth.RoleDriver {
		return ErrBadRequest
	}
	if d.LicenseNumber == "" {
		return ErrBadRequest
	}
	return s.store.SetDriverInfo(ctx, ident.UserID, d)
}

// Deactivate soft-disables the account after re-checking the password.
// The row stays for booking history.
func (s *Service) Deactivate(ctx context.Context, ident auth.Identity, password string) error {
	u, err := s.store.GetByID(ctx, ident.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return s.store.SetStatus(ctx, ident.UserID, StatusInactive)
}

// Booking stats hooks. Wired into the booking lifecycle.

func (s *Service) IncrementBookings(ctx context.Context, userID types.ID) error {
	return s.store.IncrementBookings(ctx, userID)
}

func (s *Service) ApplyCompletedRide(ctx context.Context, riderID types.ID, fareTotal float64) error {
	return s.store.ApplyCompletedRide(ctx, riderID, fareTotal)
}

func (s *Service) ApplyCancelledRide(ctx context.Context, riderID types.ID) error {
	return s.store.ApplyCancelledRide(ctx, riderID)
}

func (s *Service) SetDriverRating(ctx context.Context, driverID types.ID, average float64) error {
	return s.store.SetDriverRating(ctx, driverID, average)
}

// Saved addresses.

func (s *Service) ListAddresses(ctx context.Context, ident auth.Identity) ([]Address, error) {
	return s.store.ListAddresses(ctx, ident.UserID)
}

func (s *Service) AddAddress(ctx context.Context, ident auth.Identity, a Address) (*Address, error) {
	if a.Label == "" || a.Street == "" {
		return nil, ErrBadRequest
	}
	a.ID = types.ID(uuid.NewString())
	a.UserID = ident.UserID
	a.CreatedAt = time.Now()
	s.geocode(ctx, &a)
	if err := s.store.AddAddress(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) UpdateAddress(ctx context.Context, ident auth.Identity, a Address) (*Address, error) {
	if a.ID == "" || a.Label == "" || a.Street == "" {
		return nil, ErrBadRequest
	}
	a.UserID = ident.UserID
	s.geocode(ctx, &a)
	if err := s.store.UpdateAddress(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) DeleteAddress(ctx context.Context, ident auth.Identity, id types.ID) error {
	return s.store.DeleteAddress(ctx, ident.UserID, id)
}

func (s *Service) SetDefaultAddress(ctx context.Context, ident auth.Identity, id types.ID) error {
	return s.store.SetDefaultAddress(ctx, ident.UserID, id)
}

// Stored payment methods.

func (s *Service) ListPaymentMethods(ctx context.Context, ident auth.Identity) ([]PaymentMethod, error) {
	return s.store.ListPaymentMethods(ctx, ident.UserID)
}

func (s *Service) AddPaymentMethod(ctx context.Context, ident auth.Identity, m PaymentMethod) (*PaymentMethod, error) {
	if m.Type == "" {
		return nil, ErrBadRequest
	}
	m.ID = types.ID(uuid.NewString())
	m.UserID = ident.UserID
	m.CreatedAt = time.Now()
	if err := s.store.AddPaymentMethod(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) UpdatePaymentMethod(ctx context.Context, ident auth.Identity, m PaymentMethod) (*PaymentMethod, error) {
	if m.ID == "" || m.Type == "" {
		return nil, ErrBadRequest
	}
	m.UserID = ident.UserID
	if err := s.store.UpdatePaymentMethod(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) DeletePaymentMethod(ctx context.Context, ident auth.Identity, id types.ID) error {
	return s.store.DeletePaymentMethod(ctx, ident.UserID, id)
}

func (s *Service) SetDefaultPaymentMethod(ctx context.Context, ident auth.Identity, id types.ID) error {
	return s.store.SetDefaultPaymentMethod(ctx, ident.UserID, id)
}

func (s *Service) geocode(ctx context.Context, a *Address) {
	if s.geocoder == nil {
		return
	}
	if a.Coordinates.Lat != 0 || a.Coordinates.Lng != 0 {
		return
	}
	full := strings.Join(nonEmpty(a.Street, a.City, a.State, a.ZipCode, a.Country), ", ")
	p, err := s.geocoder.Geocode(ctx, full)
	if err != nil {
		s.log.Warn("geocode address failed", logger.String("address_id", string(a.ID)), logger.Error(err))
		return
	}
	a.Coordinates = p
}

func (s *Service) notify(ctx context.Context, userID types.ID, kind, title, body string) {
	if s.producer == nil || s.topic == "" {
		return
	}
	ev := kafka.NotificationEvent{
		UserID: string(userID),
		Kind:   kind,
		Title:  title,
		Body:   body,
	}
	if err := s.producer.Publish(ctx, s.topic, string(userID), ev); err != nil {
		s.log.Warn("publish notification failed", logger.String("user_id", string(userID)), logger.Error(err))
	}
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
