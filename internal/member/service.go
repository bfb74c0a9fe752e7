package member

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
	"github.com/victornm/botm/internal/event"
)

const minPasswordLength = 6

// Store persists members.
type Store interface {
	// InsertMember creates the member and its first measurement in one transaction.
	InsertMember(ctx context.Context, m *domain.Member, initial *domain.Measurement) error
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	GetMemberByEmail(ctx context.Context, email string) (*domain.Member, error)
	// ListMembers returns members newest first.
	ListMembers(ctx context.Context) ([]domain.Member, error)
	CountMembers(ctx context.Context, role domain.Role) (int, error)
	UpdateProfile(ctx context.Context, m *domain.Member) error
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	// DeleteMember removes the member with its measurements and competition entries.
	DeleteMember(ctx context.Context, id string) error
}

type Config struct {
	Store    Store
	EventBus *event.Bus
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Now        func() time.Time
}

type Service struct {
	store    Store
	eb       *event.Bus
	cost     int
	now      func() time.Time
	validate *validator.Validate
}

func NewService(c Config) *Service {
	cost := c.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:    c.Store,
		eb:       c.EventBus,
		cost:     cost,
		now:      now,
		validate: validator.New(),
	}
}

// RegisterRequest signs up a new member. The body measurements are optional
// and stored as the member's first measurement.
type RegisterRequest struct {
	Name             string
	Email            string
	Password         string
	Gender           domain.Gender
	AvatarURL        string
	Goals            string
	TrainingDuration string
	CurrentWeight    decimal.Decimal

	Chest  decimal.NullDecimal
	Arms   decimal.NullDecimal
	Waist  decimal.NullDecimal
	Thighs decimal.NullDecimal
	Neck   decimal.NullDecimal
	Glutes decimal.NullDecimal
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.Member, error) {
	name, email := strings.TrimSpace(req.Name), strings.TrimSpace(req.Email)

	if err := s.validateIdentity(name, email); err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, errors.InvalidArgument("password must have at least %d characters", minPasswordLength)
	}
	if !req.Gender.Valid() {
		return nil, errors.InvalidArgument("unknown gender: %q", req.Gender)
	}
	if !req.CurrentWeight.IsPositive() {
		return nil, errors.InvalidArgument("current weight must be positive")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	memberID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate member ID: %w", err)
	}
	measurementID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate measurement ID: %w", err)
	}

	now := s.now()
	m := &domain.Member{
		MemberID:         memberID.String(),
		Name:             name,
		Email:            email,
		PasswordHash:     string(hash),
		Gender:           req.Gender,
		Role:             domain.RoleMember,
		AvatarURL:        strings.TrimSpace(req.AvatarURL),
		Goals:            req.Goals,
		TrainingDuration: req.TrainingDuration,
		CurrentWeight:    decimal.NewNullDecimal(req.CurrentWeight),
		CreateTime:       now,
	}

	initial := &domain.Measurement{
		MeasurementID: measurementID.String(),
		MemberID:      m.MemberID,
		Date:          now,
		Weight:        req.CurrentWeight,
		Chest:         req.Chest,
		Arms:          req.Arms,
		Waist:         req.Waist,
		Thighs:        req.Thighs,
		Neck:          req.Neck,
		Glutes:        req.Glutes,
	}

	if err := s.store.InsertMember(ctx, m, initial); err != nil {
		if errors.Is(err, errors.CodeAlreadyExists) {
			return nil, errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("user already exists with this email"),
				errors.WithCause(err),
			)
		}
		return nil, errors.Failed(err, "create user")
	}

	return m, nil
}

type AuthenticateRequest struct {
	Email    string
	Password string
}

// Authenticate returns the member owning the credentials. Unknown email and wrong
// password fail the same way.
func (s *Service) Authenticate(ctx context.Context, req AuthenticateRequest) (*domain.Member, error) {
	invalid := errors.New(errors.CodeUnauthenticated, errors.WithMessagef("invalid email or password"))

	m, err := s.store.GetMemberByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, errors.CodeNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, errors.Failed(err, "log in")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalid
	}

	return m, nil
}

func (s *Service) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	m, err := s.store.GetMember(ctx, id)
	if err != nil {
		return nil, convert(err, "get member")
	}
	return m, nil
}

func (s *Service) ListMembers(ctx context.Context) ([]domain.Member, error) {
	ms, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, errors.Failed(err, "list members")
	}
	return ms, nil
}

// CountMembers counts the members that are not admins.
func (s *Service) CountMembers(ctx context.Context) (int, error) {
	n, err := s.store.CountMembers(ctx, domain.RoleMember)
	if err != nil {
		return 0, errors.Failed(err, "count members")
	}
	return n, nil
}

type UpdateProfileRequest struct {
	MemberID         string
	Name             string
	Email            string
	Gender           domain.Gender
	Goals            string
	TrainingDuration string
	CurrentWeight    decimal.NullDecimal
	// AvatarURL keeps the current avatar when empty.
	AvatarURL string
}

func (s *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*domain.Member, error) {
	name, email := strings.TrimSpace(req.Name), strings.TrimSpace(req.Email)

	if err := s.validateIdentity(name, email); err != nil {
		return nil, err
	}
	if req.Gender != "" && !req.Gender.Valid() {
		return nil, errors.InvalidArgument("unknown gender: %q", req.Gender)
	}
	if req.CurrentWeight.Valid && !req.CurrentWeight.Decimal.IsPositive() {
		return nil, errors.InvalidArgument("current weight must be positive")
	}

	m, err := s.GetMember(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}

	if email != m.Email {
		_, err := s.store.GetMemberByEmail(ctx, email)
		switch {
		case err == nil:
			return nil, errors.New(errors.CodeAlreadyExists, errors.WithMessagef("this email is already in use"))
		case !errors.Is(err, errors.CodeNotFound):
			return nil, errors.Failed(err, "update profile")
		}
	}

	m.Name = name
	m.Email = email
	if req.Gender != "" {
		m.Gender = req.Gender
	}
	m.Goals = req.Goals
	m.TrainingDuration = req.TrainingDuration
	m.CurrentWeight = req.CurrentWeight
	if avatar := strings.TrimSpace(req.AvatarURL); avatar != "" {
		m.AvatarURL = avatar
	}

	if err := s.store.UpdateProfile(ctx, m); err != nil {
		if errors.Is(err, errors.CodeAlreadyExists) {
			return nil, errors.New(errors.CodeAlreadyExists, errors.WithMessagef("this email is already in use"))
		}
		return nil, convert(err, "update profile")
	}

	s.eb.Publish(ctx, domain.EventMemberUpdated{MemberID: m.MemberID})

	return m, nil
}

type UpdatePasswordRequest struct {
	MemberID        string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

func (s *Service) UpdatePassword(ctx context.Context, req UpdatePasswordRequest) error {
	switch {
	case req.CurrentPassword == "":
		return errors.InvalidArgument("current password is required")
	case len(req.NewPassword) < minPasswordLength:
		return errors.InvalidArgument("new password must be at least %d characters", minPasswordLength)
	case req.NewPassword != req.ConfirmPassword:
		return errors.InvalidArgument("passwords don't match")
	}

	m, err := s.GetMember(ctx, req.MemberID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return errors.New(errors.CodePermissionDenied, errors.WithMessagef("current password is incorrect"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, m.MemberID, string(hash)); err != nil {
		return convert(err, "update password")
	}
	return nil
}

type UpdateRoleRequest struct {
	MemberID string
	Role     domain.Role
}

func (s *Service) UpdateRole(ctx context.Context, req UpdateRoleRequest) error {
	if !req.Role.Valid() {
		return errors.InvalidArgument("unknown role: %q", req.Role)
	}

	if err := s.store.UpdateRole(ctx, req.MemberID, req.Role); err != nil {
		return convert(err, "update role")
	}
	return nil
}

func (s *Service) DeleteMember(ctx context.Context, id string) error {
	if err := s.store.DeleteMember(ctx, id); err != nil {
		return convert(err, "delete member")
	}

	s.eb.Publish(ctx, domain.EventMemberDeleted{MemberID: id})
	return nil
}

// LandingPath is where a member lands after logging in.
func LandingPath(m *domain.Member) string {
	if m.IsAdmin() {
		return "/admin"
	}
	return "/dashboard"
}

func (s *Service) validateIdentity(name, email string) error {
	if len([]rune(name)) < 2 {
		return errors.InvalidArgument("name must be at least 2 characters")
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid email address"),
			errors.WithCause(err),
		)
	}
	return nil
}

func convert(err error, op string) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e
	}
	return errors.Failed(err, op)
}
