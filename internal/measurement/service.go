package measurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
)

const defaultHistoryLimit = 50

// Store persists body measurements.
type Store interface {
	// InsertMeasurement stores the measurement and sets it as the member's current weight
	// in one transaction.
	InsertMeasurement(ctx context.Context, m *domain.Measurement) error
	// ListMeasurements returns the newest measurements first.
	ListMeasurements(ctx context.Context, memberID string, limit int) ([]domain.Measurement, error)
}

type Config struct {
	Store Store
	Now   func() time.Time
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(c Config) *Service {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store: c.Store,
		now:   now,
	}
}

type AddMeasurementRequest struct {
	MemberID string
	Weight   decimal.Decimal
	Chest    decimal.NullDecimal
	Arms     decimal.NullDecimal
	Waist    decimal.NullDecimal
	Thighs   decimal.NullDecimal
	Neck     decimal.NullDecimal
	Glutes   decimal.NullDecimal
	PhotoURL string
}

var minWeight = decimal.NewFromInt(1)

func (s *Service) AddMeasurement(ctx context.Context, req AddMeasurementRequest) (*domain.Measurement, error) {
	if req.Weight.LessThan(minWeight) {
		return nil, errors.InvalidArgument("weight is required")
	}

	for name, v := range map[string]decimal.NullDecimal{
		"chest":  req.Chest,
		"arms":   req.Arms,
		"waist":  req.Waist,
		"thighs": req.Thighs,
		"neck":   req.Neck,
		"glutes": req.Glutes,
	} {
		if v.Valid && v.Decimal.IsNegative() {
			return nil, errors.InvalidArgument("%s must not be negative", name)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate measurement ID: %w", err)
	}

	m := &domain.Measurement{
		MeasurementID: id.String(),
		MemberID:      req.MemberID,
		Date:          s.now(),
		Weight:        req.Weight,
		Chest:         req.Chest,
		Arms:          req.Arms,
		Waist:         req.Waist,
		Thighs:        req.Thighs,
		Neck:          req.Neck,
		Glutes:        req.Glutes,
		PhotoURL:      strings.TrimSpace(req.PhotoURL),
	}

	if err := s.store.InsertMeasurement(ctx, m); err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, err
		}
		return nil, errors.Failed(err, "add measurement")
	}

	return m, nil
}

type HistoryRequest struct {
	MemberID string
	// Limit defaults to 50.
	Limit int
}

// History returns the member's measurements, newest first.
func (s *Service) History(ctx context.Context, req HistoryRequest) ([]domain.Measurement, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	ms, err := s.store.ListMeasurements(ctx, req.MemberID, limit)
	if err != nil {
		return nil, errors.Failed(err, "get measurement history")
	}
	return ms, nil
}

// Progress summarizes a measurement history for the dashboard.
type Progress struct {
	Count       int
	StartWeight decimal.Decimal
	Weight      decimal.Decimal
	// WeightChange is Weight minus StartWeight, negative when the member lost weight.
	WeightChange decimal.Decimal
	LastDate     time.Time
}

// ComputeProgress expects the history newest first, as returned by History.
func ComputeProgress(history []domain.Measurement) Progress {
	if len(history) == 0 {
		return Progress{}
	}

	newest, oldest := history[0], history[len(history)-1]
	return Progress{
		Count:        len(history),
		StartWeight:  oldest.Weight,
		Weight:       newest.Weight,
		WeightChange: newest.Weight.Sub(oldest.Weight),
		LastDate:     newest.Date,
	}
}
