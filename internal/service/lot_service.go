package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AlfilAlex/taller-upy/internal/domain"
	"github.com/AlfilAlex/taller-upy/internal/store"
)

var (
	// ErrAlreadyReserved is returned when the lot has left the OPEN state.
	ErrAlreadyReserved = errors.New("lot already reserved")
	// ErrSelfReservation is returned when a generator tries to reserve
	// their own lot.
	ErrSelfReservation = errors.New("cannot reserve your own lot")
)

// lotRepository is the subset of store.LotStore that LotService requires.
type lotRepository interface {
	Create(ctx context.Context, lot *domain.Lot) error
	GetByID(ctx context.Context, id string) (*domain.Lot, error)
	List(ctx context.Context, status domain.Status, day string, material domain.Material) ([]*domain.Lot, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Lot, error)
	ListByReceiver(ctx context.Context, receiverID string, status domain.Status) ([]*domain.Lot, error)
	ConditionalUpdate(ctx context.Context, id string, patch domain.Patch, pred domain.Predicate) (*domain.Lot, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// PublishInput is the caller-supplied part of a new lot. Identity and
// lifecycle fields (id, ownerId, status, timestamps, day bucket) are
// always assigned server-side.
type PublishInput struct {
	Material  domain.Material
	Condition domain.Condition
	WeightKg  float64
	Scheme    domain.Scheme
	Price     float64
	Address   domain.Address
	Images    []string
	ExpiresAt int64
}

// LotService implements the lot lifecycle: publish, list, reserve.
type LotService struct {
	lots      lotRepository
	minImages int
	now       func() time.Time
	logger    *slog.Logger
}

func NewLotService(lots lotRepository, minImages int, logger *slog.Logger) *LotService {
	return &LotService{
		lots:      lots,
		minImages: minImages,
		now:       time.Now,
		logger:    logger,
	}
}

// Publish validates the input and persists a new lot owned by callerID.
// The lot always starts OPEN; any owner or status supplied by the client
// never reaches this point.
func (s *LotService) Publish(ctx context.Context, in PublishInput, callerID string) (*domain.Lot, error) {
	now := s.now().UTC()

	lot := &domain.Lot{
		ID:         uuid.NewString(),
		Material:   in.Material,
		Condition:  in.Condition,
		WeightKg:   in.WeightKg,
		Scheme:     in.Scheme,
		Price:      in.Price,
		Status:     domain.StatusOpen,
		OwnerID:    callerID,
		Address:    in.Address,
		Images:     in.Images,
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedDay: domain.DayBucket(now),
		ExpiresAt:  in.ExpiresAt,
	}
	if lot.Condition == "" {
		lot.Condition = domain.DefaultCondition
	}
	if lot.Address.City == "" {
		lot.Address.City = domain.DefaultCity
	}

	// Fail fast: nothing is written unless the whole lot is valid.
	if err := lot.Validate(s.minImages); err != nil {
		return nil, err
	}

	if err := s.lots.Create(ctx, lot); err != nil {
		return nil, err
	}
	s.logger.Info("lot published",
		"lot_id", lot.ID,
		"owner_id", lot.OwnerID,
		"material", lot.Material,
		"scheme", lot.Scheme,
	)
	return lot, nil
}

// List returns lots filtered by status, day bucket and/or material.
// Expired records are purged opportunistically on the way in.
func (s *LotService) List(ctx context.Context, status domain.Status, day string, material domain.Material) ([]*domain.Lot, error) {
	if n, err := s.lots.PurgeExpired(ctx, s.now()); err != nil {
		s.logger.Warn("failed to purge expired lots", "error", err)
	} else if n > 0 {
		s.logger.Debug("purged expired lots", "count", n)
	}
	return s.lots.List(ctx, status, day, material)
}

// Get returns a single lot by id.
func (s *LotService) Get(ctx context.Context, lotID string) (*domain.Lot, error) {
	return s.lots.GetByID(ctx, lotID)
}

// ListByOwner returns the caller's publications, newest first.
func (s *LotService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Lot, error) {
	return s.lots.ListByOwner(ctx, ownerID)
}

// ListByReceiver returns the lots the caller has reserved.
func (s *LotService) ListByReceiver(ctx context.Context, receiverID string, status domain.Status) ([]*domain.Lot, error) {
	return s.lots.ListByReceiver(ctx, receiverID, status)
}

// Reserve moves an OPEN lot to LOCKED and binds callerID as its receiver.
// The status and ownership checks ride in the store's conditional update,
// so when two receivers race, at most one wins; the loser sees
// ErrAlreadyReserved. No retry is attempted here.
func (s *LotService) Reserve(ctx context.Context, lotID, callerID string) (*domain.Lot, error) {
	locked := domain.StatusLocked
	open := domain.StatusOpen

	lot, err := s.lots.ConditionalUpdate(ctx, lotID,
		domain.Patch{Status: &locked, ReceiverID: &callerID},
		domain.Predicate{StatusEquals: &open, OwnerNot: &callerID},
	)
	if err == nil {
		s.logger.Info("lot reserved", "lot_id", lotID, "receiver_id", callerID)
		return lot, nil
	}
	if !errors.Is(err, store.ErrPreconditionFailed) {
		return nil, err
	}

	// The guarded write is the only mutation; this read only classifies
	// why it was rejected.
	current, gerr := s.lots.GetByID(ctx, lotID)
	if gerr != nil {
		return nil, gerr
	}
	if current.Status != domain.StatusOpen {
		return nil, fmt.Errorf("lot %s: %w", lotID, ErrAlreadyReserved)
	}
	if current.OwnerID == callerID {
		return nil, fmt.Errorf("lot %s: %w", lotID, ErrSelfReservation)
	}
	// The lot went back into a reservable state between the write and the
	// read; the caller lost this attempt regardless.
	return nil, fmt.Errorf("lot %s: %w", lotID, ErrAlreadyReserved)
}
