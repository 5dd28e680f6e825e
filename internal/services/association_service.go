package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/common"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/fees"
	"savings-circle/rosca/internal/ledger"
	"savings-circle/rosca/internal/lifecycle"
	"savings-circle/rosca/internal/logging"
	"savings-circle/rosca/internal/metrics"
	"savings-circle/rosca/internal/models/dtos"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

// AssociationService covers the admin side: creating associations, reading
// their state, and topping up wallets.
type AssociationService struct {
	db       *gorm.DB
	ledger   *ledger.Ledger
	cache    common.CacheInterface
	cacheTTL time.Duration
	metrics  *metrics.MetricsRegistry
}

func NewAssociationService(
	db *gorm.DB,
	l *ledger.Ledger,
	cache common.CacheInterface,
	cacheTTL time.Duration,
	metricsReg *metrics.MetricsRegistry,
) *AssociationService {
	return &AssociationService{
		db:       db,
		ledger:   l,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metricsReg,
	}
}

// Create opens a pending association with one unreserved turn per slot.
func (s *AssociationService) Create(ctx context.Context, req dtos.CreateAssociationReq) (*gormModels.Association, error) {
	if !req.MonthlyAmount.IsPositive() {
		return nil, apperrors.Conflict(constants.ErrCodeInvalidAmount, "monthly amount must be positive")
	}
	if req.Duration < constants.MinAssociationDuration || req.Duration > constants.MaxAssociationDuration {
		return nil, apperrors.Conflict(constants.ErrCodeInvalidAmount,
			fmt.Sprintf("duration must be between %d and %d", constants.MinAssociationDuration, constants.MaxAssociationDuration))
	}
	maxMembers := req.MaxMembers
	if maxMembers == 0 {
		maxMembers = req.Duration
	}
	if maxMembers != req.Duration {
		return nil, apperrors.Conflict(constants.ErrCodeInvalidAmount, "max members must equal duration")
	}

	assoc := &gormModels.Association{
		Name:          req.Name,
		MonthlyAmount: req.MonthlyAmount,
		Duration:      req.Duration,
		MaxMembers:    maxMembers,
		Status:        constants.AssociationPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(assoc).Error; err != nil {
			return apperrors.Internal("create association", err)
		}
		turns := make([]gormModels.Turn, 0, req.Duration)
		for n := 1; n <= req.Duration; n++ {
			turns = append(turns, gormModels.Turn{
				AssociationID: assoc.ID,
				TurnNumber:    n,
				FeeAmount:     fees.ReservationFee(req.Duration, n, req.MonthlyAmount),
			})
		}
		if err := tx.Create(&turns).Error; err != nil {
			return apperrors.Internal("create turns", err)
		}
		assoc.Turns = turns
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info("Association created",
		"association_id", assoc.ID,
		"duration", assoc.Duration,
		"monthly_amount", assoc.MonthlyAmount.String(),
	)
	return assoc, nil
}

// Summary returns the association's current state, served from cache when fresh.
func (s *AssociationService) Summary(ctx context.Context, associationID string) (*dtos.AssociationSummary, error) {
	key := summaryKey(associationID)

	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			if summary, ok := decodeSummary(raw); ok {
				s.cacheHit(true)
				return summary, nil
			}
		}
		s.cacheHit(false)
	}

	summary, err := s.loadSummary(ctx, associationID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			s.cache.Set(key, string(data), s.cacheTTL)
		}
	}
	return summary, nil
}

func (s *AssociationService) loadSummary(ctx context.Context, associationID string) (*dtos.AssociationSummary, error) {
	var assoc gormModels.Association
	err := s.db.WithContext(ctx).
		Preload("Memberships", func(db *gorm.DB) *gorm.DB {
			return db.Order("turn_number")
		}).
		Where("id = ?", associationID).
		First(&assoc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound(constants.ErrCodeAssociationNotFound,
				fmt.Sprintf("association %s not found", associationID))
		}
		return nil, apperrors.Internal("load association", err)
	}

	current, err := lifecycle.CurrentTurnNumber(ctx, s.db, assoc.ID)
	if err != nil {
		return nil, err
	}
	if current > assoc.Duration {
		current = assoc.Duration
	}

	ratios := fees.Ratios(assoc.Duration)
	ratioStrings := make([]string, len(ratios))
	for i, r := range ratios {
		ratioStrings[i] = r.String()
	}

	summary := &dtos.AssociationSummary{
		ID:            assoc.ID,
		Name:          assoc.Name,
		Status:        string(assoc.Status),
		MonthlyAmount: assoc.MonthlyAmount,
		Duration:      assoc.Duration,
		MaxMembers:    assoc.MaxMembers,
		CurrentTurn:   current,
		PoolBalance:   assoc.PoolBalance,
		FeeRatios:     ratioStrings,
		Members:       make([]dtos.MemberSummary, 0, len(assoc.Memberships)),
	}
	for _, m := range assoc.Memberships {
		summary.Members = append(summary.Members, dtos.MemberSummary{
			UserID:          m.UserID,
			TurnNumber:      m.TurnNumber,
			HasReceived:     m.HasReceived,
			RemainingAmount: m.RemainingAmount,
			Status:          string(m.Status),
		})
	}
	return summary, nil
}

// TopUp credits a wallet outside any association.
func (s *AssociationService) TopUp(ctx context.Context, userID string, amount decimal.Decimal) (*dtos.WalletView, error) {
	user, err := s.ledger.Deposit(ctx, s.db, userID, amount)
	if err != nil {
		return nil, err
	}
	logging.Info("Wallet topped up", "user_id", userID, "amount", amount.String())
	return &dtos.WalletView{UserID: user.ID, Balance: user.WalletBalance}, nil
}

// CycleCandidates lists associations a scheduled run should trigger.
func (s *AssociationService) CycleCandidates(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&gormModels.Association{}).
		Where("status IN ?", []constants.AssociationStatus{constants.AssociationPending, constants.AssociationActive}).
		Order("created_at").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, apperrors.Internal("list cycle candidates", err)
	}
	return ids, nil
}

func (s *AssociationService) cacheHit(hit bool) {
	if s.metrics == nil {
		return
	}
	pattern := string(constants.CachePrefixAssociationSummary)
	if hit {
		s.metrics.CacheHitsTotal.WithLabelValues(pattern).Inc()
	} else {
		s.metrics.CacheMissesTotal.WithLabelValues(pattern).Inc()
	}
}

func summaryKey(associationID string) string {
	return string(constants.CachePrefixAssociationSummary) + associationID
}

func invalidateSummary(cache common.CacheInterface, associationID string) {
	if cache == nil {
		return
	}
	cache.Delete(summaryKey(associationID))
}

// decodeSummary accepts what either cache backend hands back: the in-memory
// cache returns the stored string, redis returns it after a JSON round trip.
func decodeSummary(raw interface{}) (*dtos.AssociationSummary, bool) {
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, false
	}
	var summary dtos.AssociationSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}
