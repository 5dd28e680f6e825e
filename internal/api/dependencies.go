package api

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"savings-circle/rosca/internal/auth"
	"savings-circle/rosca/internal/common"
	"savings-circle/rosca/internal/config"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/db/repositories"
	"savings-circle/rosca/internal/ledger"
	"savings-circle/rosca/internal/metrics"
	"savings-circle/rosca/internal/models/dtos"
	"savings-circle/rosca/internal/models/entities"
	gormModels "savings-circle/rosca/internal/models/gorm"
	"savings-circle/rosca/internal/services"
)

// TurnReserver books payout slots.
type TurnReserver interface {
	Reserve(ctx context.Context, userID, turnID string) (*dtos.ReservationResult, error)
}

// CycleTrigger runs one payout cycle.
type CycleTrigger interface {
	TriggerCycle(ctx context.Context, associationID string) (*dtos.CycleResult, error)
}

// InstallmentPayer applies a member's own installment.
type InstallmentPayer interface {
	Pay(ctx context.Context, userID, associationID string) (*dtos.ContributionResult, error)
}

// AssociationManager is the admin and read side of associations.
type AssociationManager interface {
	Create(ctx context.Context, req dtos.CreateAssociationReq) (*gormModels.Association, error)
	Summary(ctx context.Context, associationID string) (*dtos.AssociationSummary, error)
	TopUp(ctx context.Context, userID string, amount decimal.Decimal) (*dtos.WalletView, error)
}

// PaymentHistory reads the audit trail.
type PaymentHistory interface {
	ListByAssociation(ctx context.Context, associationID string, limit int) ([]entities.PaymentRecord, error)
	Totals(ctx context.Context, associationID string) ([]entities.PaymentTotal, error)
}

type Repositories struct {
	UserGorm *repositories.UserRepositoryGORM
	Payments *repositories.PaymentHistoryRepo
}

type Services struct {
	Cache        common.CacheInterface
	Events       common.CycleEventPublisher
	Tokens       *auth.TokenService
	FeeRecipient *services.FeeRecipientResolver
	Turns        *services.TurnAllocator
	Cycles       *services.CycleOrchestrator
	Installments *services.ContributionApplier
	Associations *services.AssociationService
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Metrics  *metrics.MetricsRegistry

	// Health check targets; Redis is nil when disabled.
	SQL   *sqlx.DB
	Redis *redis.Client
}

// InitDependencies wires repositories and services. redisClient may be nil,
// in which case the in-process cache is used and cycle events are not
// published.
func InitDependencies(
	cfg *config.Config,
	gdb *gorm.DB,
	sqlDB *sqlx.DB,
	redisClient *redis.Client,
	metricsReg *metrics.MetricsRegistry,
) (*Dependencies, error) {

	repos := &Repositories{
		UserGorm: repositories.NewUserRepositoryGORM(gdb),
		Payments: repositories.NewPaymentHistoryRepo(sqlDB),
	}

	var cache common.CacheInterface
	var events common.CycleEventPublisher
	if redisClient != nil {
		cache = common.NewRedisCacheService(redisClient)
		events = common.NewCycleEventStream(redisClient, constants.CycleEventStream, constants.CycleEventStreamMaxLen)
	} else {
		cache = common.NewCacheService(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	l := ledger.New()
	feeRecipient := services.NewFeeRecipientResolver(gdb, cfg.FeeRecipientUserID)

	svcs := &Services{
		Cache:        cache,
		Events:       events,
		Tokens:       auth.NewTokenService([]byte(cfg.JWTSecret)),
		FeeRecipient: feeRecipient,
		Turns:        services.NewTurnAllocator(gdb, l, feeRecipient, cache, metricsReg),
		Cycles:       services.NewCycleOrchestrator(gdb, l, feeRecipient, cache, events, metricsReg),
		Installments: services.NewContributionApplier(gdb, l, feeRecipient, cache, metricsReg),
		Associations: services.NewAssociationService(gdb, l, cache, cfg.CacheTTL, metricsReg),
	}

	return &Dependencies{
		Repo:     repos,
		Services: svcs,
		Metrics:  metricsReg,
		SQL:      sqlDB,
		Redis:    redisClient,
	}, nil
}
