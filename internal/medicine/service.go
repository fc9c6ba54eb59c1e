package medicine

import (
	"context"
	"encoding/json"
	"time"

	"mediserve-be/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	catalogCacheKey = "medicines:catalog"
	catalogCacheTTL = 30 * time.Second
)

// Service defines the read paths of the medicine catalog plus the
// stock-management entry point.
type Service interface {
	ListMedicines(ctx context.Context) ([]Medicine, error)
	GetMedicine(ctx context.Context, id uint) (*Medicine, error)
	RestockMedicine(ctx context.Context, id uint, amount int) (*Medicine, error)
}

type service struct {
	repo Repository
	rdb  *redis.Client
}

// NewService creates a new catalog service. rdb may be nil, in which case
// the catalog listing is served straight from the database.
func NewService(repo Repository, rdb *redis.Client) Service {
	return &service{repo: repo, rdb: rdb}
}

func (s *service) ListMedicines(ctx context.Context) ([]Medicine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListMedicines"),
	)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, catalogCacheKey).Result()
		if err == nil {
			var medicines []Medicine
			if err := json.Unmarshal([]byte(cached), &medicines); err == nil {
				log.Debug("catalog served from cache",
					zap.Int("count", len(medicines)),
				)
				return medicines, nil
			}
		}
	}

	medicines, err := s.repo.List(ctx)
	if err != nil {
		log.Error("failed to list medicines", zap.Error(err))
		return nil, ErrFailedListMedicines
	}

	if s.rdb != nil {
		if data, err := json.Marshal(medicines); err == nil {
			s.rdb.Set(ctx, catalogCacheKey, data, catalogCacheTTL)
		}
	}

	return medicines, nil
}

func (s *service) GetMedicine(ctx context.Context, id uint) (*Medicine, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMedicineNotFound
	}
	return m, nil
}

func (s *service) RestockMedicine(ctx context.Context, id uint, amount int) (*Medicine, error) {
	if amount <= 0 {
		return nil, ErrInvalidStockAmount
	}

	m, err := s.repo.Restock(ctx, id, amount)
	if err != nil {
		return nil, err
	}

	// Stock changed, the cached listing is stale.
	if s.rdb != nil {
		s.rdb.Del(ctx, catalogCacheKey)
	}

	return m, nil
}
