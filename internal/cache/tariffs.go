package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/samandar-uz/fasthost/internal/metrics"
	"github.com/samandar-uz/fasthost/internal/model"
)

const activeTariffsKey = "tariffs:active"

// TariffLister источник списка активных тарифов.
type TariffLister interface {
	ListActiveTariffs(ctx context.Context) ([]model.Tariff, error)
}

// Tariffs кэширует список активных тарифов. Ошибки кэша не прерывают чтение из БД.
type Tariffs struct {
	inner  TariffLister
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewTariffs оборачивает inner кэшем с временем жизни ttl.
func NewTariffs(inner TariffLister, store Store, ttl time.Duration, logger *zap.Logger) *Tariffs {
	return &Tariffs{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// ListActiveTariffs возвращает тарифы из кэша или из источника.
func (c *Tariffs) ListActiveTariffs(ctx context.Context) ([]model.Tariff, error) {
	raw, err := c.store.Get(ctx, activeTariffsKey)
	if err == nil {
		var tariffs []model.Tariff
		if jsonErr := json.Unmarshal(raw, &tariffs); jsonErr == nil {
			metrics.IncCacheRequest("hit")
			return tariffs, nil
		}
	} else if !errors.Is(err, ErrMiss) {
		c.logger.Warn("tariff cache read error", zap.Error(err))
	}

	metrics.IncCacheRequest("miss")
	tariffs, err := c.inner.ListActiveTariffs(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(tariffs); err == nil {
		if err := c.store.Set(ctx, activeTariffsKey, raw, c.ttl); err != nil {
			c.logger.Warn("tariff cache write error", zap.Error(err))
		}
	}

	return tariffs, nil
}
