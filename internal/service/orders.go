package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samandar-uz/fasthost/internal/credentials"
	"github.com/samandar-uz/fasthost/internal/metrics"
	"github.com/samandar-uz/fasthost/internal/model"
	"github.com/samandar-uz/fasthost/internal/repository"
	"github.com/samandar-uz/fasthost/internal/validation"
)

// CreateOrderInput параметры нового заказа. DomainName необязателен.
type CreateOrderInput struct {
	TariffID     int64
	DurationDays int
	DomainName   string
}

// CreatedOrder результат создания заказа. Password доступен только здесь, в БД хранится хэш.
type CreatedOrder struct {
	Order      model.Order
	Password   string
	PaymentURL string
}

// CreateOrder создаёт заказ в статусе PENDING. Баланс проверяется, но списывается только при подтверждении оплаты.
func (s *Service) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (*CreatedOrder, error) {
	if !validation.IsValidDuration(in.DurationDays, s.maxDuration) {
		return nil, ErrInvalidDuration
	}

	var domain *string
	if strings.TrimSpace(in.DomainName) != "" {
		d, ok := validation.NormalizeDomain(in.DomainName)
		if !ok {
			return nil, ErrInvalidDomain
		}
		domain = &d
	}

	creds, err := credentials.Generate()
	if err != nil {
		return nil, err
	}
	paymentID := uuid.NewString()

	var order model.Order
	err = s.repo.WithTx(ctx, func(tx repository.Tx) error {
		tariff, err := tx.GetTariff(ctx, in.TariffID)
		if err != nil {
			if errors.Is(err, repository.ErrTariffNotFound) {
				return ErrTariffUnavailable
			}
			return err
		}
		if !tariff.Active {
			return ErrTariffUnavailable
		}

		if domain != nil {
			bound, err := tx.DomainBound(ctx, *domain)
			if err != nil {
				return err
			}
			if bound {
				return ErrDomainAlreadyBound
			}
		}

		price := s.pricing.Price(tariff.Price, in.DurationDays)

		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.Balance.LessThan(price) {
			return ErrInsufficientBalance
		}

		order = model.Order{
			UserID:       userID,
			TariffID:     tariff.ID,
			TariffName:   tariff.Name,
			DailyPrice:   tariff.Price,
			DurationDays: in.DurationDays,
			TotalPrice:   price,
			Status:       model.OrderStatusPending,
			Login:        creds.Login,
			PasswordHash: creds.PasswordHash,
			DomainName:   domain,
			PaymentID:    &paymentID,
		}
		order.Start(s.now())

		if err := tx.InsertOrder(ctx, &order); err != nil {
			if errors.Is(err, repository.ErrDomainTaken) {
				return ErrDomainAlreadyBound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncOrderTransition(string(model.OrderStatusPending))
	s.logger.Info("order created",
		zap.Int64("orderID", order.ID),
		zap.Int64("userID", userID),
		zap.String("tariff", order.TariffName),
		zap.String("total", order.TotalPrice.StringFixed(2)),
	)

	res := &CreatedOrder{Order: order, Password: creds.Password}
	if s.gateway != nil {
		inv, err := s.gateway.CreatePayment(ctx, paymentID, order.TotalPrice)
		if err != nil {
			// Заказ уже сохранён, оплату можно подтвердить по paymentID и без ссылки шлюза.
			s.logger.Warn("payment gateway error", zap.Error(err), zap.Int64("orderID", order.ID))
		} else {
			res.PaymentURL = inv.ConfirmationURL
		}
	}

	return res, nil
}

// ConfirmPayment списывает стоимость заказа с баланса и активирует его.
// Период заказа не сдвигается: начало фиксируется при создании и больше не меняется.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID string) error {
	if strings.TrimSpace(paymentID) == "" {
		return ErrOrderNotFound
	}

	var order *model.Order
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		o, err := tx.LockOrderByPaymentID(ctx, paymentID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		switch {
		case o.Status == model.OrderStatusActive:
			return ErrAlreadyActive
		case !o.Status.CanActivate():
			return ErrOrderClosed
		}

		user, err := tx.LockUser(ctx, o.UserID)
		if err != nil {
			return err
		}
		if user.Balance.LessThan(o.TotalPrice) {
			return ErrInsufficientBalance
		}

		if err := tx.UpdateUserBalance(ctx, user.ID, user.Balance.Sub(o.TotalPrice)); err != nil {
			return err
		}

		o.Status = model.OrderStatusActive
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return err
	}

	metrics.IncOrderTransition(string(model.OrderStatusActive))
	s.logger.Info("order activated",
		zap.Int64("orderID", order.ID),
		zap.Int64("userID", order.UserID),
		zap.Time("endTime", order.EndTime),
	)
	return nil
}

// ExtendOrder продлевает активный заказ на days суток, списывая стоимость продления с баланса.
// Стоимость считается по цене тарифа на момент покупки и скидке за сам срок продления.
func (s *Service) ExtendOrder(ctx context.Context, userID, orderID int64, days int) error {
	if !validation.IsValidDuration(days, s.maxDuration) {
		return ErrInvalidDuration
	}

	var order *model.Order
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if o.UserID != userID {
			return ErrNotOwner
		}
		if !o.Status.CanExtend() {
			return ErrNotActive
		}
		if o.DurationDays+days > s.maxDuration {
			return ErrInvalidDuration
		}

		price := s.pricing.Price(o.DailyPrice, days)

		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Balance.LessThan(price) {
			return ErrInsufficientBalance
		}

		if err := tx.UpdateUserBalance(ctx, user.ID, user.Balance.Sub(price)); err != nil {
			return err
		}

		o.Extend(days, price)
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("order extended",
		zap.Int64("orderID", order.ID),
		zap.Int("days", days),
		zap.String("total", order.TotalPrice.StringFixed(2)),
		zap.Time("endTime", order.EndTime),
	)
	return nil
}

// CancelOrder отменяет неоплаченный заказ. Деньги не возвращаются: до оплаты они не списывались.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID int64) error {
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if o.UserID != userID {
			return ErrNotOwner
		}

		switch {
		case o.Status == model.OrderStatusActive:
			return ErrActiveCannotCancel
		case !o.Status.CanCancel():
			return ErrOrderClosed
		}

		o.Status = model.OrderStatusCanceled
		return tx.UpdateOrder(ctx, o)
	})
	if err != nil {
		return err
	}

	metrics.IncOrderTransition(string(model.OrderStatusCanceled))
	s.logger.Info("order canceled", zap.Int64("orderID", orderID), zap.Int64("userID", userID))
	return nil
}

// SweepExpired переводит в EXPIRED активные заказы, срок которых истёк до now, и возвращает их число.
// Каждый заказ обрабатывается в своей транзакции; ошибка по одному заказу не прерывает обход.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	started := time.Now()
	defer func() { metrics.ObserveSweep(time.Since(started)) }()

	expired := 0
	failed := 0
	// Уже просмотренные, но не переведённые заказы исключаются из следующих выборок.
	var skipped []int64

	for {
		ids, err := s.repo.FindActiveExpiredBefore(ctx, now, s.sweepBatch, skipped)
		if err != nil {
			s.logger.Error("sweep query error", zap.Error(err), zap.Int("expired", expired))
			return expired, err
		}

		for _, id := range ids {
			var transitioned bool
			err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
				var err error
				transitioned, err = tx.ExpireOrder(ctx, id, now)
				return err
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return expired, ctxErr
				}
				s.logger.Error("expire order error", zap.Error(err), zap.Int64("orderID", id))
				failed++
				skipped = append(skipped, id)
				continue
			}

			if transitioned {
				expired++
			} else {
				skipped = append(skipped, id)
			}
		}

		if len(ids) < s.sweepBatch {
			break
		}
	}

	if expired > 0 {
		metrics.AddOrdersExpired(expired)
	}
	s.logger.Info("expired orders swept", zap.Int("count", expired), zap.Int("failed", failed))
	return expired, nil
}
