// Package service реализует бизнес-логику биллинга: учётные записи и жизненный цикл заказов.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/samandar-uz/fasthost/internal/credentials"
	"github.com/samandar-uz/fasthost/internal/model"
	"github.com/samandar-uz/fasthost/internal/payment"
	"github.com/samandar-uz/fasthost/internal/pricing"
	"github.com/samandar-uz/fasthost/internal/repository"
	"github.com/samandar-uz/fasthost/internal/validation"
)

const minPasswordLength = 6

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	WithTx(ctx context.Context, fn func(tx repository.Tx) error) error
	CreateUser(ctx context.Context, email string, passwordHash []byte) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	FindActiveExpiredBefore(ctx context.Context, now time.Time, limit int, exclude []int64) ([]int64, error)
}

// TariffCatalog источник списка тарифов для витрины.
type TariffCatalog interface {
	ListActiveTariffs(ctx context.Context) ([]model.Tariff, error)
}

// PaymentGateway регистрирует платёж во внешнем шлюзе.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, orderRef string, amount decimal.Decimal) (*payment.Invoice, error)
}

// Clock источник текущего времени.
type Clock interface {
	Now() time.Time
}

// ClockFunc позволяет использовать функцию как Clock.
type ClockFunc func() time.Time

// Now возвращает результат вызова f.
func (f ClockFunc) Now() time.Time { return f() }

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithPricing подменяет таблицу скидок.
func WithPricing(t pricing.Table) Option {
	return func(s *Service) { s.pricing = t }
}

// WithPaymentGateway включает регистрацию платежей во внешнем шлюзе.
func WithPaymentGateway(g PaymentGateway) Option {
	return func(s *Service) { s.gateway = g }
}

// Service содержит бизнес-логику портала.
type Service struct {
	repo        Repository
	tariffs     TariffCatalog
	gateway     PaymentGateway
	clock       Clock
	pricing     pricing.Table
	maxDuration int
	sweepBatch  int
	logger      *zap.Logger
}

// NewService создаёт сервис. Если tariffs равен nil, каталог читается из репозитория.
func NewService(repo Repository, tariffs TariffCatalog, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		tariffs:     tariffs,
		clock:       ClockFunc(time.Now),
		pricing:     pricing.DefaultTable,
		maxDuration: validation.MaxDurationDays,
		sweepBatch:  500,
		logger:      logger,
	}
	if s.tariffs == nil {
		if c, ok := repo.(TariffCatalog); ok {
			s.tariffs = c
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (int64, error) {
	email, ok := normalizeEmail(email)
	if !ok {
		return 0, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return 0, ErrWeakPassword
	}

	hashed, err := credentials.HashPassword(password)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.CreateUser(ctx, email, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, ErrUserExists
		}
		return 0, err
	}

	s.logger.Info("user registered", zap.Int64("userID", id))
	return id, nil
}

// AuthenticateUser проверяет email и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (int64, error) {
	email, ok := normalizeEmail(email)
	if !ok {
		return 0, ErrInvalidCredentials
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	if !credentials.CheckPassword(u.PasswordHash, password) {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

func normalizeEmail(email string) (string, bool) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

// GetBalance возвращает баланс пользователя.
func (s *Service) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, err
	}
	return u.Balance, nil
}

// ListTariffs возвращает тарифы, доступные для покупки.
func (s *Service) ListTariffs(ctx context.Context) ([]model.Tariff, error) {
	if s.tariffs == nil {
		return nil, fmt.Errorf("tariff catalog not configured")
	}
	return s.tariffs.ListActiveTariffs(ctx)
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (s *Service) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// GetOrder возвращает заказ, если он принадлежит пользователю.
func (s *Service) GetOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	return o, nil
}
