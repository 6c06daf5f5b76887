package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samandar-uz/fasthost/internal/model"
	"github.com/samandar-uz/fasthost/internal/repository"
)

// memStore хранилище в памяти. WithTx работает на копии данных и публикует её только при успехе,
// поэтому ошибка внутри транзакции не оставляет частичных изменений.
type memStore struct {
	mu sync.Mutex

	users   map[int64]model.User
	tariffs map[int64]model.Tariff
	orders  map[int64]model.Order
	nextID  int64

	expireErr map[int64]error
	findCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]model.User{},
		tariffs:   map[int64]model.Tariff{},
		orders:    map[int64]model.Order{},
		nextID:    100,
		expireErr: map[int64]error{},
	}
}

func (m *memStore) Close() error { return nil }

func (m *memStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		store:  m,
		users:  cloneMap(m.users),
		orders: cloneMap(m.orders),
		nextID: m.nextID,
	}
	if err := fn(tx); err != nil {
		return err
	}

	m.users = tx.users
	m.orders = tx.orders
	m.nextID = tx.nextID
	return nil
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *memStore) CreateUser(ctx context.Context, email string, passwordHash []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return 0, repository.ErrUserExists
		}
	}
	m.nextID++
	m.users[m.nextID] = model.User{ID: m.nextID, Email: email, PasswordHash: passwordHash, Balance: decimal.Zero}
	return m.nextID, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) ListActiveTariffs(ctx context.Context) ([]model.Tariff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Tariff
	for _, t := range m.tariffs {
		if t.Active {
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *memStore) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			res = append(res, o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (m *memStore) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (m *memStore) FindActiveExpiredBefore(ctx context.Context, now time.Time, limit int, exclude []int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.findCalls++
	skip := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	var ids []int64
	for _, o := range m.orders {
		if _, ok := skip[o.ID]; ok {
			continue
		}
		if o.Status == model.OrderStatusActive && o.EndTime.Before(now) {
			ids = append(ids, o.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Вспомогательные методы для подготовки данных в тестах.

func (m *memStore) addUser(id int64, balance string) {
	m.users[id] = model.User{ID: id, Email: "user@example.com", Balance: decimal.RequireFromString(balance)}
}

func (m *memStore) addTariff(id int64, price string, active bool) {
	m.tariffs[id] = model.Tariff{ID: id, Name: "Tariff", Price: decimal.RequireFromString(price), Active: active}
}

func (m *memStore) addOrder(o model.Order) {
	m.orders[o.ID] = o
}

func (m *memStore) balance(id int64) decimal.Decimal {
	return m.users[id].Balance
}

type memTx struct {
	store  *memStore
	users  map[int64]model.User
	orders map[int64]model.Order
	nextID int64
}

func (t *memTx) GetTariff(ctx context.Context, id int64) (*model.Tariff, error) {
	tariff, ok := t.store.tariffs[id]
	if !ok {
		return nil, repository.ErrTariffNotFound
	}
	return &tariff, nil
}

func (t *memTx) LockUser(ctx context.Context, id int64) (*model.User, error) {
	u, ok := t.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (t *memTx) UpdateUserBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	u, ok := t.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if balance.IsNegative() {
		return errors.New("balance check constraint violated")
	}
	u.Balance = balance
	t.users[id] = u
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (t *memTx) LockOrderByPaymentID(ctx context.Context, paymentID string) (*model.Order, error) {
	for _, o := range t.orders {
		if o.PaymentID != nil && *o.PaymentID == paymentID {
			return &o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (t *memTx) DomainBound(ctx context.Context, domain string) (bool, error) {
	for _, o := range t.orders {
		if o.DomainName != nil && *o.DomainName == domain {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *model.Order) error {
	t.nextID++
	o.ID = t.nextID
	o.CreatedAt = o.StartTime
	t.orders[o.ID] = *o
	return nil
}

func (t *memTx) UpdateOrder(ctx context.Context, o *model.Order) error {
	if _, ok := t.orders[o.ID]; !ok {
		return repository.ErrOrderNotFound
	}
	t.orders[o.ID] = *o
	return nil
}

func (t *memTx) ExpireOrder(ctx context.Context, id int64, now time.Time) (bool, error) {
	if err := t.store.expireErr[id]; err != nil {
		return false, err
	}
	o, ok := t.orders[id]
	if !ok || o.Status != model.OrderStatusActive || !o.EndTime.Before(now) {
		return false, nil
	}
	o.Status = model.OrderStatusExpired
	t.orders[id] = o
	return true, nil
}
