// Package model содержит доменные сущности биллинга хостинга.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет зарегистрированного клиента портала.
type User struct {
	ID           int64
	Email        string
	PasswordHash []byte
	Balance      decimal.Decimal
	CreatedAt    time.Time
}

// Tariff описывает тарифный план хостинга с ценой за сутки.
type Tariff struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Active bool            `json:"active"`
}

// OrderStatus описывает состояние заказа.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusActive   OrderStatus = "ACTIVE"
	OrderStatusExpired  OrderStatus = "EXPIRED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// IsTerminal сообщает, что из статуса нет переходов.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusExpired || s == OrderStatusCanceled
}

// CanActivate сообщает, допустима ли активация после оплаты.
func (s OrderStatus) CanActivate() bool {
	return s == OrderStatusPending
}

// CanExtend сообщает, допустимо ли продление.
func (s OrderStatus) CanExtend() bool {
	return s == OrderStatusActive
}

// CanCancel сообщает, допустима ли отмена. Активный заказ отменить нельзя.
func (s OrderStatus) CanCancel() bool {
	return s == OrderStatusPending
}

// Order описывает оплаченный (или ожидающий оплаты) период хостинга.
type Order struct {
	ID           int64
	UserID       int64
	TariffID     int64
	TariffName   string
	DailyPrice   decimal.Decimal
	DurationDays int
	TotalPrice   decimal.Decimal
	Status       OrderStatus
	StartTime    time.Time
	EndTime      time.Time
	Login        string
	PasswordHash []byte
	DomainName   *string
	PaymentID    *string
	CreatedAt    time.Time
}

// EndOf возвращает момент окончания периода длиной days суток от start.
func EndOf(start time.Time, days int) time.Time {
	return start.AddDate(0, 0, days)
}

// Start фиксирует начало периода и пересчитывает его окончание.
func (o *Order) Start(at time.Time) {
	o.StartTime = at
	o.EndTime = EndOf(at, o.DurationDays)
}

// Extend добавляет days суток к сроку заказа и price к его стоимости.
func (o *Order) Extend(days int, price decimal.Decimal) {
	o.DurationDays += days
	o.EndTime = EndOf(o.StartTime, o.DurationDays)
	o.TotalPrice = o.TotalPrice.Add(price)
}

// IsExpiredAt сообщает, истёк ли период к моменту now.
func (o *Order) IsExpiredAt(now time.Time) bool {
	return o.EndTime.Before(now)
}

// RemainingDays возвращает число полных суток до окончания периода.
func (o *Order) RemainingDays(now time.Time) int {
	if !o.EndTime.After(now) {
		return 0
	}
	return int(o.EndTime.Sub(now) / (24 * time.Hour))
}
