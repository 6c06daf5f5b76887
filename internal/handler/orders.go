package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/samandar-uz/fasthost/internal/middleware"
	"github.com/samandar-uz/fasthost/internal/model"
	"github.com/samandar-uz/fasthost/internal/payment"
	"github.com/samandar-uz/fasthost/internal/service"
)

type orderResponse struct {
	ID            int64   `json:"id"`
	TariffID      int64   `json:"tariff_id"`
	TariffName    string  `json:"tariff_name"`
	DailyPrice    string  `json:"daily_price"`
	DurationDays  int     `json:"duration_days"`
	TotalPrice    string  `json:"total_price"`
	Status        string  `json:"status"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	RemainingDays int     `json:"remaining_days"`
	Login         string  `json:"login"`
	DomainName    *string `json:"domain_name,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func newOrderResponse(o model.Order, now time.Time) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		TariffID:     o.TariffID,
		TariffName:   o.TariffName,
		DailyPrice:   o.DailyPrice.StringFixed(2),
		DurationDays: o.DurationDays,
		TotalPrice:   o.TotalPrice.StringFixed(2),
		Status:       string(o.Status),
		StartTime:    o.StartTime.Format(time.RFC3339),
		EndTime:      o.EndTime.Format(time.RFC3339),
		Login:        o.Login,
		DomainName:   o.DomainName,
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
	}
	if o.Status == model.OrderStatusActive {
		resp.RemainingDays = o.RemainingDays(now)
	}
	return resp
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeFail(w, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeFail(w, http.StatusUnauthorized, "authentication required")
	}
	return userID, ok
}

// GetOrders возвращает заказы текущего пользователя, новые первыми.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, "get orders", err, zap.Int64("userID", userID))
		return
	}

	now := time.Now()
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o, now))
	}
	writeOK(w, "", resp)
}

// GetOrder возвращает заказ текущего пользователя.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		h.writeError(w, "get order", err, zap.Int64("orderID", orderID))
		return
	}
	writeOK(w, "", newOrderResponse(*o, time.Now()))
}

type createOrderRequest struct {
	TariffID     int64  `json:"tariff_id"`
	DurationDays int    `json:"duration_days"`
	DomainName   string `json:"domain_name"`
}

type createOrderResponse struct {
	orderResponse
	Password   string `json:"password"`
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url,omitempty"`
}

// CreateOrder оформляет заказ. Пароль хостинга возвращается только в этом ответе.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.CreateOrder(r.Context(), userID, service.CreateOrderInput{
		TariffID:     req.TariffID,
		DurationDays: req.DurationDays,
		DomainName:   req.DomainName,
	})
	if err != nil {
		h.writeError(w, "create order", err, zap.Int64("userID", userID), zap.Int64("tariffID", req.TariffID))
		return
	}

	resp := createOrderResponse{
		orderResponse: newOrderResponse(res.Order, time.Now()),
		Password:      res.Password,
		PaymentURL:    res.PaymentURL,
	}
	if res.Order.PaymentID != nil {
		resp.PaymentID = *res.Order.PaymentID
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "order created", Data: resp})
}

type extendOrderRequest struct {
	Days int `json:"days"`
}

// ExtendOrder продлевает активный заказ.
func (h *Handler) ExtendOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req extendOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ExtendOrder(r.Context(), userID, orderID, req.Days); err != nil {
		h.writeError(w, "extend order", err, zap.Int64("orderID", orderID), zap.Int("days", req.Days))
		return
	}

	h.writeOrder(w, r, userID, orderID, "order extended")
}

// CancelOrder отменяет неоплаченный заказ.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.CancelOrder(r.Context(), userID, orderID); err != nil {
		h.writeError(w, "cancel order", err, zap.Int64("orderID", orderID))
		return
	}

	h.writeOrder(w, r, userID, orderID, "order canceled")
}

func (h *Handler) writeOrder(w http.ResponseWriter, r *http.Request, userID, orderID int64, message string) {
	o, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		// Изменение уже зафиксировано, поэтому отвечаем успехом и без данных.
		h.logger.Warn("reload order error", zap.Error(err), zap.Int64("orderID", orderID))
		writeOK(w, message, nil)
		return
	}
	writeOK(w, message, newOrderResponse(*o, time.Now()))
}

type paymentNotification struct {
	PaymentID string `json:"payment_id"`
}

// ConfirmPayment принимает уведомление шлюза об оплате. Тело должно быть подписано общим секретом.
// Повторное уведомление по уже активному заказу считается успешным.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if !payment.VerifySignature(h.webhookSecret, body, r.Header.Get(payment.SignatureHeader)) {
		h.logger.Warn("payment notification with bad signature", zap.String("remote", r.RemoteAddr))
		writeFail(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var n paymentNotification
	if err := json.Unmarshal(body, &n); err != nil || n.PaymentID == "" {
		writeFail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	err = h.service.ConfirmPayment(r.Context(), n.PaymentID)
	switch {
	case err == nil:
		writeOK(w, "payment confirmed", nil)
	case errors.Is(err, service.ErrAlreadyActive):
		writeOK(w, "payment already confirmed", nil)
	default:
		h.writeError(w, "confirm payment", err, zap.String("paymentID", n.PaymentID))
	}
}
