// Package handler содержит HTTP-обработчики JSON API портала.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/samandar-uz/fasthost/internal/middleware"
	"github.com/samandar-uz/fasthost/internal/model"
	"github.com/samandar-uz/fasthost/internal/service"
)

const maxBodyBytes = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, password string) (int64, error)
	AuthenticateUser(ctx context.Context, email, password string) (int64, error)
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	ListTariffs(ctx context.Context) ([]model.Tariff, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*model.Order, error)
	CreateOrder(ctx context.Context, userID int64, in service.CreateOrderInput) (*service.CreatedOrder, error)
	ConfirmPayment(ctx context.Context, paymentID string) error
	ExtendOrder(ctx context.Context, userID, orderID int64, days int) error
	CancelOrder(ctx context.Context, userID, orderID int64) error
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	webhookSecret  string
}

// NewHandler создаёт обработчик. Пустой webhookSecret отключает приём уведомлений об оплате.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, webhookSecret string) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		webhookSecret:  webhookSecret,
	}
}

// envelope единый формат ответов API.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// statusFor сопоставляет вид бизнес-ошибки HTTP-статусу.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindInvalidState, service.KindConflict:
		return http.StatusConflict
	case service.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case service.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает сообщением бизнес-ошибки; непредвиденные ошибки логируются и скрываются от клиента.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	var se *service.Error
	if errors.As(err, &se) {
		writeFail(w, statusFor(se.Kind), se.Message)
		return
	}

	h.logger.Error(op+" error", append(fields, zap.Error(err))...)
	writeFail(w, http.StatusInternalServerError, "internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFail(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	UserID int64 `json:"user_id"`
}

// Register регистрирует пользователя и сразу открывает сессию.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, "register user", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	writeOK(w, "registered", userResponse{UserID: userID})
}

// Login выполняет аутентификацию пользователя и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, "login user", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	writeOK(w, "logged in", userResponse{UserID: userID})
}

// Logout закрывает сессию.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	writeOK(w, "logged out", nil)
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeFail(w, http.StatusUnauthorized, "authentication required")
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeError(w, "get balance", err, zap.Int64("userID", userID))
		return
	}

	writeOK(w, "", balanceResponse{Balance: balance.StringFixed(2)})
}

type tariffResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	DailyPrice string `json:"daily_price"`
}

// ListTariffs возвращает витрину тарифов. Доступно без авторизации.
func (h *Handler) ListTariffs(w http.ResponseWriter, r *http.Request) {
	tariffs, err := h.service.ListTariffs(r.Context())
	if err != nil {
		h.writeError(w, "list tariffs", err)
		return
	}

	resp := make([]tariffResponse, 0, len(tariffs))
	for _, t := range tariffs {
		resp = append(resp, tariffResponse{ID: t.ID, Name: t.Name, DailyPrice: t.Price.StringFixed(2)})
	}
	writeOK(w, "", resp)
}

// Health сообщает, что процесс обслуживает запросы.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, "ok", nil)
}
