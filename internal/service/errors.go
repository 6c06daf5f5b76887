package service

import "errors"

// Kind классифицирует ошибки бизнес-правил.
type Kind int

const (
	// KindUnexpected непредвиденная ошибка хранилища или окружения.
	KindUnexpected Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidState
	KindInvalidInput
	KindInsufficientFunds
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindInvalidState:
		return "InvalidState"
	case KindInvalidInput:
		return "InvalidInput"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindConflict:
		return "Conflict"
	case KindUnauthorized:
		return "Unauthorized"
	default:
		return "Unexpected"
	}
}

// Error ошибка бизнес-правила: вид для машинной обработки и сообщение для пользователя.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Ошибки жизненного цикла заказа.
var (
	ErrTariffUnavailable   = &Error{Kind: KindNotFound, Message: "tariff not found or inactive"}
	ErrInvalidDuration     = &Error{Kind: KindInvalidInput, Message: "invalid duration"}
	ErrInvalidDomain       = &Error{Kind: KindInvalidInput, Message: "invalid domain name"}
	ErrDomainAlreadyBound  = &Error{Kind: KindInvalidInput, Message: "domain is already bound to another order"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientFunds, Message: "insufficient balance"}
	ErrOrderNotFound       = &Error{Kind: KindNotFound, Message: "order not found"}
	ErrNotOwner            = &Error{Kind: KindForbidden, Message: "order belongs to another user"}
	ErrAlreadyActive       = &Error{Kind: KindInvalidState, Message: "order is already active"}
	ErrNotActive           = &Error{Kind: KindInvalidState, Message: "only an active order can be extended"}
	ErrActiveCannotCancel  = &Error{Kind: KindInvalidState, Message: "an active order cannot be canceled"}
	ErrOrderClosed         = &Error{Kind: KindInvalidState, Message: "order is expired or canceled"}
)

// Ошибки учётных записей.
var (
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrUserExists         = &Error{Kind: KindConflict, Message: "user already exists"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "invalid credentials"}
	ErrInvalidEmail       = &Error{Kind: KindInvalidInput, Message: "invalid email"}
	ErrWeakPassword       = &Error{Kind: KindInvalidInput, Message: "password must be at least 6 characters"}
)

// KindOf возвращает вид ошибки; для ошибок хранилища KindUnexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
