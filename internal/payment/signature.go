package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader заголовок с HMAC-подписью уведомления шлюза.
const SignatureHeader = "X-Signature"

// Sign возвращает hex HMAC-SHA256 тела body.
func Sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature проверяет подпись уведомления. Принимается "HMAC <sig>", "HMAC-SHA256 <sig>" или голая подпись.
func VerifySignature(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}

	sig := header
	if strings.HasPrefix(header, "HMAC ") || strings.HasPrefix(header, "HMAC-SHA256 ") {
		parts := strings.SplitN(header, " ", 2)
		sig = parts[1]
	}

	return hmac.Equal([]byte(strings.TrimSpace(sig)), []byte(Sign(secret, body)))
}
