// Package validation содержит функции валидации входных данных.
package validation

import "strings"

// MaxDurationDays верхняя граница срока заказа в сутках (три года).
const MaxDurationDays = 1095

// IsValidDuration проверяет, что срок лежит в диапазоне 1..max.
func IsValidDuration(days, max int) bool {
	return days > 0 && days <= max
}

// NormalizeDomain приводит доменное имя к нижнему регистру и проверяет его по правилам RFC 1035.
func NormalizeDomain(domain string) (string, bool) {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimSuffix(d, ".")

	if d == "" || len(d) > 253 {
		return "", false
	}

	labels := strings.Split(d, ".")
	if len(labels) < 2 {
		return "", false
	}

	for _, label := range labels {
		if !isValidLabel(label) {
			return "", false
		}
	}

	// Домен верхнего уровня не может быть числовым.
	tld := labels[len(labels)-1]
	if strings.Trim(tld, "0123456789") == "" {
		return "", false
	}

	return d, true
}

func isValidLabel(label string) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}

	for i := 0; i < len(label); i++ {
		ch := label[i]
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= '0' && ch <= '9':
		case ch == '-':
		default:
			return false
		}
	}

	return true
}
