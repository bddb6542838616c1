package claimlimit

import (
	"strconv"
	"time"
)

// RetryAfterSeconds converte uma espera em segundos inteiros para Retry-After,
// arredondando para cima: "Retry-After: 0" com claim ainda bloqueado faria o
// cliente tentar de novo cedo demais.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func formatSeconds(d time.Duration) string { return strconv.Itoa(RetryAfterSeconds(d)) }

// sem notação científica para valores comuns (ex: 0.02)
func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
