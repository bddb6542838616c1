package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStorageWrite indica que o histórico não pôde ser gravado.
	ErrStorageWrite = errors.New("claim history write failed")
	// ErrClaimLimited indica que o cliente já fez um claim dentro da janela.
	ErrClaimLimited = errors.New("claim limit reached")
	// ErrAccountNotFound indica que a conta pedida não existe.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidAccount indica uma conta sem os campos obrigatórios.
	ErrInvalidAccount = errors.New("invalid account")
)

// LimitedError carrega o tempo de espera sugerido junto com ErrClaimLimited.
type LimitedError struct {
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("you can only claim one account every %s", formatWindow(e.Window))
}

func (e *LimitedError) Unwrap() error { return ErrClaimLimited }

func formatWindow(d time.Duration) string {
	if d > 0 && d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
