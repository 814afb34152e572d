// Package retry kapselt Wiederholungen mit exponentiellem Backoff.
// Genutzt für den arXiv-Abruf und für Lese-Queries gegen die Datenbank.
package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Config steuert das Backoff-Verhalten eines Do-Aufrufs.
type Config struct {
	// Attempts ist die Gesamtzahl der Versuche inklusive des ersten.
	Attempts int
	// BaseDelay ist die Wartezeit nach dem ersten Fehlversuch.
	BaseDelay time.Duration
	// Multiplier streckt die Wartezeit nach jedem weiteren Fehlversuch.
	Multiplier float64
	// MaxDelay deckelt die einzelne Wartezeit.
	MaxDelay time.Duration
}

// DefaultConfig liefert die Standard-Policy: 3 Versuche, Wartezeiten
// 4s und 8s, gedeckelt bei 10s.
func DefaultConfig() Config {
	return Config{
		Attempts:   3,
		BaseDelay:  4 * time.Second,
		Multiplier: 2,
		MaxDelay:   10 * time.Second,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent markiert einen Fehler als nicht wiederholbar, z.B. eine
// 4xx-Antwort. Do gibt solche Fehler sofort zurück.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do führt op aus und wiederholt bei transienten Fehlern gemäß cfg.
// Nach Ausschöpfen aller Versuche wird der letzte Fehler zurückgegeben.
// Ein abgebrochener Context beendet das Warten sofort.
func Do[T any](ctx context.Context, cfg Config, log *zap.Logger, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if cfg.Attempts <= 0 {
		cfg = DefaultConfig()
	}

	delay := cfg.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}

		lastErr = err
		if attempt == cfg.Attempts {
			break
		}

		wait := delay
		if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}
		if log != nil {
			log.Warn("Operation failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", cfg.Attempts),
				zap.Duration("wait", wait),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}

	return zero, lastErr
}
