// Package notify defines outbound messaging used by the core.
package notify

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Notifier delivers messages to users and to the administrator channels.
// telegram.Sender implements it.
type Notifier interface {
	SendMessage(chatID int64, text string) error
	SendAdmins(text string) error
	SendAdminsLocation(lat, lon float64) error
}

// BestEffort wraps a Notifier so delivery failures never reach the caller.
// Failures are logged and counted.
type BestEffort struct {
	n        Notifier
	log      *zap.Logger
	failures atomic.Int64
}

func NewBestEffort(n Notifier, log *zap.Logger) *BestEffort {
	return &BestEffort{n: n, log: log}
}

func (b *BestEffort) User(chatID int64, text, purpose string) {
	if err := b.n.SendMessage(chatID, text); err != nil {
		b.fail(err, purpose, zap.Int64("chatID", chatID))
	}
}

func (b *BestEffort) Admins(text, purpose string) {
	if err := b.n.SendAdmins(text); err != nil {
		b.fail(err, purpose, zap.String("target", "admins"))
	}
}

func (b *BestEffort) AdminsPin(lat, lon float64, purpose string) {
	if err := b.n.SendAdminsLocation(lat, lon); err != nil {
		b.fail(err, purpose, zap.String("target", "admins"))
	}
}

// Failures returns how many deliveries failed since start.
func (b *BestEffort) Failures() int64 { return b.failures.Load() }

func (b *BestEffort) fail(err error, purpose string, target zap.Field) {
	b.failures.Add(1)
	b.log.Warn("notification failed", zap.Error(err), zap.String("purpose", purpose), target)
}
