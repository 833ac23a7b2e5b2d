package store

import (
	"context"
	"errors"

	"github.com/boringdede/Snr-Attendance/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// RecordQuery filters attendance records. Empty fields match everything.
type RecordQuery struct {
	Date     string
	PlaceKey string
	Action   domain.Action
}

// Repo defines storage operations for profiles, places, schedule and records.
// Single-row operations are atomic; ReplaceSchedule is transactional.
type Repo interface {
	GetProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	SaveProfile(ctx context.Context, p *domain.Profile) error
	ListProfiles(ctx context.Context) ([]domain.Profile, error)

	ListPlaces(ctx context.Context) ([]domain.Place, error)
	GetPlace(ctx context.Context, key string) (*domain.Place, error)
	UpsertPlace(ctx context.Context, p domain.Place) error
	// DeletePlace removes the place and every slot referencing it.
	DeletePlace(ctx context.Context, key string) error

	// ListSlots returns the weekday's slots in insertion order.
	ListSlots(ctx context.Context, wd domain.Weekday) ([]domain.Slot, error)
	AddSlot(ctx context.Context, s domain.Slot) (int64, error)
	DeleteSlot(ctx context.Context, wd domain.Weekday, placeKey string, startM int) error
	// ReplaceSchedule swaps all places and slots in one step.
	ReplaceSchedule(ctx context.Context, places []domain.Place, slots []domain.Slot) error

	AppendRecord(ctx context.Context, r *domain.Record) error
	QueryRecords(ctx context.Context, q RecordQuery) ([]domain.Record, error)

	IsSuppressed(ctx context.Context, userID int64) (bool, error)
	SetSuppressed(ctx context.Context, userID int64, suppressed bool) error

	Close() error
}
