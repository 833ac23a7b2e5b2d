package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/boringdede/Snr-Attendance/internal/domain"
	"github.com/boringdede/Snr-Attendance/internal/notify"
	"github.com/boringdede/Snr-Attendance/internal/schedule"
	"github.com/boringdede/Snr-Attendance/internal/store"
)

// reminderLeadM is how long before a slot start the reminder goes out.
const reminderLeadM = 10

// Reminder broadcasts an upcoming-lesson reminder to every registered,
// non-suppressed user once per slot occurrence.
type Reminder struct {
	repo   store.Repo
	index  *schedule.Index
	notify *notify.BestEffort
	loc    *time.Location
	log    *zap.Logger
	sent   *dedup
}

func NewReminder(repo store.Repo, index *schedule.Index, n *notify.BestEffort, loc *time.Location, log *zap.Logger) *Reminder {
	return &Reminder{repo: repo, index: index, notify: n, loc: loc, log: log, sent: newDedup()}
}

func (r *Reminder) name() string { return "reminder" }

func (r *Reminder) tick(ctx context.Context, now time.Time) {
	if _, err := r.Broadcast(ctx, now); err != nil {
		r.log.Error("reminder broadcast failed", zap.Error(err))
	}
}

// Broadcast sends reminders for slots starting within the next ten minutes.
// It returns the number of slots announced.
func (r *Reminder) Broadcast(ctx context.Context, now time.Time) (int, error) {
	now = now.In(r.loc)
	wd := domain.WeekdayOf(now)
	date := now.Format(domain.DateLayout)
	nowM := domain.MinuteOfDay(now)

	slots, err := r.index.SlotsFor(ctx, wd)
	if err != nil {
		return 0, err
	}
	var due []domain.Slot
	for _, s := range slots {
		if nowM < s.StartM-reminderLeadM || nowM >= s.StartM {
			continue
		}
		always, err := r.index.IsAlwaysAvailable(ctx, s.PlaceKey)
		if errors.Is(err, domain.ErrPlaceNotFound) || always {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !r.sent.has(reminderKey(date, wd, s)) {
			due = append(due, s)
		}
	}
	if len(due) == 0 {
		return 0, nil
	}

	// A failed lookup leaves the slots unmarked so the next pass retries.
	recipients, err := r.recipients(ctx)
	if err != nil {
		return 0, err
	}
	for _, s := range due {
		r.sent.mark(reminderKey(date, wd, s))
		text := fmt.Sprintf("⏰ Reminder: lesson at %s starts at %s (in %d min). Don't forget to check in.",
			s.PlaceKey, s.Start(), s.StartM-nowM)
		for _, p := range recipients {
			r.notify.User(p.UserID, text, "reminder")
		}
		r.log.Info("reminder sent", zap.String("place", s.PlaceKey), zap.String("start", s.Start()), zap.Int("recipients", len(recipients)))
	}
	return len(due), nil
}

func reminderKey(date string, wd domain.Weekday, s domain.Slot) slotKey {
	return slotKey{Date: date, Weekday: wd, Place: s.PlaceKey, StartM: s.StartM}
}

func (r *Reminder) recipients(ctx context.Context) ([]domain.Profile, error) {
	profiles, err := r.repo.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	res := profiles[:0]
	for _, p := range profiles {
		if !p.Registered() {
			continue
		}
		suppressed, err := r.repo.IsSuppressed(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		if !suppressed {
			res = append(res, p)
		}
	}
	return res, nil
}
