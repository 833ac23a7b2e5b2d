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

// coverLeadM is how early (minutes before start) a check-in still covers a slot.
const coverLeadM = 30

// LateSweep alerts administrators about slots nobody checked in for.
type LateSweep struct {
	repo    store.Repo
	index   *schedule.Index
	policy  domain.Policy
	notify  *notify.BestEffort
	loc     *time.Location
	log     *zap.Logger
	alerted *dedup
}

func NewLateSweep(repo store.Repo, index *schedule.Index, policy domain.Policy, n *notify.BestEffort, loc *time.Location, log *zap.Logger) *LateSweep {
	return &LateSweep{
		repo:    repo,
		index:   index,
		policy:  policy,
		notify:  n,
		loc:     loc,
		log:     log,
		alerted: newDedup(),
	}
}

func (s *LateSweep) name() string { return "late_sweep" }

func (s *LateSweep) tick(ctx context.Context, now time.Time) {
	if _, err := s.Sweep(ctx, now); err != nil {
		s.log.Error("late sweep failed", zap.Error(err))
	}
}

// Sweep checks today's slots whose grace deadline has passed and raises at most
// one alert per slot occurrence. It returns the number of alerts raised.
func (s *LateSweep) Sweep(ctx context.Context, now time.Time) (int, error) {
	now = now.In(s.loc)
	wd := domain.WeekdayOf(now)
	date := now.Format(domain.DateLayout)
	nowM := domain.MinuteOfDay(now)

	slots, err := s.index.SlotsFor(ctx, wd)
	if err != nil {
		return 0, err
	}
	// A record appended during this scan is either seen now or on the next pass.
	ins, err := s.repo.QueryRecords(ctx, store.RecordQuery{Date: date, Action: domain.ActionIn})
	if err != nil {
		return 0, err
	}

	always := make(map[string]bool)
	alerts := 0
	for _, slot := range slots {
		exempt, known := always[slot.PlaceKey]
		if !known {
			exempt, err = s.index.IsAlwaysAvailable(ctx, slot.PlaceKey)
			if errors.Is(err, domain.ErrPlaceNotFound) {
				exempt, err = true, nil
			}
			if err != nil {
				return alerts, err
			}
			always[slot.PlaceKey] = exempt
		}
		if exempt {
			continue
		}

		if slot.StartM+s.policy.MaxGraceForPlace(slot.PlaceKey) > nowM {
			continue
		}
		key := slotKey{Date: date, Weekday: wd, Place: slot.PlaceKey, StartM: slot.StartM}
		if s.alerted.has(key) {
			continue
		}
		if s.covered(ins, slot) {
			s.alerted.mark(key)
			continue
		}
		if !s.alerted.mark(key) {
			continue
		}
		alerts++
		s.log.Info("late alert", zap.String("place", slot.PlaceKey), zap.String("start", slot.Start()), zap.String("date", date))
		s.notify.Admins(fmt.Sprintf("⚠️ No check-in at %s %s (%s, %s)", slot.PlaceKey, slot.Start(), wd, date), "late alert")
	}
	return alerts, nil
}

// covered reports whether an in-radius check-in falls in
// [start-30min, start+grace], grace resolved for the record's user.
// Unverifiable readings count as covering.
func (s *LateSweep) covered(ins []domain.Record, slot domain.Slot) bool {
	from := slot.StartM - coverLeadM
	for _, r := range ins {
		if r.PlaceKey != slot.PlaceKey || r.Action != domain.ActionIn {
			continue
		}
		if r.InRadius != nil && !*r.InRadius {
			continue
		}
		to := slot.StartM + s.policy.GraceFor(r.UserID, slot.PlaceKey)
		if m := r.MinuteOfDay(); m >= from && m <= to {
			return true
		}
	}
	return false
}
