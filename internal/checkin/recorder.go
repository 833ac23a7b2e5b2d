package checkin

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boringdede/Snr-Attendance/internal/domain"
	"github.com/boringdede/Snr-Attendance/internal/notify"
	"github.com/boringdede/Snr-Attendance/internal/schedule"
	"github.com/boringdede/Snr-Attendance/internal/store"
)

// Submission is a completed selection plus the reading that closes it.
type Submission struct {
	Profile  domain.Profile
	PlaceKey string
	Slot     domain.Slot
	Action   domain.Action
	Reading  domain.Reading
}

// Outcome is an accepted submission.
type Outcome struct {
	Record  domain.Record
	Verdict domain.Verdict
	Summary string
}

// Recorder evaluates readings and appends attendance records.
type Recorder struct {
	index  *schedule.Index
	repo   store.Repo
	policy domain.Policy
	notify *notify.BestEffort
	loc    *time.Location
	log    *zap.Logger
	newID  func() string
}

func NewRecorder(index *schedule.Index, repo store.Repo, policy domain.Policy, n *notify.BestEffort, loc *time.Location, log *zap.Logger) *Recorder {
	return &Recorder{
		index:  index,
		repo:   repo,
		policy: policy,
		notify: n,
		loc:    loc,
		log:    log,
		newID:  uuid.NewString,
	}
}

// Record evaluates the submission and, when accepted, appends exactly one record
// and relays it to the administrators. Rejections write nothing.
func (r *Recorder) Record(ctx context.Context, sub Submission, now time.Time) (Outcome, error) {
	if sub.Reading.Forwarded {
		return Outcome{}, domain.ErrForwardedLocation
	}
	place, err := r.index.Place(ctx, sub.PlaceKey)
	if err != nil {
		return Outcome{}, err
	}
	now = now.In(r.loc)

	v, err := r.policy.Evaluate(*place, sub.Slot, sub.Reading, sub.Profile.UserID, now, sub.Action)
	if err != nil {
		return Outcome{}, err
	}
	if r.policy.Radius == domain.RadiusStrict && v.InRadius != nil && !*v.InRadius {
		return Outcome{}, &domain.OutsideRadiusError{DistanceM: *v.DistanceM, RadiusM: v.RadiusM}
	}

	rec := domain.Record{
		ID:        r.newID(),
		UserID:    sub.Profile.UserID,
		Name:      sub.Profile.Name,
		Phone:     sub.Profile.Phone,
		Action:    sub.Action,
		PlaceKey:  place.Key,
		PlaceName: place.DisplayName(),
		Date:      now.Format(domain.DateLayout),
		Time:      now.Format(domain.TimeLayout),
		Weekday:   domain.WeekdayOf(now).String(),
		SlotStart: sub.Slot.Start(),
		SlotEnd:   sub.Slot.End(),
		SlotFree:  sub.Slot.Free,
		Lat:       round(sub.Reading.Lat, 6),
		Lon:       round(sub.Reading.Lon, 6),
		InRadius:  v.InRadius,
		OnTime:    v.OnTime,
		Notes:     notes(v),
		CreatedAt: now.UTC(),
	}
	if v.DistanceM != nil {
		rec.DistanceM = domain.Float(round(*v.DistanceM, 2))
	}
	if err := r.repo.AppendRecord(ctx, &rec); err != nil {
		return Outcome{}, fmt.Errorf("append record: %w", err)
	}
	r.log.Info("attendance recorded",
		zap.String("id", rec.ID),
		zap.Int64("user", rec.UserID),
		zap.String("place", rec.PlaceKey),
		zap.String("action", string(rec.Action)),
	)

	grace := r.policy.GraceFor(sub.Profile.UserID, place.Key)
	summary := Summary(rec, grace)
	r.notify.Admins(summary+"\n📞 "+phoneOrDash(rec.Phone), "record relay")
	r.notify.AdminsPin(rec.Lat, rec.Lon, "record pin")

	return Outcome{Record: rec, Verdict: v, Summary: summary}, nil
}

// Summary renders a record for the user and the administrator channel.
func Summary(rec domain.Record, graceMin int) string {
	lines := []string{
		"📍 " + rec.Name,
		"🏫 " + rec.PlaceName,
		"📅 " + rec.Weekday,
		"⏱️ " + rec.Time + " " + rec.Date,
		"🕘 Slot: " + rec.SlotStart + "–" + rec.SlotEnd,
		"🔄 Action: " + rec.Action.Label(),
	}
	switch {
	case rec.InRadius == nil:
		lines = append(lines, "⚠️ Place location is not configured, radius check skipped")
	case *rec.InRadius:
		lines = append(lines, "✅ In radius ("+PrettyMeters(rec.DistanceM)+")")
	default:
		lines = append(lines, "🚫 Outside radius ("+PrettyMeters(rec.DistanceM)+")")
	}
	switch {
	case rec.SlotFree:
		lines = append(lines, "🕘 Any time, timing not verified")
	case rec.OnTime == nil:
		lines = append(lines, "ℹ️ Timing not evaluated")
	case rec.Action == domain.ActionIn && *rec.OnTime:
		lines = append(lines, fmt.Sprintf("✅ On time (due by %s +%d min)", rec.SlotStart, graceMin))
	case rec.Action == domain.ActionIn:
		lines = append(lines, fmt.Sprintf("⏰ Late (due by %s +%d min)", rec.SlotStart, graceMin))
	case *rec.OnTime:
		lines = append(lines, "✅ Left after the slot end")
	default:
		lines = append(lines, "⏰ Left before the slot end ("+rec.SlotEnd+")")
	}
	return strings.Join(lines, "\n")
}

// PrettyMeters renders a distance like "42 m".
func PrettyMeters(d *float64) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%d m", int(math.Round(*d)))
}

func notes(v domain.Verdict) string {
	switch {
	case !v.Verifiable:
		return "unverifiable: place coordinates not configured"
	case v.InRadius != nil && !*v.InRadius:
		return "outside radius"
	}
	return ""
}

func phoneOrDash(p string) string {
	if p == "" {
		return "-"
	}
	return p
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
