// Package checkin drives the check-in conversation independently of the chat transport.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/boringdede/Snr-Attendance/internal/domain"
	"github.com/boringdede/Snr-Attendance/internal/schedule"
	"github.com/boringdede/Snr-Attendance/internal/store"
)

// Flow advances per-user sessions. Every method returns the reply to show; a
// non-nil error means an unexpected failure (storage) and the session is kept.
type Flow struct {
	repo     store.Repo
	index    *schedule.Index
	sessions Sessions
	recorder *Recorder
	loc      *time.Location
	log      *zap.Logger
}

func NewFlow(repo store.Repo, index *schedule.Index, sessions Sessions, recorder *Recorder, loc *time.Location, log *zap.Logger) *Flow {
	return &Flow{repo: repo, index: index, sessions: sessions, recorder: recorder, loc: loc, log: log}
}

// Phase returns the user's current phase.
func (f *Flow) Phase(userID int64) Phase { return f.sessions.Get(userID).Phase }

// --- Onboarding ---

// Start resumes a suppressed user and either begins onboarding or shows the menu.
func (f *Flow) Start(ctx context.Context, userID int64) (Reply, error) {
	if err := f.repo.SetSuppressed(ctx, userID, false); err != nil {
		return Reply{}, err
	}
	p, err := f.profile(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	switch {
	case p == nil:
		f.sessions.Put(userID, Session{Phase: PhaseNeedName})
		return Reply{Text: askNameText, Keyboard: RemoveKeyboard}, nil
	case p.Phone == "":
		f.sessions.Put(userID, Session{Phase: PhaseNeedContact})
		return Reply{Text: fmt.Sprintf(askContactFmt, p.Name), Keyboard: ContactRequest}, nil
	}
	f.sessions.Put(userID, idle())
	return Reply{Text: fmt.Sprintf(greetingFmt, p.Name), Keyboard: MainMenu}, nil
}

// Stop suppresses every further event from the user until Start.
func (f *Flow) Stop(ctx context.Context, userID int64) (Reply, error) {
	if err := f.repo.SetSuppressed(ctx, userID, true); err != nil {
		return Reply{}, err
	}
	f.sessions.Reset(userID)
	return Reply{Text: stoppedText, Keyboard: RemoveKeyboard}, nil
}

// Contact stores the phone of a user waiting for it. Only the sender's own
// contact is accepted.
func (f *Flow) Contact(ctx context.Context, userID, contactUserID int64, phone string) (Reply, error) {
	p, err := f.profile(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	switch {
	case p == nil:
		f.sessions.Put(userID, Session{Phase: PhaseNeedName})
		return Reply{Text: askNameText, Keyboard: RemoveKeyboard}, nil
	case p.Registered():
		return Reply{Text: profileExistsText, Keyboard: MainMenu}, nil
	case contactUserID != userID || strings.TrimSpace(phone) == "":
		return Reply{Text: contactButtonText, Keyboard: ContactRequest}, nil
	}
	p.Phone = strings.TrimSpace(phone)
	if err := f.repo.SaveProfile(ctx, p); err != nil {
		return Reply{}, err
	}
	f.sessions.Put(userID, idle())
	return Reply{Text: fmt.Sprintf(profileSavedFmt, p.Name, p.Phone), Keyboard: MainMenu}, nil
}

// Text handles free-form text. Input outside its expected phase re-prompts and
// never advances the session.
func (f *Flow) Text(ctx context.Context, userID int64, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == ButtonBack {
		return f.Back(userID), nil
	}
	sess := f.sessions.Get(userID)
	if sess.Phase != PhaseNeedName {
		return f.reprompt(sess), nil
	}

	p, err := f.profile(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	if p != nil {
		// names are immutable once set
		return f.Start(ctx, userID)
	}
	if !validName(text) {
		return Reply{Text: badNameText, Keyboard: RemoveKeyboard}, nil
	}
	if err := f.repo.SaveProfile(ctx, &domain.Profile{UserID: userID, Name: text}); err != nil {
		return Reply{}, err
	}
	f.sessions.Put(userID, Session{Phase: PhaseNeedContact})
	return Reply{Text: fmt.Sprintf(askContactFmt, text), Keyboard: ContactRequest}, nil
}

// Back discards selections and returns to Idle.
func (f *Flow) Back(userID int64) Reply {
	f.sessions.Put(userID, idle())
	return Reply{Text: menuText, Keyboard: MainMenu}
}

// --- Check-in ---

// RequestCheckin offers today's active places.
func (f *Flow) RequestCheckin(ctx context.Context, userID int64, now time.Time) (Reply, error) {
	p, err := f.profile(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	if !p.Registered() {
		return Reply{Text: needProfileText}, nil
	}
	keys, err := f.index.PlacesActiveToday(ctx, domain.WeekdayOf(now.In(f.loc)))
	if err != nil {
		return Reply{}, err
	}
	if len(keys) == 0 {
		f.sessions.Put(userID, idle())
		return Reply{Text: nothingTodayText, Keyboard: MainMenu}, nil
	}
	f.sessions.Put(userID, Session{Phase: PhasePickingPlace, Places: keys})
	return Reply{Text: pickPlaceText, Keyboard: Choices, Options: placeOptions(keys)}, nil
}

// SelectPlace picks a candidate place by index.
func (f *Flow) SelectPlace(ctx context.Context, userID int64, idx int, now time.Time) (Reply, error) {
	sess := f.sessions.Get(userID)
	if sess.Phase != PhasePickingPlace || idx < 0 || idx >= len(sess.Places) {
		return f.stale(sess), nil
	}
	key := sess.Places[idx]
	always, err := f.index.IsAlwaysAvailable(ctx, key)
	if errors.Is(err, domain.ErrPlaceNotFound) {
		f.sessions.Put(userID, idle())
		return Reply{Text: placeGoneText, Keyboard: MainMenu}, nil
	}
	if err != nil {
		return Reply{}, err
	}

	wd := domain.WeekdayOf(now.In(f.loc))
	if always {
		slot := domain.FullDaySlot(wd, key)
		f.sessions.Put(userID, Session{Phase: PhasePickingAction, Place: key, Slot: &slot})
		return Reply{Text: fmt.Sprintf(pickActionFmt, key, slot.Label()), Keyboard: Choices, Options: actionOptions()}, nil
	}

	slots, err := f.index.SlotsForPlace(ctx, wd, key)
	if err != nil {
		return Reply{}, err
	}
	if len(slots) == 0 {
		f.sessions.Put(userID, idle())
		return Reply{Text: fmt.Sprintf(noSlotsFmt, key), Keyboard: MainMenu}, nil
	}
	f.sessions.Put(userID, Session{Phase: PhasePickingSlot, Place: key, Slots: slots})
	return Reply{Text: fmt.Sprintf(pickSlotFmt, key), Keyboard: Choices, Options: slotOptions(slots)}, nil
}

// SelectSlot picks a candidate slot by index.
func (f *Flow) SelectSlot(userID int64, idx int) Reply {
	sess := f.sessions.Get(userID)
	if sess.Phase != PhasePickingSlot || idx < 0 || idx >= len(sess.Slots) {
		return f.stale(sess)
	}
	slot := sess.Slots[idx]
	f.sessions.Put(userID, Session{Phase: PhasePickingAction, Place: sess.Place, Slot: &slot})
	return Reply{Text: fmt.Sprintf(pickActionFmt, sess.Place, slot.Label()), Keyboard: Choices, Options: actionOptions()}
}

// SelectAction fixes check-in or check-out and asks for a location.
func (f *Flow) SelectAction(userID int64, action domain.Action) Reply {
	sess := f.sessions.Get(userID)
	if sess.Phase != PhasePickingAction || sess.Slot == nil {
		return f.stale(sess)
	}
	if action != domain.ActionIn && action != domain.ActionOut {
		return f.reprompt(sess)
	}
	next := Session{Phase: PhaseAwaitingLocation, Place: sess.Place, Slot: sess.Slot, Action: action}
	f.sessions.Put(userID, next)
	return Reply{Text: fmt.Sprintf(askLocationFmt, action.Label(), sess.Place), Keyboard: LocationRequest}
}

// Location closes the flow. Rejected readings keep the session in
// AwaitingLocation and write nothing.
func (f *Flow) Location(ctx context.Context, userID int64, r domain.Reading, now time.Time) (Reply, error) {
	sess := f.sessions.Get(userID)
	if sess.Phase != PhaseAwaitingLocation || sess.Slot == nil {
		return Reply{}, nil
	}
	if r.Forwarded {
		return Reply{Text: forwardedText, Keyboard: LocationRequest}, nil
	}
	p, err := f.profile(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	if p == nil {
		f.sessions.Put(userID, Session{Phase: PhaseNeedName})
		return Reply{Text: askNameText, Keyboard: RemoveKeyboard}, nil
	}

	out, err := f.recorder.Record(ctx, Submission{
		Profile:  *p,
		PlaceKey: sess.Place,
		Slot:     *sess.Slot,
		Action:   sess.Action,
		Reading:  r,
	}, now)
	var outside *domain.OutsideRadiusError
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrForwardedLocation):
		return Reply{Text: forwardedText, Keyboard: LocationRequest}, nil
	case errors.Is(err, domain.ErrInvalidLocation):
		return Reply{Text: invalidLocText, Keyboard: LocationRequest}, nil
	case errors.As(err, &outside):
		text := fmt.Sprintf(outsideRadiusFmt, PrettyMeters(&outside.DistanceM), sess.Place, PrettyMeters(&outside.RadiusM))
		return Reply{Text: text, Keyboard: LocationRequest}, nil
	case errors.Is(err, domain.ErrPlaceNotFound):
		f.sessions.Put(userID, idle())
		return Reply{Text: placeGoneText, Keyboard: MainMenu}, nil
	default:
		return Reply{}, err
	}

	f.sessions.Put(userID, idle())
	return Reply{Text: out.Summary, Keyboard: MainMenu}, nil
}

// --- Read-only views ---

// Today lists today's slots.
func (f *Flow) Today(ctx context.Context, now time.Time) (Reply, error) {
	wd := domain.WeekdayOf(now.In(f.loc))
	slots, err := f.index.SlotsFor(ctx, wd)
	if err != nil {
		return Reply{}, err
	}
	lines := []string{fmt.Sprintf(todayTitleFmt, wd)}
	if len(slots) == 0 {
		lines = append(lines, todayEmptyText)
	}
	for _, s := range slots {
		lines = append(lines, "• "+s.PlaceKey+": "+s.Label())
	}
	return Reply{Text: strings.Join(lines, "\n")}, nil
}

// Profile shows the stored profile, falling back to the chat display name.
func (f *Flow) Profile(ctx context.Context, userID int64, fallbackName string) (Reply, error) {
	p, err := f.profile(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	if p == nil {
		p = &domain.Profile{Name: fallbackName}
	}
	return Reply{Text: fmt.Sprintf(profileFmt, p.Name, phoneOrDash(p.Phone))}, nil
}

// --- helpers ---

func (f *Flow) profile(ctx context.Context, userID int64) (*domain.Profile, error) {
	p, err := f.repo.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// reprompt repeats the input the current phase expects.
func (f *Flow) reprompt(sess Session) Reply {
	switch sess.Phase {
	case PhaseNeedName:
		return Reply{Text: badNameText, Keyboard: RemoveKeyboard}
	case PhaseNeedContact:
		return Reply{Text: contactButtonText, Keyboard: ContactRequest}
	case PhasePickingPlace:
		return Reply{Text: pickPlaceText, Keyboard: Choices, Options: placeOptions(sess.Places)}
	case PhasePickingSlot:
		return Reply{Text: fmt.Sprintf(pickSlotFmt, sess.Place), Keyboard: Choices, Options: slotOptions(sess.Slots)}
	case PhasePickingAction:
		return Reply{Text: fmt.Sprintf(pickActionFmt, sess.Place, sess.Slot.Label()), Keyboard: Choices, Options: actionOptions()}
	case PhaseAwaitingLocation:
		return Reply{Text: locationButtonText, Keyboard: LocationRequest}
	}
	return Reply{}
}

// stale answers a button pressed outside its phase.
func (f *Flow) stale(sess Session) Reply {
	if r := f.reprompt(sess); !r.Empty() {
		return r
	}
	return Reply{Text: staleMenuText, Keyboard: MainMenu}
}

func validName(s string) bool {
	return utf8.RuneCountInString(s) >= 3 && strings.Contains(s, " ")
}
