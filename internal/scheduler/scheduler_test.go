package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boringdede/Snr-Attendance/internal/domain"
	"github.com/boringdede/Snr-Attendance/internal/notify"
	"github.com/boringdede/Snr-Attendance/internal/schedule"
	"github.com/boringdede/Snr-Attendance/internal/store"
)

const office = "SNR School"

type fakeNotifier struct {
	mu     sync.Mutex
	users  map[int64][]string
	admins []string
}

func (n *fakeNotifier) SendMessage(chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.users == nil {
		n.users = make(map[int64][]string)
	}
	n.users[chatID] = append(n.users[chatID], text)
	return nil
}

func (n *fakeNotifier) SendAdmins(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admins = append(n.admins, text)
	return nil
}

func (n *fakeNotifier) SendAdminsLocation(float64, float64) error { return nil }

type fixture struct {
	repo  *store.MemoryRepo
	index *schedule.Index
	notes *fakeNotifier
	bn    *notify.BestEffort
	loc   *time.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	loc, err := time.LoadLocation("Asia/Tashkent")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	repo := store.NewMemory()
	ix := schedule.New(repo, office)
	if err := ix.EnsureAlwaysPlace(ctx, domain.Place{Key: office, Lat: domain.Float(41.322921), Lon: domain.Float(69.277808), RadiusM: 200}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := ix.AddPlace(ctx, domain.Place{Key: "Riverside", Lat: domain.Float(41.3), Lon: domain.Float(69.3), RadiusM: 200}); err != nil {
		t.Fatalf("place: %v", err)
	}
	for _, s := range []domain.Slot{
		{Weekday: domain.Monday, StartM: 9 * 60, EndM: 10 * 60, PlaceKey: "Riverside"},
		{Weekday: domain.Monday, StartM: 9 * 60, EndM: 18 * 60, PlaceKey: office},
	} {
		if _, err := ix.AddSlot(ctx, s); err != nil {
			t.Fatalf("slot: %v", err)
		}
	}
	notes := &fakeNotifier{}
	return &fixture{repo: repo, index: ix, notes: notes, bn: notify.NewBestEffort(notes, zap.NewNop()), loc: loc}
}

// monday returns 2025-05-05 at hh:mm in Tashkent.
func (f *fixture) monday(hh, mm int) time.Time {
	return time.Date(2025, 5, 5, hh, mm, 0, 0, f.loc)
}

func (f *fixture) sweep() *LateSweep {
	policy := domain.Policy{DefaultRadiusM: 200, GraceMinutes: 10, Radius: domain.RadiusPermissive}
	return NewLateSweep(f.repo, f.index, policy, f.bn, f.loc, zap.NewNop())
}

func (f *fixture) checkin(t *testing.T, id, hhmm string, inRadius *bool) {
	t.Helper()
	rec := domain.Record{
		ID: id, UserID: 1, Action: domain.ActionIn, PlaceKey: "Riverside", PlaceName: "Riverside",
		Date: "2025-05-05", Time: hhmm, Weekday: "Monday", SlotStart: "09:00", SlotEnd: "10:00",
		InRadius: inRadius, CreatedAt: time.Now(),
	}
	if err := f.repo.AppendRecord(context.Background(), &rec); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestLateSweep_AlertsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	s := f.sweep()
	ctx := context.Background()

	if n, err := s.Sweep(ctx, f.monday(9, 9)); err != nil || n != 0 {
		t.Fatalf("before deadline: %d %v", n, err)
	}
	for _, m := range []int{10, 11, 30, 59} {
		if _, err := s.Sweep(ctx, f.monday(9, m)); err != nil {
			t.Fatalf("sweep: %v", err)
		}
	}
	if len(f.notes.admins) != 1 {
		t.Fatalf("want exactly one alert, got %v", f.notes.admins)
	}
	if !strings.Contains(f.notes.admins[0], "Riverside 09:00") {
		t.Fatalf("unexpected alert text %q", f.notes.admins[0])
	}
}

func TestLateSweep_AlwaysAvailableExempt(t *testing.T) {
	f := newFixture(t)
	f.checkin(t, "r1", "09:05", domain.Bool(true))
	if n, _ := f.sweep().Sweep(context.Background(), f.monday(12, 0)); n != 0 {
		t.Fatalf("office slot must never be alerted, got %d alerts: %v", n, f.notes.admins)
	}
}

func TestLateSweep_CoveringWindow(t *testing.T) {
	cases := []struct {
		name     string
		at       string
		inRadius *bool
		alert    bool
	}{
		{"early within 30 min", "08:30", domain.Bool(true), false},
		{"on grace boundary", "09:10", domain.Bool(true), false},
		{"unverifiable counts", "09:00", nil, false},
		{"too early", "08:29", domain.Bool(true), true},
		{"after grace", "09:11", domain.Bool(true), true},
		{"outside radius", "09:00", domain.Bool(false), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.checkin(t, "r", tc.at, tc.inRadius)
			n, err := f.sweep().Sweep(context.Background(), f.monday(9, 15))
			if err != nil {
				t.Fatalf("sweep: %v", err)
			}
			if got := n == 1; got != tc.alert {
				t.Fatalf("alert=%v, want %v", got, tc.alert)
			}
		})
	}
}

func TestLateSweep_PerPlaceGrace(t *testing.T) {
	f := newFixture(t)
	policy := domain.Policy{DefaultRadiusM: 200, GraceMinutes: 10, GraceByPlace: map[string]int{"Riverside": 20}}
	s := NewLateSweep(f.repo, f.index, policy, f.bn, f.loc, zap.NewNop())
	if n, _ := s.Sweep(context.Background(), f.monday(9, 15)); n != 0 {
		t.Fatalf("deadline is 09:20, got alert at 09:15")
	}
	if n, _ := s.Sweep(context.Background(), f.monday(9, 20)); n != 1 {
		t.Fatalf("want alert at 09:20")
	}
}

func TestLateSweep_PerUserGrace(t *testing.T) {
	policy := domain.Policy{DefaultRadiusM: 200, GraceMinutes: 10, GraceByUser: map[int64]int{1: 20}}

	f := newFixture(t)
	f.checkin(t, "r1", "09:15", domain.Bool(true))
	s := NewLateSweep(f.repo, f.index, policy, f.bn, f.loc, zap.NewNop())
	if n, _ := s.Sweep(context.Background(), f.monday(9, 15)); n != 0 {
		t.Fatalf("deadline is 09:20 while a user has a 20 min grace")
	}
	if n, _ := s.Sweep(context.Background(), f.monday(9, 20)); n != 0 {
		t.Fatalf("check-in at 09:15 is on time for user 1, got alert %v", f.notes.admins)
	}

	f = newFixture(t)
	rec := domain.Record{
		ID: "r2", UserID: 2, Action: domain.ActionIn, PlaceKey: "Riverside", PlaceName: "Riverside",
		Date: "2025-05-05", Time: "09:15", Weekday: "Monday", InRadius: domain.Bool(true), CreatedAt: time.Now(),
	}
	if err := f.repo.AppendRecord(context.Background(), &rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	s = NewLateSweep(f.repo, f.index, policy, f.bn, f.loc, zap.NewNop())
	if n, _ := s.Sweep(context.Background(), f.monday(9, 20)); n != 1 {
		t.Fatalf("check-in at 09:15 is late for user 2, want alert")
	}
}

func TestLateSweep_NextDayAlertsAgain(t *testing.T) {
	f := newFixture(t)
	s := f.sweep()
	ctx := context.Background()
	_, _ = s.Sweep(ctx, f.monday(9, 30))
	nextMonday := f.monday(9, 30).AddDate(0, 0, 7)
	if n, _ := s.Sweep(ctx, nextMonday); n != 1 {
		t.Fatalf("a new date is a new occurrence, got %d", n)
	}
}

func TestReminder_OncePerSlotToRegisteredUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.repo.SaveProfile(ctx, &domain.Profile{UserID: 1, Name: "Aziz Azimov", Phone: "+998901234567"})
	_ = f.repo.SaveProfile(ctx, &domain.Profile{UserID: 2, Name: "Half Done"})
	_ = f.repo.SaveProfile(ctx, &domain.Profile{UserID: 3, Name: "Quiet User", Phone: "+998900000000"})
	_ = f.repo.SetSuppressed(ctx, 3, true)

	r := NewReminder(f.repo, f.index, f.bn, f.loc, zap.NewNop())
	if n, _ := r.Broadcast(ctx, f.monday(8, 49)); n != 0 {
		t.Fatalf("too early, got %d", n)
	}
	if n, _ := r.Broadcast(ctx, f.monday(8, 50)); n != 1 {
		t.Fatalf("want reminder at 08:50, got %d", n)
	}
	if n, _ := r.Broadcast(ctx, f.monday(8, 55)); n != 0 {
		t.Fatalf("reminder repeated")
	}
	if n, _ := r.Broadcast(ctx, f.monday(9, 0)); n != 0 {
		t.Fatalf("no reminder once the slot started")
	}

	if got := len(f.notes.users[1]); got != 1 {
		t.Fatalf("registered user: want 1 reminder, got %d", got)
	}
	if len(f.notes.users[2]) != 0 || len(f.notes.users[3]) != 0 {
		t.Fatalf("unregistered or suppressed users must not be reminded: %v", f.notes.users)
	}
	if !strings.Contains(f.notes.users[1][0], "Riverside") {
		t.Fatalf("unexpected text %q", f.notes.users[1][0])
	}
}

type flakyProfiles struct {
	*store.MemoryRepo
	fails int
}

func (r *flakyProfiles) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	if r.fails > 0 {
		r.fails--
		return nil, errors.New("database is locked")
	}
	return r.MemoryRepo.ListProfiles(ctx)
}

func TestReminder_RetriesAfterRecipientLookupFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.repo.SaveProfile(ctx, &domain.Profile{UserID: 1, Name: "Aziz Azimov", Phone: "+998901234567"})

	r := NewReminder(&flakyProfiles{MemoryRepo: f.repo, fails: 1}, f.index, f.bn, f.loc, zap.NewNop())
	if _, err := r.Broadcast(ctx, f.monday(8, 50)); err == nil {
		t.Fatalf("want lookup error")
	}
	if n, err := r.Broadcast(ctx, f.monday(8, 51)); err != nil || n != 1 {
		t.Fatalf("want reminder on retry, got %d %v", n, err)
	}
	if got := len(f.notes.users[1]); got != 1 {
		t.Fatalf("want 1 reminder, got %d", got)
	}
}

// runOnce executes every job once.
func (s *Scheduler) runOnce(ctx context.Context) {
	now := s.now()
	for _, j := range s.jobs {
		s.run(ctx, j, now)
	}
}

type countingJob struct {
	mu    sync.Mutex
	ticks int
	boom  bool
}

func (j *countingJob) name() string { return "counting" }
func (j *countingJob) tick(context.Context, time.Time) {
	j.mu.Lock()
	j.ticks++
	j.mu.Unlock()
	if j.boom {
		panic("boom")
	}
}

func TestScheduler_RunOnceSurvivesPanics(t *testing.T) {
	s := New(zap.NewNop(), 0)
	bad := &countingJob{boom: true}
	good := &countingJob{}
	s.Add(bad)
	s.Add(good)
	s.runOnce(context.Background())
	s.runOnce(context.Background())
	if bad.ticks != 2 || good.ticks != 2 {
		t.Fatalf("want both jobs ticked twice, got bad=%d good=%d", bad.ticks, good.ticks)
	}
	if s.interval != 60*time.Second {
		t.Fatalf("default interval: %v", s.interval)
	}
}

func TestScheduler_RunTicksUntilCanceled(t *testing.T) {
	s := New(zap.NewNop(), time.Second)
	j := &countingJob{}
	s.Add(j)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		j.mu.Lock()
		n := j.ticks
		j.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
}

type blockingJob struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (j *blockingJob) name() string { return "blocking" }
func (j *blockingJob) tick(context.Context, time.Time) {
	j.once.Do(func() { close(j.started) })
	<-j.release
}

func TestScheduler_RunWaitsForInFlightPass(t *testing.T) {
	s := New(zap.NewNop(), time.Second)
	j := &blockingJob{started: make(chan struct{}), release: make(chan struct{})}
	s.Add(j)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-j.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("job never ran")
	}
	cancel()
	select {
	case <-done:
		t.Fatalf("Run returned while a pass was still running")
	case <-time.After(200 * time.Millisecond):
	}
	close(j.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
}
