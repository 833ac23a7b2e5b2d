package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/boringdede/Snr-Attendance/internal/checkin"
	"github.com/boringdede/Snr-Attendance/internal/config"
	"github.com/boringdede/Snr-Attendance/internal/notify"
	"github.com/boringdede/Snr-Attendance/internal/schedule"
	"github.com/boringdede/Snr-Attendance/internal/scheduler"
	"github.com/boringdede/Snr-Attendance/internal/store"
	"github.com/boringdede/Snr-Attendance/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	loc     *time.Location
	repo    store.Repo
	router  *telegram.Router
	sched   *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		srv = &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      mux,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv, loc: loc}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting attendance bot",
		zap.String("bot", a.bot.Self.UserName),
		zap.String("tz", a.loc.String()),
		zap.String("http", a.cfg.HTTPAddr),
	)

	repo, err := openRepo(ctx, a.cfg.DBPath, a.log)
	if err != nil {
		a.log.Error("open store failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("store ready", zap.String("path", a.cfg.DBPath))

	index := schedule.New(repo, a.cfg.AlwaysPlaceKey)
	if a.cfg.AlwaysPlaceKey != "" {
		office, err := a.cfg.AlwaysPlace()
		if err != nil {
			return err
		}
		if err := index.EnsureAlwaysPlace(ctx, office); err != nil {
			a.log.Error("ensure always-available place failed", zap.Error(err))
			return err
		}
	}

	sender := telegram.NewSender(a.bot, a.cfg.AdminTargets())
	bn := notify.NewBestEffort(sender, a.log.Named("notify"))
	policy := a.cfg.Policy()
	recorder := checkin.NewRecorder(index, repo, policy, bn, a.loc, a.log.Named("recorder"))
	flow := checkin.NewFlow(repo, index, checkin.NewMemorySessions(), recorder, a.loc, a.log.Named("flow"))
	a.router = telegram.NewRouter(a.bot, a.log.Named("router"), a.cfg, repo, index, flow, bn, a.loc)

	a.sched = scheduler.New(a.log.Named("scheduler"), a.cfg.SweepInterval)
	a.sched.Add(scheduler.NewLateSweep(repo, index, policy, bn, a.loc, a.log.Named("late_sweep")))
	if a.cfg.Reminders {
		a.sched.Add(scheduler.NewReminder(repo, index, bn, a.loc, a.log.Named("reminder")))
	}
	if len(a.cfg.AdminTargets()) == 0 {
		a.log.Warn("no administrator chats configured, admin notifications are disabled")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := a.sched.Run(ctx); err != nil {
			a.log.Error("scheduler failed", zap.Error(err))
		}
	}()

	if a.httpSrv != nil {
		go func() {
			if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("http server error", zap.Error(err))
			}
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()

			if a.httpSrv != nil {
				shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := a.httpSrv.Shutdown(shCtx)
				cancel()
				if err != nil {
					a.log.Warn("http server shutdown error", zap.Error(err))
				}
			}
			if a.repo != nil {
				closeAfter(schedDone, a.repo, a.log)
			}
			a.log.Info("notification failures since start", zap.Int64("count", bn.Failures()))
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// closeAfter closes c once done is closed, so no scheduler pass touches a closed store.
func closeAfter(done <-chan struct{}, c io.Closer, log *zap.Logger) {
	<-done
	if err := c.Close(); err != nil {
		log.Warn("store close error", zap.Error(err))
	}
}

// openRepo opens SQLite, or the in-memory store for ":memory:".
func openRepo(ctx context.Context, path string, log *zap.Logger) (store.Repo, error) {
	if path == ":memory:" {
		log.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	}
	return store.OpenSQLite(ctx, path, log.Named("store"))
}
