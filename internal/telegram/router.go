package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/boringdede/Snr-Attendance/internal/checkin"
	"github.com/boringdede/Snr-Attendance/internal/config"
	"github.com/boringdede/Snr-Attendance/internal/notify"
	"github.com/boringdede/Snr-Attendance/internal/schedule"
	"github.com/boringdede/Snr-Attendance/internal/store"
)

// Router wires Telegram updates to the check-in flow and the admin wizards.
// Wizard state is minimal and in-memory.
type Router struct {
	bot    api
	log    *zap.Logger
	cfg    config.Config
	repo   store.Repo
	index  *schedule.Index
	flow   *checkin.Flow
	notify *notify.BestEffort
	loc    *time.Location
	http   *http.Client
	now    func() time.Time

	state map[int64]*wizard // userID -> pending admin wizard
	mu    sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot api, log *zap.Logger, cfg config.Config, repo store.Repo, index *schedule.Index, flow *checkin.Flow, n *notify.BestEffort, loc *time.Location) *Router {
	return &Router{
		bot:    bot,
		log:    log,
		cfg:    cfg,
		repo:   repo,
		index:  index,
		flow:   flow,
		notify: n,
		loc:    loc,
		http:   &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
		state:  make(map[int64]*wizard),
	}
}

func (r *Router) setPending(userID int64, w *wizard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[userID] = w
}

func (r *Router) getPending(userID int64) *wizard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[userID]
}

func (r *Router) clearPending(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, userID)
}

// HandleUpdate routes a single update. Failures are logged, reported to the
// user and, when enabled, to the administrators; they never stop the loop.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	userID, chatID := origin(upd)
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("update handler panicked", zap.Any("panic", rec), zap.Int64("user", userID))
			r.fail(chatID, userID, fmt.Errorf("panic: %v", rec))
		}
	}()
	if userID == 0 {
		return
	}

	if !r.isStart(upd) {
		suppressed, err := r.repo.IsSuppressed(ctx, userID)
		if err != nil {
			r.fail(chatID, userID, err)
			return
		}
		if suppressed {
			if upd.CallbackQuery != nil {
				_ = r.answerCallback(upd.CallbackQuery.ID, "")
			}
			return
		}
	}

	var err error
	switch {
	case upd.Message != nil:
		err = r.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		err = r.handleCallback(ctx, upd.CallbackQuery)
	}
	if err != nil {
		r.fail(chatID, userID, err)
	}
}

// reply renders a flow result; it is curried so flow calls can be passed inline.
func (r *Router) reply(chatID, userID int64) func(checkin.Reply, error) error {
	return func(rep checkin.Reply, err error) error {
		if err != nil {
			return err
		}
		r.render(chatID, userID, rep)
		return nil
	}
}

func (r *Router) render(chatID, userID int64, rep checkin.Reply) {
	if rep.Empty() {
		return
	}
	msg := tgbotapi.NewMessage(chatID, rep.Text)
	switch rep.Keyboard {
	case checkin.MainMenu:
		msg.ReplyMarkup = mainMenuKeyboard(r.cfg.IsAdmin(userID))
	case checkin.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	case checkin.ContactRequest:
		msg.ReplyMarkup = contactKeyboard()
	case checkin.LocationRequest:
		msg.ReplyMarkup = locationKeyboard()
	case checkin.Choices:
		if len(rep.Options) > 0 {
			msg.ReplyMarkup = choicesKeyboard(rep.Options)
		}
	}
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

// fail tells the user something went wrong and forwards a diagnostic.
func (r *Router) fail(chatID, userID int64, err error) {
	r.log.Error("update failed", zap.Error(err), zap.Int64("user", userID))
	if chatID != 0 {
		r.sendText(chatID, internalErrText)
	}
	if r.cfg.Diagnostics {
		r.notify.Admins(fmt.Sprintf(diagFmt, userID, err), "diagnostic")
	}
}

func (r *Router) isStart(upd tgbotapi.Update) bool {
	return upd.Message != nil && upd.Message.IsCommand() && upd.Message.Command() == "start"
}

func origin(upd tgbotapi.Update) (userID, chatID int64) {
	switch {
	case upd.Message != nil && upd.Message.From != nil:
		userID = upd.Message.From.ID
		if upd.Message.Chat != nil {
			chatID = upd.Message.Chat.ID
		}
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		userID = upd.CallbackQuery.From.ID
		if upd.CallbackQuery.Message != nil && upd.CallbackQuery.Message.Chat != nil {
			chatID = upd.CallbackQuery.Message.Chat.ID
		}
	}
	return userID, chatID
}
