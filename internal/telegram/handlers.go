package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/boringdede/Snr-Attendance/internal/checkin"
	"github.com/boringdede/Snr-Attendance/internal/domain"
)

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	userID, chatID := msg.From.ID, msg.Chat.ID
	now := r.now()

	switch {
	case msg.Contact != nil:
		return r.reply(chatID, userID)(r.flow.Contact(ctx, userID, msg.Contact.UserID, msg.Contact.PhoneNumber))
	case msg.Location != nil:
		reading := domain.Reading{
			Lat:       msg.Location.Latitude,
			Lon:       msg.Location.Longitude,
			Forwarded: forwarded(msg),
		}
		return r.reply(chatID, userID)(r.flow.Location(ctx, userID, reading, now))
	case msg.Document != nil:
		return r.handleDocument(ctx, msg)
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			r.clearPending(userID)
			return r.reply(chatID, userID)(r.flow.Start(ctx, userID))
		case "stop":
			r.clearPending(userID)
			return r.reply(chatID, userID)(r.flow.Stop(ctx, userID))
		case "help":
			r.sendText(chatID, helpText)
			return nil
		case "id":
			r.sendText(chatID, fmt.Sprintf(idFmt, userID))
			return nil
		case "my":
			return r.reply(chatID, userID)(r.flow.Profile(ctx, userID, displayName(msg.From)))
		case "today", "schedule":
			return r.reply(chatID, userID)(r.flow.Today(ctx, now))
		case "admin":
			return r.handleAdmin(chatID, userID)
		}
	}

	text := strings.TrimSpace(msg.Text)
	switch text {
	case checkin.ButtonToday:
		return r.reply(chatID, userID)(r.flow.Today(ctx, now))
	case checkin.ButtonCheckin:
		r.clearPending(userID)
		return r.reply(chatID, userID)(r.flow.RequestCheckin(ctx, userID, now))
	case buttonAdmin:
		return r.handleAdmin(chatID, userID)
	case checkin.ButtonBack:
		r.clearPending(userID)
	}
	if w := r.getPending(userID); w != nil && r.cfg.IsAdmin(userID) {
		return r.handleWizardText(ctx, chatID, userID, w, text)
	}
	return r.reply(chatID, userID)(r.flow.Text(ctx, userID, text))
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	_ = r.answerCallback(cb.ID, "")
	if cb.Message == nil {
		return nil
	}
	userID, chatID, data := cb.From.ID, cb.Message.Chat.ID, cb.Data
	now := r.now()

	switch {
	case strings.HasPrefix(data, checkin.PrefixPlace):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, checkin.PrefixPlace))
		if err != nil {
			idx = -1
		}
		return r.reply(chatID, userID)(r.flow.SelectPlace(ctx, userID, idx, now))
	case strings.HasPrefix(data, checkin.PrefixSlot):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, checkin.PrefixSlot))
		if err != nil {
			idx = -1
		}
		return r.reply(chatID, userID)(r.flow.SelectSlot(userID, idx), nil)
	case strings.HasPrefix(data, checkin.PrefixAction):
		action, err := domain.ParseAction(strings.TrimPrefix(data, checkin.PrefixAction))
		if err != nil {
			action = ""
		}
		return r.reply(chatID, userID)(r.flow.SelectAction(userID, action), nil)
	case strings.HasPrefix(data, cbAdminPrefix):
		return r.handleAdminCallback(ctx, chatID, userID, data)
	default:
		// Unknown callback: ignore silently
	}
	return nil
}

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// forwarded reports whether Telegram marked the message as forwarded.
func forwarded(msg *tgbotapi.Message) bool {
	return msg.ForwardDate != 0 || msg.ForwardFrom != nil || msg.ForwardFromChat != nil || msg.ForwardSenderName != ""
}

func displayName(u *tgbotapi.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
