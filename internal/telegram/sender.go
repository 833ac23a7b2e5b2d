package telegram

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// api is the subset of *tgbotapi.BotAPI the bot uses.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Sender delivers plain messages and location pins. It satisfies notify.Notifier.
type Sender struct {
	bot    api
	admins []int64
}

// NewSender creates a Sender; admins are the chats receiving administrator traffic.
func NewSender(bot api, admins []int64) *Sender {
	return &Sender{bot: bot, admins: admins}
}

// SendMessage sends a plain text message to the given chat.
func (s *Sender) SendMessage(chatID int64, text string) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendAdmins sends text to every administrator chat.
func (s *Sender) SendAdmins(text string) error {
	var errs []error
	for _, id := range s.admins {
		if err := s.SendMessage(id, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// SendAdminsLocation drops a map pin into every administrator chat.
func (s *Sender) SendAdminsLocation(lat, lon float64) error {
	var errs []error
	for _, id := range s.admins {
		if _, err := s.bot.Send(tgbotapi.NewLocation(id, lat, lon)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
