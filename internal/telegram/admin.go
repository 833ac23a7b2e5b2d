package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/boringdede/Snr-Attendance/internal/backup"
	"github.com/boringdede/Snr-Attendance/internal/domain"
	"github.com/boringdede/Snr-Attendance/internal/sheet"
	"github.com/boringdede/Snr-Attendance/internal/store"
)

// Admin callback data.
const (
	cbAdminPrefix   = "adm:"
	cbAddPlace      = "adm:addplace"
	cbListPlaces    = "adm:places"
	cbDelPlace      = "adm:delplace"
	cbDelPlacePick  = "adm:delp:"
	cbAddLesson     = "adm:addlesson"
	cbLessonWeekday = "adm:al:wd:"
	cbLessonPlace   = "adm:al:place:"
	cbDelLesson     = "adm:dellesson"
	cbDelWeekday    = "adm:dl:wd:"
	cbDelPick       = "adm:dl:pick:"
	cbExport        = "adm:export"
	cbImport        = "adm:import"
	cbRecords       = "adm:records"
)

// maxImportBytes bounds uploaded backup documents.
const maxImportBytes = 1 << 20

type wizardStep int

const (
	stepPlaceKey wizardStep = iota + 1
	stepPlaceLat
	stepPlaceLon
	stepPlaceRadius
	stepPickDelPlace
	stepLessonWeekday
	stepLessonPlace
	stepLessonWindow
	stepDelWeekday
	stepDelPick
	stepImport
	stepRecordsDate
)

// wizard is the pending state of one administrator dialog. Button choices are
// offered by index into the snapshot taken when the buttons were sent.
type wizard struct {
	step   wizardStep
	place  domain.Place
	places []string
	slot   domain.Slot
	slots  []domain.Slot
}

func (r *Router) requireAdmin(userID int64) error {
	if !r.cfg.IsAdmin(userID) {
		return domain.ErrUnauthorized
	}
	return nil
}

func (r *Router) handleAdmin(chatID, userID int64) error {
	if err := r.requireAdmin(userID); err != nil {
		r.log.Info("admin access denied", zap.Int64("user", userID))
		r.sendText(chatID, accessDeniedText)
		return nil
	}
	r.clearPending(userID)
	msg := tgbotapi.NewMessage(chatID, adminPanelText)
	msg.ReplyMarkup = adminPanelKeyboard()
	_, err := r.bot.Send(msg)
	return err
}

func (r *Router) handleAdminCallback(ctx context.Context, chatID, userID int64, data string) error {
	if err := r.requireAdmin(userID); err != nil {
		r.sendText(chatID, accessDeniedText)
		return nil
	}
	w := r.getPending(userID)

	switch {
	case data == cbAddPlace:
		r.setPending(userID, &wizard{step: stepPlaceKey})
		r.sendText(chatID, askPlaceKeyText)

	case data == cbListPlaces:
		return r.listPlaces(ctx, chatID)

	case data == cbDelPlace:
		places, err := r.index.Places(ctx)
		if err != nil {
			return err
		}
		var keys []string
		for _, p := range places {
			if !p.AlwaysAvailable && p.Key != r.cfg.AlwaysPlaceKey {
				keys = append(keys, p.Key)
			}
		}
		if len(keys) == 0 {
			r.sendText(chatID, noPlacesText)
			return nil
		}
		r.setPending(userID, &wizard{step: stepPickDelPlace, places: keys})
		r.sendChoices(chatID, pickPlaceDelText, indexed(keys, cbDelPlacePick))

	case strings.HasPrefix(data, cbDelPlacePick):
		idx, ok := pick(data, cbDelPlacePick, w, stepPickDelPlace, len(wPlaces(w)))
		if !ok {
			r.sendText(chatID, wizardStaleText)
			return nil
		}
		key := w.places[idx]
		r.clearPending(userID)
		switch err := r.index.RemovePlace(ctx, key); {
		case errors.Is(err, domain.ErrProtectedPlace):
			r.sendText(chatID, protectedText)
		case errors.Is(err, domain.ErrPlaceNotFound):
			r.sendText(chatID, fmt.Sprintf(badInputFmt, err))
		case err != nil:
			return err
		default:
			r.log.Info("place deleted", zap.String("place", key), zap.Int64("admin", userID))
			r.sendText(chatID, fmt.Sprintf(placeDeletedFmt, key))
		}

	case data == cbAddLesson:
		r.setPending(userID, &wizard{step: stepLessonWeekday})
		r.sendChoices(chatID, pickWeekdayText, weekdayOptions(cbLessonWeekday))

	case strings.HasPrefix(data, cbLessonWeekday):
		idx, ok := pick(data, cbLessonWeekday, w, stepLessonWeekday, 7)
		if !ok {
			r.sendText(chatID, wizardStaleText)
			return nil
		}
		places, err := r.index.Places(ctx)
		if err != nil {
			return err
		}
		if len(places) == 0 {
			r.clearPending(userID)
			r.sendText(chatID, noPlacesText)
			return nil
		}
		keys := make([]string, 0, len(places))
		for _, p := range places {
			keys = append(keys, p.Key)
		}
		w.slot.Weekday = domain.Weekday(idx)
		w.places = keys
		w.step = stepLessonPlace
		r.sendChoices(chatID, pickLessonPlace, indexed(keys, cbLessonPlace))

	case strings.HasPrefix(data, cbLessonPlace):
		idx, ok := pick(data, cbLessonPlace, w, stepLessonPlace, len(wPlaces(w)))
		if !ok {
			r.sendText(chatID, wizardStaleText)
			return nil
		}
		w.slot.PlaceKey = w.places[idx]
		w.step = stepLessonWindow
		r.sendText(chatID, askWindowText)

	case data == cbDelLesson:
		r.setPending(userID, &wizard{step: stepDelWeekday})
		r.sendChoices(chatID, pickWeekdayText, weekdayOptions(cbDelWeekday))

	case strings.HasPrefix(data, cbDelWeekday):
		idx, ok := pick(data, cbDelWeekday, w, stepDelWeekday, 7)
		if !ok {
			r.sendText(chatID, wizardStaleText)
			return nil
		}
		wd := domain.Weekday(idx)
		slots, err := r.index.SlotsFor(ctx, wd)
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			r.clearPending(userID)
			r.sendText(chatID, fmt.Sprintf(noLessonsFmt, wd))
			return nil
		}
		labels := make([]string, 0, len(slots))
		for _, s := range slots {
			labels = append(labels, s.PlaceKey+" "+s.Label())
		}
		w.slots = slots
		w.step = stepDelPick
		r.sendChoices(chatID, pickLessonDelText, indexed(labels, cbDelPick))

	case strings.HasPrefix(data, cbDelPick):
		idx, ok := pick(data, cbDelPick, w, stepDelPick, len(wSlots(w)))
		if !ok {
			r.sendText(chatID, wizardStaleText)
			return nil
		}
		s := w.slots[idx]
		r.clearPending(userID)
		if err := r.index.RemoveSlot(ctx, s.Weekday, s.PlaceKey, s.StartM); err != nil {
			if errors.Is(err, domain.ErrInvalidSchedule) {
				r.sendText(chatID, fmt.Sprintf(badInputFmt, err))
				return nil
			}
			return err
		}
		r.log.Info("lesson deleted", zap.String("place", s.PlaceKey), zap.String("start", s.Start()), zap.Int64("admin", userID))
		r.sendText(chatID, fmt.Sprintf(lessonDeletedFmt, s.Weekday.Short(), s.PlaceKey, s.Label()))

	case data == cbExport:
		now := r.now().In(r.loc)
		doc, err := backup.Export(ctx, r.repo, now)
		if err != nil {
			return err
		}
		return r.sendDocument(chatID, "schedule-"+now.Format(domain.DateLayout)+".yaml", doc)

	case data == cbImport:
		r.setPending(userID, &wizard{step: stepImport})
		r.sendText(chatID, askImportText)

	case data == cbRecords:
		r.setPending(userID, &wizard{step: stepRecordsDate})
		r.sendText(chatID, askRecordsDate)
	}
	return nil
}

// handleWizardText advances text-driven wizard steps. Invalid input keeps the step.
func (r *Router) handleWizardText(ctx context.Context, chatID, userID int64, w *wizard, text string) error {
	bad := func(err error) error {
		r.sendText(chatID, fmt.Sprintf(badInputFmt, err))
		return nil
	}

	switch w.step {
	case stepPlaceKey:
		if text == "" {
			r.sendText(chatID, askPlaceKeyText)
			return nil
		}
		w.place = domain.Place{Key: text, Name: text}
		w.step = stepPlaceLat
		r.sendText(chatID, askLatText)

	case stepPlaceLat:
		if text == "-" {
			w.step = stepPlaceRadius
			r.sendText(chatID, fmt.Sprintf(askRadiusFmt, int(r.cfg.RadiusM)))
			return nil
		}
		lat, err := domain.ParseCoordinate(text)
		if err == nil {
			err = domain.ValidateCoords(lat, 0)
		}
		if err != nil {
			return bad(err)
		}
		w.place.Lat = domain.Float(lat)
		w.step = stepPlaceLon
		r.sendText(chatID, askLonText)

	case stepPlaceLon:
		lon, err := domain.ParseCoordinate(text)
		if err == nil {
			err = domain.ValidateCoords(*w.place.Lat, lon)
		}
		if err != nil {
			return bad(err)
		}
		w.place.Lon = domain.Float(lon)
		w.step = stepPlaceRadius
		r.sendText(chatID, fmt.Sprintf(askRadiusFmt, int(r.cfg.RadiusM)))

	case stepPlaceRadius:
		if text == "-" {
			text = ""
		}
		radius, err := domain.ParseRadius(text, r.cfg.RadiusM)
		if err != nil {
			return bad(err)
		}
		w.place.RadiusM = radius
		if always, err := r.index.IsAlwaysAvailable(ctx, w.place.Key); err == nil && always {
			w.place.AlwaysAvailable = true
		}
		if err := r.index.AddPlace(ctx, w.place); err != nil {
			r.clearPending(userID)
			return bad(err)
		}
		r.clearPending(userID)
		r.log.Info("place saved", zap.String("place", w.place.Key), zap.Int64("admin", userID))
		r.sendText(chatID, fmt.Sprintf(placeSavedFmt, w.place.Key))

	case stepLessonWindow:
		start, end, err := domain.ParseWindow(text)
		if err != nil {
			return bad(err)
		}
		w.slot.StartM, w.slot.EndM = start, end
		s, err := r.index.AddSlot(ctx, w.slot)
		switch {
		case errors.Is(err, domain.ErrInvalidSchedule):
			return bad(err)
		case errors.Is(err, domain.ErrPlaceNotFound):
			r.clearPending(userID)
			return bad(err)
		case err != nil:
			return err
		}
		r.clearPending(userID)
		r.log.Info("lesson added", zap.String("place", s.PlaceKey), zap.String("slot", s.Label()), zap.Int64("admin", userID))
		r.sendText(chatID, fmt.Sprintf(lessonSavedFmt, s.Weekday.Short(), s.PlaceKey, s.Label()))

	case stepRecordsDate:
		day := r.now().In(r.loc)
		if !strings.EqualFold(text, "today") {
			t, err := time.ParseInLocation(domain.DateLayout, text, r.loc)
			if err != nil {
				r.sendText(chatID, askRecordsDate)
				return nil
			}
			day = t
		}
		r.clearPending(userID)
		return r.sendRecords(ctx, chatID, day.Format(domain.DateLayout))

	case stepImport:
		r.sendText(chatID, askImportText)

	default:
		r.sendText(chatID, wizardStaleText)
	}
	return nil
}

func (r *Router) handleDocument(ctx context.Context, msg *tgbotapi.Message) error {
	userID, chatID := msg.From.ID, msg.Chat.ID
	w := r.getPending(userID)
	if w == nil || w.step != stepImport || !r.cfg.IsAdmin(userID) {
		return nil
	}
	if msg.Document.FileSize > maxImportBytes {
		r.sendText(chatID, docTooLargeText)
		return nil
	}
	data, err := r.download(ctx, msg.Document.FileID)
	if err != nil {
		return err
	}

	var keep []domain.Place
	if r.cfg.AlwaysPlaceKey != "" {
		if p, err := r.index.Place(ctx, r.cfg.AlwaysPlaceKey); err == nil {
			p.AlwaysAvailable = true
			keep = append(keep, *p)
		}
	}
	st, err := backup.Import(ctx, r.repo, data, keep...)
	switch {
	case errors.Is(err, domain.ErrInvalidSchedule), errors.Is(err, domain.ErrInvalidLocation), errors.Is(err, domain.ErrPlaceNotFound):
		r.sendText(chatID, fmt.Sprintf(badInputFmt, err))
		return nil
	case err != nil:
		return err
	}
	r.clearPending(userID)
	r.log.Info("schedule imported", zap.Int("places", st.Places), zap.Int("slots", st.Slots), zap.Int64("admin", userID))
	r.sendText(chatID, fmt.Sprintf(importDoneFmt, st.Places, st.Slots))
	return nil
}

func (r *Router) listPlaces(ctx context.Context, chatID int64) error {
	places, err := r.index.Places(ctx)
	if err != nil {
		return err
	}
	if len(places) == 0 {
		r.sendText(chatID, noPlacesText)
		return nil
	}
	lines := make([]string, 0, len(places))
	for _, p := range places {
		line := "• " + p.Key
		if p.HasCoords() {
			line += fmt.Sprintf(" (%.6f, %.6f), r=%d m", *p.Lat, *p.Lon, int(p.RadiusM))
		} else {
			line += " (no coordinates)"
		}
		if p.AlwaysAvailable || p.Key == r.cfg.AlwaysPlaceKey {
			line += " ⭐"
		}
		lines = append(lines, line)
	}
	r.sendText(chatID, strings.Join(lines, "\n"))
	return nil
}

func (r *Router) sendRecords(ctx context.Context, chatID int64, date string) error {
	records, err := r.repo.QueryRecords(ctx, store.RecordQuery{Date: date})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		r.sendText(chatID, fmt.Sprintf(noRecordsFmt, date))
		return nil
	}
	var buf bytes.Buffer
	if err := sheet.WriteRecords(&buf, records); err != nil {
		return err
	}
	return r.sendDocument(chatID, "attendance-"+date+".xlsx", buf.Bytes())
}

func (r *Router) sendDocument(chatID int64, name string, data []byte) error {
	_, err := r.bot.Send(tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data}))
	return err
}

func (r *Router) sendChoices(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

// download fetches an uploaded file through the Bot API file endpoint.
func (r *Router) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := r.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImportBytes))
}

// pick parses an indexed callback and checks it against the pending step.
func pick(data, prefix string, w *wizard, step wizardStep, n int) (int, bool) {
	if w == nil || w.step != step {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

func wPlaces(w *wizard) []string {
	if w == nil {
		return nil
	}
	return w.places
}

func wSlots(w *wizard) []domain.Slot {
	if w == nil {
		return nil
	}
	return w.slots
}

func indexed(labels []string, prefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(labels))
	for i, l := range labels {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(l, prefix+strconv.Itoa(i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func weekdayOptions(prefix string) tgbotapi.InlineKeyboardMarkup {
	labels := make([]string, 0, 7)
	for wd := domain.Monday; wd <= domain.Sunday; wd++ {
		labels = append(labels, wd.String())
	}
	return indexed(labels, prefix)
}
