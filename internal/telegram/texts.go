package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/boringdede/Snr-Attendance/internal/checkin"
)

// UI texts in English
const (
	helpText = "🤖 Attendance bot\n\n" +
		"/start — register or resume\n" +
		"/today — today's schedule\n" +
		"/my — your profile\n" +
		"/id — your Telegram ID\n" +
		"/stop — stop the bot\n\n" +
		"Press \"" + checkin.ButtonCheckin + "\" to check in or out: choose the place, the slot, the action, then send your location."
	idFmt            = "Your Telegram ID: %d"
	internalErrText  = "⚠️ Something went wrong. Please try again."
	accessDeniedText = "⛔ Access denied."
	diagFmt          = "⚠️ Error while handling an update from %d: %v"

	buttonAdmin    = "⚙️ Admin"
	buttonContact  = "📱 Share contact"
	buttonLocation = "📍 Send location"

	adminPanelText    = "⚙️ Administrator panel"
	askPlaceKeyText   = "Send the place name (key), for example: Riverside."
	askLatText        = "Send the latitude (for example 41.311081), or - to leave the place without coordinates."
	askLonText        = "Send the longitude (for example 69.240562)."
	askRadiusFmt      = "Send the radius in meters, or - for the default (%d m)."
	placeSavedFmt     = "✅ Place saved: %s"
	placeDeletedFmt   = "🗑 Place %s deleted together with its lessons."
	protectedText     = "⛔ This place is always available and cannot be deleted."
	noPlacesText      = "No places yet."
	pickPlaceDelText  = "Choose the place to delete:"
	pickWeekdayText   = "Choose the weekday:"
	pickLessonPlace   = "Choose the place:"
	askWindowText     = "Send the time window, for example 09:00-10:30."
	lessonSavedFmt    = "✅ Lesson added: %s %s %s"
	noLessonsFmt      = "No lessons on %s."
	pickLessonDelText = "Choose the lesson to delete:"
	lessonDeletedFmt  = "🗑 Lesson deleted: %s %s %s"
	askImportText     = "Send the backup file (.yaml) as a document."
	importDoneFmt     = "✅ Schedule imported: %d places, %d lessons."
	askRecordsDate    = "Send the date (YYYY-MM-DD) or \"today\"."
	noRecordsFmt      = "No records on %s."
	badInputFmt       = "❌ %v"
	wizardStaleText   = "This admin menu is outdated. Send /admin to start again."
	docTooLargeText   = "❌ The file is too large."
)

// mainMenuKeyboard builds the reply keyboard shown in Idle.
func mainMenuKeyboard(admin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(checkin.ButtonToday),
			tgbotapi.NewKeyboardButton(checkin.ButtonCheckin),
		),
	}
	if admin {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonAdmin)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(buttonContact)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func locationKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(buttonLocation)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(checkin.ButtonBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// choicesKeyboard renders one inline button per row.
func choicesKeyboard(opts []checkin.Option) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(opts))
	for _, o := range opts {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(o.Label, o.Data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func adminPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add place", cbAddPlace),
			tgbotapi.NewInlineKeyboardButtonData("📋 Places", cbListPlaces),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete place", cbDelPlace),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add lesson", cbAddLesson),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete lesson", cbDelLesson),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Export backup", cbExport),
			tgbotapi.NewInlineKeyboardButtonData("📥 Import backup", cbImport),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Records (.xlsx)", cbRecords),
		),
	)
}
