package checkin

// Menu buttons shared with the transport.
const (
	ButtonToday   = "📅 Today's schedule"
	ButtonCheckin = "✅ Check in"
	ButtonBack    = "Back to menu"
)

const (
	askNameText        = "👋 Hello! Please enter your first and last name (for example: Aziz Azimov)."
	badNameText        = "Please enter your first and last name (for example: Aziz Azimov)."
	askContactFmt      = "Thank you, %s! Now share your contact using the button below."
	contactButtonText  = "Please share your own contact using the button."
	profileSavedFmt    = "✅ Profile saved\nName: %s\nPhone: %s"
	profileExistsText  = "Your profile already exists."
	greetingFmt        = "Hello, %s! What shall we do?"
	needProfileText    = "Please finish registration first: send /start."
	menuText           = "Main menu."
	stoppedText        = "🛑 Bot stopped. Send /start to resume."
	nothingTodayText   = "Nothing is scheduled today."
	pickPlaceText      = "⬇️ Choose a place:"
	pickSlotFmt        = "Place: %s\nChoose a time slot:"
	pickActionFmt      = "%s %s\nChoose an action:"
	noSlotsFmt         = "There are no lessons at %s today."
	askLocationFmt     = "%s at %s. Send your location using the button below."
	locationButtonText = "📍 Please send your current location using the button."
	forwardedText      = "❌ Forwarded locations are not accepted. Send your own location using the button."
	invalidLocText     = "❌ That location looks invalid. Please share your location again."
	outsideRadiusFmt   = "🚫 You are %s from %s (allowed %s). Move closer and send your location again."
	placeGoneText      = "❗ This place is no longer in the schedule. Please contact an administrator."
	staleMenuText      = "This menu is outdated. Press \"" + ButtonCheckin + "\" to start again."
	profileFmt         = "👤 Profile\nName: %s\nPhone: %s"
	todayTitleFmt      = "Schedule for %s:"
	todayEmptyText     = "• (no lessons)"
)
