package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgOk            = `Ok!`
	MsgUnexpectedErr = `Unexpected error: %s`
	MsgVersionInfo   = "Version: %s\nBuilt: %s"
	MsgWelcome       = `
		♻️ *Recycling guide*

		Describe an item in a few short steps and I will tell you how to recycle or dispose of it, and where.

		Commands:
		/new - describe another item
		/location - show or set your default location
		/help - how this works`
	MsgHelp = `
		*How it works*

		1. Send the item's name.
		2. Tap every material it is made of.
		3. Optionally pick size and condition and add details.
		4. Send your city or ZIP code and tap *Get guidance*.

		Nothing you describe is stored. Only the default location you save with /location is kept, encrypted.

		/new starts over at any time.`
	MsgUseButtons = "Use the buttons on the form above, or /new to start over."
)

// =============================================================================
// Guide workflow messages
// =============================================================================

const (
	MsgGuideTitleFmt        = "♻️ *Recycling guide* · Step %d of %d: %s"
	MsgGuideItemPrompt      = "What item do you want to get rid of? Send its name as a message."
	MsgGuideMaterialsPrompt = "Tap every material the item contains. Send a message to describe any other material."
	MsgGuideDetailsPrompt   = "Optional details. Pick a size and condition, or tap a field and send its value."
	MsgGuideLocationPrompt  = "Where are you? Send your city or ZIP code to find nearby recycling centers (optional)."
	MsgGuideAwaitingFmt     = "✏️ Send a value for *%s*."
	MsgGuideNotSet          = "_not set_"
	MsgGuideSummaryTitle    = "*Summary*"
	MsgGuideErrorFmt        = "⚠️ %s"
	MsgGuideLoadingFmt      = "⏳ Looking up recycling guidance for *%s*..."
	MsgGuideStillLoading    = "Still working on it. Tap *Start over* to cancel."
	MsgGuideHasResult       = "Here is your guidance above. Send /new to describe another item."
	MsgGuideExpired         = "The recycling form expired after 30 minutes without activity. Send /new to start again."
	MsgGuideStartedOver     = "Starting over."
	MsgGuideResultTitleFmt  = "♻️ *Recycling guidance: %s*"
	MsgGuideWhereItGoes     = "*Where it goes:* %s"
	MsgGuideCachedNote      = "_Answer from cache._"
	MsgGuideMapNote         = "Tap the button below to see recycling centers near *%s*."
)

// =============================================================================
// Location messages
// =============================================================================

const (
	MsgLocationCurrent       = "Your default location is *%s*.\n\nSend a new one, or /cancel to keep it."
	MsgLocationNotSet        = "You have no default location.\n\nSend a city or ZIP code to use it on every new form, or /cancel."
	MsgLocationUpdated       = "✅ Default location saved: %s"
	MsgLocationInvalid       = "Please send a city or ZIP code (up to 100 characters)."
	MsgLocationCommandCancel = "Ok, location unchanged."
	MsgLocationForgotten     = "🗑 Default location removed."
	MsgLocationNotAvailable  = "Saved locations are not available."
)

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage           = "Usage:\n`/admin users add <user_id>`\n`/admin users remove <user_id>`\n`/admin users list`"
	MsgAdminUserAddUsage    = "Usage: `/admin users add <user_id>`"
	MsgAdminUserRemoveUsage = "Usage: `/admin users remove <user_id>`"
	MsgAdminUserInvalidID   = "Invalid user ID. Send a number."
	MsgAdminUserAdded       = "✅ User `%d` added."
	MsgAdminUserRemoved     = "🗑 User `%d` removed."
	MsgAdminNoUsers         = "No allowed users."
	MsgAdminAllowedUsersFmt = "*Allowed users* (%s):\n"
)

// =============================================================================
// Button labels
// =============================================================================

const (
	BtnBack          = "◀️ Back"
	BtnNext          = "Next ▶️"
	BtnSubmit        = "🔎 Get guidance"
	BtnStartOver     = "🔄 Start over"
	BtnPlasticType   = "✏️ Plastic code"
	BtnQuantity      = "✏️ Quantity"
	BtnFeatures      = "✏️ Special features"
	BtnMap           = "🗺️ Nearby recycling centers"
	BtnSelectedMark  = "✅ "
)
