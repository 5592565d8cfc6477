package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/raine/telegram-recycling-bot/internal/llm"
	"github.com/raine/telegram-recycling-bot/internal/storage"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg            BotAPI
	state         BotState
	store         storage.Store
	adminID       int64
	restrictUsers bool

	guideHandler *GuideHandler
}

// NewBot creates a new Bot instance. Until SetGuidanceProvider is called
// every guidance request fails.
func NewBot(tg BotAPI, store storage.Store, adminID int64) *Bot {
	bot := &Bot{
		tg:      tg,
		store:   store,
		adminID: adminID,
	}

	bot.state = bot.NewBotState()
	bot.guideHandler = NewGuideHandler(tg, store)

	return bot
}

// SetGuidanceProvider sets the provider used for guidance requests and the
// deadline applied to each request.
func (b *Bot) SetGuidanceProvider(provider llm.GuidanceProvider, timeout time.Duration) {
	b.guideHandler.provider = provider
	if timeout > 0 {
		b.guideHandler.timeout = timeout
	}
}

// SetRestrictUsers enables the whitelist. When enabled only the admin and
// users added with /admin users add can talk to the bot.
func (b *Bot) SetRestrictUsers(restrict bool) {
	b.restrictUsers = restrict
}

// Shutdown stops all session workers and waits for in-flight guidance
// requests to wind down.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
	b.guideHandler.Wait()
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// isAllowed checks the whitelist. The admin is always allowed; lookup
// errors fail closed.
func (b *Bot) isAllowed(userId int64) bool {
	if !b.restrictUsers || userId == b.adminID {
		return true
	}
	if b.store == nil {
		return false
	}
	allowed, err := b.store.IsUserAllowed(userId)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userId).Msg("whitelist check failed")
		return false
	}
	return allowed
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	// Determine user ID from the update
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	// MUST be before getUserSession to prevent memory exhaustion from random user IDs
	if !b.isAllowed(userId) {
		return // Silent drop
	}

	session := b.state.getUserSession(userId)

	// Helper to send sync or async based on flag
	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          "callback",
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	if update.Message != nil {
		log.Debug().Int64("userId", userId).Int("length", len(update.Message.Text)).Msg("got message")
		send(SessionMessage{
			Type:    "text",
			Ctx:     ctx,
			Message: update.Message,
		})
	}
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
// No mutex locking is needed here since only one goroutine accesses session state.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "callback":
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case "text":
		b.handleTextMessage(ctx, session, msg.Message)
	case "guidance_complete":
		b.guideHandler.HandleGuidanceComplete(session, msg.GuidanceOutcome)
	case "workflow_expired":
		b.guideHandler.HandleWorkflowExpired(session, msg.ExpiredTimer)
	}
}

// handleTextMessage processes text messages.
// Called from session worker - no locking needed.
func (b *Bot) handleTextMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	if message == nil || message.Text == "" {
		return
	}

	// Handle /location command input
	if b.handleLocationInput(session, message.Text) {
		return
	}

	// Plain text fills the form field currently awaited
	if !strings.HasPrefix(message.Text, "/") {
		if b.guideHandler.HandleTextInput(session, message.Text) {
			return
		}
	}

	b.handleCommand(ctx, session, message)
}

// handleCommand processes bot commands.
// Called from session worker - no locking needed.
func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	argsStr := strings.Join(args, " ")
	switch command {
	case "/start":
		session.reply(MsgWelcome)
		b.guideHandler.Start(session)
	case "/new", "/cancel":
		b.guideHandler.Start(session)
	case "/help":
		session.reply(MsgHelp)
	case "/location":
		b.handleLocationCommand(session)
	case "/forgetlocation":
		b.handleForgetLocationCommand(session)
	case "/admin":
		b.handleAdminCommand(session, argsStr)
	case "/version":
		session.reply(MsgVersionInfo, Version, BuildTime)
	default:
		if session.guide.FormMessageID == 0 {
			b.guideHandler.Start(session)
			return
		}
		session.reply(MsgUseButtons)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
// Called from session worker - no locking needed.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	if query == nil {
		return
	}

	// Answer the callback to remove the loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	b.tg.Request(callback)

	if strings.HasPrefix(query.Data, guideCallbackPrefix) {
		b.guideHandler.HandleCallback(session, query)
	}
}

// handleLocationCommand handles /location - view or change the default location.
func (b *Bot) handleLocationCommand(session *UserSession) {
	if b.store == nil {
		session.reply(MsgLocationNotAvailable)
		return
	}

	current, err := b.store.GetSavedLocation(session.userId)
	if err != nil {
		session.replyWithError(err)
		return
	}

	session.setAwaitingLocationInput(true)
	if current != "" {
		session.reply(MsgLocationCurrent, escapeMarkdown(current))
	} else {
		session.reply(MsgLocationNotSet)
	}
}

// handleLocationInput handles text input when awaiting a location from /location.
// Returns true if the message was handled.
// Called from session worker - no locking needed.
func (b *Bot) handleLocationInput(session *UserSession, text string) bool {
	if !session.IsAwaitingLocationInput() {
		return false
	}

	// Any command ends location input; /cancel is consumed here
	if strings.HasPrefix(text, "/") {
		session.setAwaitingLocationInput(false)
		if cmd, _ := parseCommand(text); cmd == "/cancel" {
			session.reply(MsgLocationCommandCancel)
			return true
		}
		return false
	}

	location := strings.TrimSpace(text)
	if !isValidLocation(location) {
		session.reply(MsgLocationInvalid)
		return true
	}

	if err := b.store.SetSavedLocation(session.userId, location); err != nil {
		session.replyWithError(err)
		return true
	}

	session.setAwaitingLocationInput(false)
	LogUser(session.userId, "saved default location")
	session.reply(MsgLocationUpdated, escapeMarkdown(location))
	return true
}

// handleForgetLocationCommand handles /forgetlocation.
func (b *Bot) handleForgetLocationCommand(session *UserSession) {
	if b.store == nil {
		session.reply(MsgLocationNotAvailable)
		return
	}
	if err := b.store.DeleteSavedLocation(session.userId); err != nil {
		session.replyWithError(err)
		return
	}
	session.reply(MsgLocationForgotten)
}

// handleAdminCommand handles /admin command with subcommands.
// Only the admin user can use this command (defense in depth check).
func (b *Bot) handleAdminCommand(session *UserSession, args string) {
	// Verify caller is admin even though whitelist check passed
	if b.adminID == 0 || session.userId != b.adminID {
		return // Silent drop for non-admin users
	}

	parts := strings.Fields(args)
	if len(parts) == 0 {
		session.reply(MsgAdminUsage)
		return
	}

	switch parts[0] {
	case "users":
		if len(parts) < 2 {
			session.reply(MsgAdminUsage)
			return
		}
		b.handleAdminUsersCommand(session, parts[1], parts[2:])
	default:
		session.reply(MsgAdminUsage)
	}
}

// handleAdminUsersCommand handles /admin users subcommands.
func (b *Bot) handleAdminUsersCommand(session *UserSession, action string, args []string) {
	switch action {
	case "add":
		if len(args) < 1 {
			session.reply(MsgAdminUserAddUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.AddAllowedUser(userID, session.userId); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserAdded, userID)

	case "remove":
		if len(args) < 1 {
			session.reply(MsgAdminUserRemoveUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.RemoveAllowedUser(userID); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserRemoved, userID)

	case "list":
		users, err := b.store.GetAllowedUsers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(users) == 0 {
			session.reply(MsgAdminNoUsers)
			return
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf(MsgAdminAllowedUsersFmt, pluralize("user", "users", len(users))))
		for _, u := range users {
			sb.WriteString(fmt.Sprintf("• `%d` (added %s)\n", u.TelegramID, u.AddedAt.Format("2006-01-02")))
		}
		session.reply(sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
