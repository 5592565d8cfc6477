package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/raine/telegram-recycling-bot/internal/guide"
	"github.com/raine/telegram-recycling-bot/internal/llm"
	"github.com/raine/telegram-recycling-bot/internal/storage"
)

const (
	defaultGuidanceTimeout = 60 * time.Second
	workflowExpiry         = 30 * time.Minute
)

var errNoProvider = errors.New("no guidance provider configured")

// GuideHandler drives the recycling form workflow for a session. All state
// changes go through guide.Reduce; this type only translates Telegram input
// into actions and renders the resulting view.
type GuideHandler struct {
	tg       BotAPI
	store    storage.Store
	provider llm.GuidanceProvider
	timeout  time.Duration
	expiry   time.Duration

	requests sync.WaitGroup // in-flight guidance requests
}

// NewGuideHandler creates a new guide handler.
func NewGuideHandler(tg BotAPI, store storage.Store) *GuideHandler {
	return &GuideHandler{
		tg:      tg,
		store:   store,
		timeout: defaultGuidanceTimeout,
		expiry:  workflowExpiry,
	}
}

// Wait blocks until every guidance request goroutine has reported back.
func (h *GuideHandler) Wait() {
	h.requests.Wait()
}

// Start discards any workflow in progress and sends a fresh form.
// Called from session worker - no locking needed.
func (h *GuideHandler) Start(session *UserSession) {
	h.begin(session)
	h.sendForm(session)
}

// begin resets the workflow and pre-fills the saved location without
// rendering anything.
func (h *GuideHandler) begin(session *UserSession) {
	h.clearFormKeyboard(session)
	session.reset()
	session.guide.ResultCached = false
	StartWorkflowLog(session.userId)
	h.prefillLocation(session)
	session.guide.Awaiting = defaultAwaiting(session.guide.State.CurrentStep)
	h.touch(session)
}

func (h *GuideHandler) prefillLocation(session *UserSession) {
	if h.store == nil {
		return
	}
	loc, err := h.store.GetSavedLocation(session.userId)
	if err != nil {
		log.Warn().Err(err).Int64("userId", session.userId).Msg("failed to load saved location")
		return
	}
	if loc != "" {
		h.apply(session, guide.UpdateField{Field: guide.FieldUserLocation, Value: loc})
	}
}

// apply runs action through the reducer and starts the guidance request it
// asks for, if any.
func (h *GuideHandler) apply(session *UserSession, action guide.Action) {
	prev := session.guide.State
	next, effect := guide.Reduce(prev, action)
	session.guide.State = next

	if next.CurrentStep != prev.CurrentStep {
		session.guide.Awaiting = defaultAwaiting(next.CurrentStep)
		LogState(session.userId, "step %s -> %s", prev.CurrentStep, next.CurrentStep)
	}
	if next.Error != "" && next.Error != prev.Error {
		LogState(session.userId, "error: %s", next.Error)
	}

	if req, ok := effect.(guide.RequestGuidance); ok {
		h.startRequest(session, req)
	}
}

// HandleTextInput fills the awaited form field with text. Returns true if the
// message was handled.
// Called from session worker - no locking needed.
func (h *GuideHandler) HandleTextInput(session *UserSession, text string) bool {
	if !session.guide.active() {
		// No workflow yet: the first message is taken as the item name.
		h.begin(session)
	}

	st := session.guide.State
	switch {
	case st.Loading:
		session.reply(MsgGuideStillLoading)
		return true
	case st.HasResult():
		session.reply(MsgGuideHasResult)
		return true
	}

	field := session.guide.Awaiting
	if field == 0 {
		session.reply(MsgUseButtons)
		return true
	}

	LogUser(session.userId, "%s: %q", field, text)
	h.apply(session, guide.UpdateField{Field: field, Value: strings.TrimSpace(text)})
	session.guide.Awaiting = defaultAwaiting(session.guide.State.CurrentStep)

	// Re-send so the form stays below the user's message
	h.clearFormKeyboard(session)
	h.sendForm(session)
	h.touch(session)
	return true
}

// HandleCallback handles guide:* inline keyboard presses.
// Called from session worker - no locking needed.
func (h *GuideHandler) HandleCallback(session *UserSession, query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.Message.MessageID != session.guide.FormMessageID {
		// Buttons of an old form must not change the current workflow
		if query.Message != nil && query.Message.Chat != nil {
			h.removeKeyboard(query.Message.Chat.ID, query.Message.MessageID)
		}
		log.Debug().Int64("userId", session.userId).Str("data", query.Data).Msg("ignoring callback from stale form")
		return
	}

	data := strings.TrimPrefix(query.Data, guideCallbackPrefix)
	LogCallback(session.userId, "%s", data)
	defer h.touch(session)

	name, arg, _ := strings.Cut(data, ":")
	st := session.guide.State

	switch name {
	case "next":
		h.apply(session, guide.Advance{})
	case "back":
		h.apply(session, guide.Back{})
	case "submit":
		h.apply(session, guide.Submit{})
	case "reset":
		h.resetWorkflow(session)
		return
	case "mat":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return
		}
		m, ok := guide.MaterialAt(i)
		if !ok {
			return
		}
		h.apply(session, guide.ToggleMaterial{Material: m})
	case "size":
		i, err := strconv.Atoi(arg)
		if err != nil || i < 0 || i >= len(guide.Sizes) {
			return
		}
		value := string(guide.Sizes[i])
		if st.Item.Size == guide.Sizes[i] {
			value = ""
		}
		h.apply(session, guide.UpdateField{Field: guide.FieldSize, Value: value})
	case "cond":
		i, err := strconv.Atoi(arg)
		if err != nil || i < 0 || i >= len(guide.Conditions) {
			return
		}
		value := string(guide.Conditions[i])
		if st.Item.Condition == guide.Conditions[i] {
			value = ""
		}
		h.apply(session, guide.UpdateField{Field: guide.FieldCondition, Value: value})
	case "edit":
		f, err := strconv.Atoi(arg)
		if err != nil {
			return
		}
		field := guide.Field(f)
		if st.Loading || st.HasResult() || !editableOn(st.CurrentStep, field) {
			return
		}
		session.guide.Awaiting = field
	default:
		log.Warn().Str("data", query.Data).Msg("unknown guide callback")
		return
	}

	h.renderForm(session)
}

// resetWorkflow starts over from a button press. A shown result is kept as
// its own message and a new form is sent below it.
func (h *GuideHandler) resetWorkflow(session *UserSession) {
	hadResult := session.guide.State.HasResult()
	LogState(session.userId, "reset")

	session.cancelGuidanceRequest()
	session.guide.State, _ = guide.Reduce(session.guide.State, guide.Reset{})
	session.guide.ResultCached = false
	h.prefillLocation(session)
	session.guide.Awaiting = defaultAwaiting(session.guide.State.CurrentStep)

	if hadResult {
		h.clearFormKeyboard(session)
		h.sendForm(session)
		return
	}
	h.renderForm(session)
}

// startRequest runs the guidance request in the background. The outcome is
// posted back to the session inbox tagged with the request's generation.
// Called from session worker - no locking needed.
func (h *GuideHandler) startRequest(session *UserSession, req guide.RequestGuidance) {
	session.cancelGuidanceRequest()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	requestID := uuid.NewString()
	session.guide.CancelRequest = cancel
	session.guide.RequestID = requestID

	log.Info().
		Int64("userId", session.userId).
		Str("requestId", requestID).
		Uint64("generation", req.Generation).
		Msg("requesting recycling guidance")
	LogLLM(session.userId, "request %s (generation %d)", requestID, req.Generation)

	h.requests.Add(1)
	go h.fetchGuidance(ctx, cancel, session, req, requestID)
}

func (h *GuideHandler) fetchGuidance(ctx context.Context, cancel context.CancelFunc, session *UserSession, req guide.RequestGuidance, requestID string) {
	defer h.requests.Done()
	defer cancel()

	typingCtx, stopTyping := context.WithCancel(ctx)
	go session.startTypingLoop(typingCtx)

	start := time.Now()
	outcome := &GuidanceOutcome{Generation: req.Generation, RequestID: requestID}
	if h.provider == nil {
		outcome.Err = errNoProvider
	} else {
		result, err := h.provider.GetGuidance(ctx, req.Description)
		if err != nil {
			outcome.Err = err
		} else {
			outcome.Guidance = result.Guidance
			outcome.Usage = result.Usage
			outcome.Cached = result.Cached
		}
	}
	stopTyping()
	outcome.Elapsed = time.Since(start)

	session.Send(SessionMessage{
		Type:            "guidance_complete",
		Ctx:             context.Background(),
		GuidanceOutcome: outcome,
	})
}

// HandleGuidanceComplete applies a finished guidance request. Results from
// requests superseded by a reset or a newer submit are dropped.
// Called from session worker - no locking needed.
func (h *GuideHandler) HandleGuidanceComplete(session *UserSession, outcome *GuidanceOutcome) {
	if outcome == nil {
		return
	}

	var action guide.Action
	if outcome.Err != nil {
		action = guide.GuidanceFailed{Generation: outcome.Generation, Err: outcome.Err}
	} else {
		action = guide.GuidanceReceived{Generation: outcome.Generation, Guidance: outcome.Guidance}
	}

	if guide.IsStale(session.guide.State, action) {
		log.Debug().
			Int64("userId", session.userId).
			Str("requestId", outcome.RequestID).
			Uint64("generation", outcome.Generation).
			Msg("dropping stale guidance result")
		LogLLM(session.userId, "dropped stale result %s", outcome.RequestID)
		return
	}

	if outcome.RequestID == session.guide.RequestID {
		session.guide.CancelRequest = nil
		session.guide.RequestID = ""
	}

	session.guide.ResultCached = outcome.Cached
	h.apply(session, action)

	st := session.guide.State
	if st.LastFailure != nil {
		log.Error().
			Err(st.LastFailure).
			Int64("userId", session.userId).
			Str("requestId", outcome.RequestID).
			Dur("elapsed", outcome.Elapsed).
			Msg("guidance request failed")
		LogError(session.userId, "guidance request %s failed: %v", outcome.RequestID, st.LastFailure)
	} else {
		log.Info().
			Int64("userId", session.userId).
			Str("requestId", outcome.RequestID).
			Bool("cached", outcome.Cached).
			Dur("elapsed", outcome.Elapsed).
			Int64("totalTokens", outcome.Usage.TotalTokens).
			Msg("guidance received")
		LogLLM(session.userId, "result %s cached=%t tokens=%d cost=$%.6f",
			outcome.RequestID, outcome.Cached, outcome.Usage.TotalTokens, outcome.Usage.CostUSD)
	}

	h.renderForm(session)
	h.touch(session)
}

// HandleWorkflowExpired discards a workflow left idle for too long. timer
// identifies the expiration that fired; a timer that was replaced or stopped
// in the meantime is ignored.
// Called from session worker - no locking needed.
func (h *GuideHandler) HandleWorkflowExpired(session *UserSession, timer *time.Timer) {
	if timer == nil || session.guide.ExpirationTimer != timer {
		return
	}
	session.guide.ExpirationTimer = nil

	if !session.guide.active() {
		return
	}

	log.Info().Int64("userId", session.userId).Msg("recycling workflow expired")
	LogState(session.userId, "expired")

	if session.guide.State.HasResult() {
		// Keep the result and its map button; only the workflow goes.
		session.reset()
		return
	}

	h.clearFormKeyboard(session)
	session.reset()
	session.reply(MsgGuideExpired)
}

// touch restarts the expiration timer.
func (h *GuideHandler) touch(session *UserSession) {
	session.stopExpirationTimer()
	var timer *time.Timer
	timer = time.AfterFunc(h.expiry, func() {
		session.Send(SessionMessage{
			Type:         "workflow_expired",
			Ctx:          context.Background(),
			ExpiredTimer: timer,
		})
	})
	session.guide.ExpirationTimer = timer
}

// sendForm sends the current view as a new message and makes it the form.
// When the send fails the previous form message stays current, so the next
// render edits it back into shape.
func (h *GuideHandler) sendForm(session *UserSession) {
	g := &session.guide
	text, markup := renderView(g.State.View(), g.Awaiting, g.ResultCached)
	msg := tgbotapi.NewMessage(session.userId, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = markup
	if sent := session.replyWithMessage(msg); sent.MessageID != 0 {
		g.FormMessageID = sent.MessageID
	}
}

// renderForm edits the form message in place, falling back to sending a new
// one when the edit is impossible.
func (h *GuideHandler) renderForm(session *UserSession) {
	g := &session.guide
	if g.FormMessageID == 0 {
		h.sendForm(session)
		return
	}

	text, markup := renderView(g.State.View(), g.Awaiting, g.ResultCached)
	edit := tgbotapi.NewEditMessageTextAndMarkup(session.userId, g.FormMessageID, text, markup)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.tg.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		log.Warn().Err(err).Int64("userId", session.userId).Msg("failed to edit form message, sending a new one")
		h.sendForm(session)
	}
}

// clearFormKeyboard removes the buttons from the current form message.
func (h *GuideHandler) clearFormKeyboard(session *UserSession) {
	if session.guide.FormMessageID == 0 {
		return
	}
	h.removeKeyboard(session.userId, session.guide.FormMessageID)
}

func (h *GuideHandler) removeKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(
		chatID,
		messageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	if _, err := h.tg.Request(edit); err != nil {
		log.Debug().Err(err).Int("messageId", messageID).Msg("failed to remove inline keyboard")
	}
}
