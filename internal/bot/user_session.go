package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/raine/telegram-recycling-bot/internal/guide"
	"github.com/raine/telegram-recycling-bot/internal/llm"
)

// SessionMessage represents a message to be processed by the session worker.
type SessionMessage struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)

	// Message data (only one is set based on Type)
	Message       *tgbotapi.Message
	CallbackQuery *tgbotapi.CallbackQuery

	// Workflow expiration data
	ExpiredTimer *time.Timer // For workflow_expired messages - used to validate the timer is still current

	// Background guidance request data
	GuidanceOutcome *GuidanceOutcome // For guidance_complete messages
}

// GuidanceOutcome is the result of a background guidance request, tagged with
// the workflow generation it was requested under.
type GuidanceOutcome struct {
	Generation uint64
	RequestID  string
	Guidance   *guide.Guidance
	Usage      llm.Usage
	Cached     bool
	Elapsed    time.Duration
	Err        error
}

// MessageSender abstracts the ability to send Telegram messages.
// This interface decouples UserSession from the full Bot struct,
// improving testability.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// GuideSession holds the recycling form workflow for one user.
type GuideSession struct {
	State           guide.State
	FormMessageID   int         // Message carrying the form; edited in place
	Awaiting        guide.Field // Field that the next text message fills, 0 for none
	ExpirationTimer *time.Timer
	CancelRequest   context.CancelFunc // Cancels the in-flight guidance request
	RequestID       string
	ResultCached    bool // Shown result came from the guidance cache
}

// active reports whether a workflow is in progress. A failed form send leaves
// FormMessageID unset, so the workflow state is checked as well.
func (g *GuideSession) active() bool {
	st := g.State
	return g.FormMessageID != 0 ||
		st.CurrentStep > guide.StepItem ||
		!st.Item.IsZero() ||
		st.Loading ||
		st.HasResult()
}

// MessageHandler is the interface for processing session messages.
// This allows the session to dispatch to external handlers without circular dependencies.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// UserSession represents a user's session with the bot.
//
// Threading model:
//   - Each session has a dedicated worker goroutine that processes messages sequentially
//   - Message handlers are called only from the worker and can access session
//     state without locks
//   - Public accessors use the mutex for external callers
//   - Guidance requests run in their own goroutines and report back through
//     the inbox, never touching session state directly
type UserSession struct {
	userId int64
	sender MessageSender
	mu     sync.Mutex

	// Worker channel for sequential message processing
	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler // Set after construction to avoid circular deps

	guide GuideSession

	// /location command state
	awaitingLocationInput bool
}

// --- Thread-safe accessors ---

// UserID returns the Telegram user ID the session belongs to.
func (s *UserSession) UserID() int64 {
	return s.userId
}

// IsAwaitingLocationInput reports whether the next text message sets the
// default location.
func (s *UserSession) IsAwaitingLocationInput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitingLocationInput
}

func (s *UserSession) setAwaitingLocationInput(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitingLocationInput = v
}

// reset cancels any in-flight request and discards the workflow. The new
// state's generation is bumped so late results from the cancelled request
// are dropped.
// Called from session worker - no locking needed.
func (s *UserSession) reset() {
	log.Info().Int64("userId", s.userId).Msg("reset user session")
	s.cancelGuidanceRequest()
	s.stopExpirationTimer()
	s.guide.State, _ = guide.Reduce(s.guide.State, guide.Reset{})
	s.guide.FormMessageID = 0
	s.guide.Awaiting = 0
	s.setAwaitingLocationInput(false)
}

// cancelGuidanceRequest cancels the in-flight guidance request, if any.
// Called from session worker - no locking needed.
func (s *UserSession) cancelGuidanceRequest() {
	if s.guide.CancelRequest != nil {
		s.guide.CancelRequest()
		s.guide.CancelRequest = nil
		log.Debug().Int64("userId", s.userId).Str("requestID", s.guide.RequestID).Msg("cancelled guidance request")
	}
	s.guide.RequestID = ""
}

// stopExpirationTimer stops the workflow expiration timer if running.
// Called from session worker - no locking needed.
func (s *UserSession) stopExpirationTimer() {
	if s.guide.ExpirationTimer != nil {
		s.guide.ExpirationTimer.Stop()
		s.guide.ExpirationTimer = nil
	}
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Stack().Err(err).Send()
	return s._reply(formatReplyText(MsgUnexpectedErr, escapeMarkdown(err.Error())))
}

// sendTypingAction sends a "typing" chat action to show the user that the bot is processing.
// The typing indicator automatically expires after ~5 seconds in Telegram.
func (s *UserSession) sendTypingAction() {
	action := tgbotapi.NewChatAction(s.userId, tgbotapi.ChatTyping)
	// Use Request instead of Send because sendChatAction returns a boolean, not a Message
	_, err := s.sender.Request(action)
	if err != nil {
		log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to send typing action")
	}
}

// startTypingLoop sends a typing action every 4 seconds until the context is cancelled.
// Run this in a goroutine and cancel the context when done.
func (s *UserSession) startTypingLoop(ctx context.Context) {
	s.sendTypingAction()

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendTypingAction()
		}
	}
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Interface("msg", msg).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		log.Debug().Int64("userId", s.userId).Int("messageId", sent.MessageID).Msg("sent message")
	}

	return sent
}

func (s *UserSession) _reply(text string) tgbotapi.Message {
	msg := tgbotapi.MessageConfig{
		Text:      text,
		ParseMode: tgbotapi.ModeMarkdown,
	}
	return s.replyWithMessage(msg)
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s._reply(formatReplyText(text, a...))
}

// --- Worker methods ---

// StartWorker starts the session's message processing worker goroutine.
// Must be called after setting the handler.
func (s *UserSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

// SetHandler sets the message handler for this session.
func (s *UserSession) SetHandler(handler MessageHandler) {
	s.handler = handler
}

// runWorker is the main worker loop that processes messages sequentially.
func (s *UserSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain any remaining messages and signal completion
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

// processMessage handles a single message from the inbox.
func (s *UserSession) processMessage(msg SessionMessage) {
	defer func() {
		// Recover from any panics to keep the worker running
		if r := recover(); r != nil {
			log.Error().
				Int64("userId", s.userId).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Int64("userId", s.userId).Msg("session handler not set")
		return
	}

	s.handler.HandleSessionMessage(msg.Ctx, s, msg)
}

// Send queues a message for processing by the worker.
// Blocks only while the inbox is full; returns immediately once the session
// has been stopped.
func (s *UserSession) Send(msg SessionMessage) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits for it to be processed.
// Returns when the message has been fully processed by the worker.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop stops the worker and waits for it to finish. Any in-flight guidance
// request is cancelled.
func (s *UserSession) Stop() {
	s.cancel()
	s.wg.Wait()
	// The worker has exited, so nothing else touches guide state now.
	s.cancelGuidanceRequest()
	s.stopExpirationTimer()
}
