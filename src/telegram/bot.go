// Package telegram connects the request pipeline to a Telegram bot. Every
// inbound text message is treated as a form link and handled on its own
// goroutine; /start answers with a greeting.
package telegram

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Protocol-Lattice/quizbot/src/logger"
	"github.com/Protocol-Lattice/quizbot/src/pipeline"
)

// MaxMessageLength is the longest text Telegram accepts in one message.
const MaxMessageLength = 4096

// Sender is the outbound half of *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// API is the part of *tgbotapi.BotAPI the long-poll loop needs.
type API interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler runs one form request. *pipeline.Pipeline satisfies it.
type Handler interface {
	Handle(ctx context.Context, rawURL string, reply pipeline.Replier) error
}

type Bot struct {
	api     API
	handler Handler
	timeout time.Duration
	log     *logger.Logger

	wg sync.WaitGroup
}

// New returns a Bot. timeout bounds each request; zero disables the deadline.
func New(api API, handler Handler, timeout time.Duration, log *logger.Logger) *Bot {
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{api: api, handler: handler, timeout: timeout, log: log}
}

// Run long-polls for updates until ctx is cancelled, then waits for the
// requests already in flight.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.log.Info("polling for updates")

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("stopped polling", "reason", ctx.Err())
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches one update. Form requests run asynchronously so a
// slow backend call never holds up other chats.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	reply := ChatReplier{Sender: b.api, ChatID: msg.Chat.ID, ReplyTo: msg.MessageID}
	log := b.log.With("chat_id", msg.Chat.ID, "message_id", msg.MessageID)

	if msg.IsCommand() {
		if msg.Command() == "start" {
			if err := reply.Reply(ctx, pipeline.MsgGreeting); err != nil {
				log.Warn("sending greeting failed", "error", err)
			}
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		reqCtx, cancel := b.requestContext(ctx)
		defer cancel()

		if err := b.handler.Handle(reqCtx, text, reply); err != nil {
			log.Warn("request finished with error", "error", err)
			return
		}
		log.Info("request answered")
	}()
}

// Wait blocks until every dispatched request has returned.
func (b *Bot) Wait() { b.wg.Wait() }

func (b *Bot) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	// Requests outlive a shutdown signal so in-flight answers still go out.
	ctx = context.WithoutCancel(ctx)
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// ChatReplier sends pipeline replies to one chat, splitting long texts.
type ChatReplier struct {
	Sender  Sender
	ChatID  int64
	ReplyTo int
}

func (r ChatReplier) Reply(ctx context.Context, text string) error {
	for i, part := range Split(text, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := tgbotapi.NewMessage(r.ChatID, part)
		if i == 0 {
			m.ReplyToMessageID = r.ReplyTo
		}
		if _, err := r.Sender.Send(m); err != nil {
			return err
		}
	}
	return nil
}

// Split breaks text into chunks of at most limit runes, preferring to cut
// after a newline.
func Split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
