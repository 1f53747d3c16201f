// Package notify forwards booking and ticket events to the managers' Telegram
// chats.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"arenapanel/internal/config"
	"arenapanel/internal/domain"
	"arenapanel/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const queueSize = 100

// Telegram allows about 30 messages per second per bot.
const sendRate = rate.Limit(25)

type outgoing struct {
	chatID int64
	text   string
}

type Notifier struct {
	sender  domain.TelegramSender
	chatIDs []int64
	queue   chan outgoing
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// NewBot connects to the Bot API.
func NewBot(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

func NewNotifier(sender domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		chatIDs: chatIDs,
		queue:   make(chan outgoing, queueSize),
		limiter: rate.NewLimiter(sendRate, 1),
		logger:  logger,
	}
}

// Subscribe registers the notifier's handlers. Handlers only enqueue; Start
// does the sending.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.onBooking)
	bus.Subscribe(events.EventBookingStatusChanged, n.onBooking)
	bus.Subscribe(events.EventBookingDeleted, n.onBooking)
	bus.Subscribe(events.EventTicketCreated, n.onTicket)
	bus.Subscribe(events.EventUserRegistered, n.onUser)
}

func (n *Notifier) Start(ctx context.Context) {
	n.logger.Info().Int("chats", len(n.chatIDs)).Msg("telegram notifier started")
	for {
		select {
		case <-ctx.Done():
			n.logger.Info().Msg("telegram notifier stopped")
			return
		case msg := <-n.queue:
			if err := n.limiter.Wait(ctx); err != nil {
				return
			}
			if err := n.send(msg); err != nil {
				n.logger.Error().Err(err).Int64("chat_id", msg.chatID).Msg("telegram send failed")
			}
		}
	}
}

func (n *Notifier) send(msg outgoing) error {
	m := tgbotapi.NewMessage(msg.chatID, msg.text)
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true
	_, err := n.sender.Send(m)
	return err
}

func (n *Notifier) broadcast(text string) {
	for _, chatID := range n.chatIDs {
		select {
		case n.queue <- outgoing{chatID: chatID, text: text}:
		default:
			n.logger.Warn().Int64("chat_id", chatID).Msg("telegram queue full, dropping notification")
		}
	}
}

func (n *Notifier) onBooking(ev *events.Event) error {
	var p events.BookingEventPayload
	if err := ev.Decode(&p); err != nil {
		return err
	}
	n.broadcast(FormatBooking(ev.Type, p))
	return nil
}

func (n *Notifier) onTicket(ev *events.Event) error {
	var p events.TicketEventPayload
	if err := ev.Decode(&p); err != nil {
		return err
	}
	n.broadcast(FormatTicket(p))
	return nil
}

func (n *Notifier) onUser(ev *events.Event) error {
	var p events.UserEventPayload
	if err := ev.Decode(&p); err != nil {
		return err
	}
	n.broadcast(fmt.Sprintf("👤 <b>New account</b>\n%s &lt;%s&gt;", html.EscapeString(p.Name), html.EscapeString(p.Email)))
	return nil
}

var bookingHeadlines = map[string]string{
	events.EventBookingCreated:       "📅 <b>New booking</b>",
	events.EventBookingStatusChanged: "🔄 <b>Booking status changed</b>",
	events.EventBookingDeleted:       "🗑 <b>Booking deleted</b>",
}

func FormatBooking(eventType string, p events.BookingEventPayload) string {
	headline, ok := bookingHeadlines[eventType]
	if !ok {
		headline = "<b>Booking updated</b>"
	}

	var sb strings.Builder
	sb.WriteString(headline)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "#%d %s\n", p.BookingID, html.EscapeString(p.Title))
	fmt.Fprintf(&sb, "%s, %s %s-%s\n", html.EscapeString(p.SpaceName), p.Date, p.StartTime, p.EndTime)
	fmt.Fprintf(&sb, "Status: %s", p.Status)
	return sb.String()
}

func FormatTicket(p events.TicketEventPayload) string {
	var sb strings.Builder
	sb.WriteString("🎫 <b>New ticket</b>\n")
	fmt.Fprintf(&sb, "#%d %s\n", p.TicketID, html.EscapeString(p.Title))
	fmt.Fprintf(&sb, "Requested by %s", html.EscapeString(p.Requester))
	if p.SpaceName != "" {
		fmt.Fprintf(&sb, " for %s", html.EscapeString(p.SpaceName))
	}
	return sb.String()
}
