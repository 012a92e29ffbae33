package bot

import (
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"

	"anonymous-relay-bot/storage"
)

type DeliveryStatus int

const (
	// Delivered means the transport accepted the message.
	Delivered DeliveryStatus = iota
	// RecipientUnreachable means the recipient has blocked or removed the
	// bot. Reported to the sender, never retried.
	RecipientUnreachable
	// TransportRejected covers malformed payloads and other transport
	// errors. The detail is surfaced to the sender, no retry.
	TransportRejected
)

type DeliveryResult struct {
	Status DeliveryStatus
	Detail string
}

const anonymousMessageHeader = "<b>You have a new anonymous message!</b>"

// sendPersonalLink handles /start without an argument: ensures the user has
// an identity (allocating the invitation token on first contact) and sends
// back the personal shareable link.
func (b *Bot) sendPersonalLink(chatID int64, from *telego.User) {
	user, err := b.storage.FindOrCreateUser(from.ID, from.Username, fullName(from))
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		return
	}

	link := b.inviteLink(user.Token)
	keyboard := &telego.InlineKeyboardMarkup{InlineKeyboard: [][]telego.InlineKeyboardButton{
		{{Text: "Share", URL: "https://t.me/share/url?url=" + link}},
	}}

	b.sendHTML(chatID, fmt.Sprintf(
		"<b>Welcome, %s!</b>\n"+
			"<b>This is your personal link:</b>\n\n%s\n\n"+
			"<b>Share it to receive anonymous messages!</b>",
		html.EscapeString(user.Name), link,
	), keyboard)
}

// openConversation handles /start with an invitation token. The mute gate
// runs exactly once, before token resolution; a muted sender is rejected
// with the active expiry and no conversation state is created.
func (b *Bot) openConversation(chatID int64, from *telego.User, token string) {
	muted, until, err := b.storage.IsMuted(from.ID)
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		return
	}
	if muted {
		b.sendMessage(chatID, fmt.Sprintf(
			"You are temporarily muted and cannot send messages.\n"+
				"The mute lasts until %s. Please wait.",
			formatTime(until),
		))
		return
	}

	target, err := b.storage.FindUserByToken(token)
	if errors.Is(err, storage.ErrNotFound) {
		b.sendHTML(chatID, "<b>Invalid link.</b>", nil)
		return
	}
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		return
	}

	b.sessions.Set(from.ID, Session{State: StateAwaitingQuestion, TargetID: target.UserID})
	b.sendHTML(chatID, "<b>Write your message here!</b>", nil)
}

// completeConversation relays the pending message to the resolved target.
// The only identity the target sees is the sender's own invitation link on
// the reply button. The session is cleared after the delivery attempt
// regardless of the outcome, so a failed delivery cannot trap the sender in
// a stuck state; only an unsupported payload keeps the state pending so the
// sender can retry with different content.
func (b *Bot) completeConversation(msg *telego.Message, sess Session) {
	chatID := msg.Chat.ID

	sender, err := b.storage.FindOrCreateUser(msg.From.ID, msg.From.Username, fullName(msg.From))
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		b.sessions.Clear(msg.From.ID)
		return
	}

	payload, ok := payloadFromMessage(msg)
	if !ok {
		b.sendHTML(chatID, "<b>This message type is not supported.</b>", nil)
		return
	}

	replyKeyboard := &telego.InlineKeyboardMarkup{InlineKeyboard: [][]telego.InlineKeyboardButton{
		{{Text: "Reply", URL: b.inviteLink(sender.Token)}},
	}}

	result := classifyDelivery(b.sendPayload(sess.TargetID, payload, anonymousMessageHeader, replyKeyboard))
	switch result.Status {
	case Delivered:
		if payload.Kind == PayloadText {
			if err := b.storage.LogMessage(sender.UserID, sess.TargetID, payload.Text); err != nil {
				slog.Error("bot: Failed to write message log", "error", err)
			}
		} else {
			b.copyToLogChannel(sender, sess.TargetID, payload)
		}
		b.sendMessage(chatID, "Your message has been sent!")
	case RecipientUnreachable:
		b.sendMessage(chatID, "Message not delivered. The recipient has blocked the bot.")
	case TransportRejected:
		b.sendMessage(chatID, "Something went wrong: "+result.Detail)
	}

	b.sessions.Clear(msg.From.ID)
}

// copyToLogChannel mirrors a relayed media message into the audit channel,
// annotated with sender and receiver. Text messages go to the message_log
// table instead.
func (b *Bot) copyToLogChannel(sender *storage.User, receiverID int64, p Payload) {
	if b.logChannelID == 0 {
		return
	}

	caption := fmt.Sprintf(
		"<b>From:</b> <a href=\"tg://user?id=%d\">%s</a>\n"+
			"<b>To:</b> <a href=\"tg://user?id=%d\">%d</a>",
		sender.UserID, html.EscapeString(sender.Name), receiverID, receiverID,
	)
	if err := b.sendPayload(b.logChannelID, p, caption, nil); err != nil {
		slog.Error("bot: Failed to copy message to log channel", "error", err, "channel_id", b.logChannelID)
	}
}

// classifyDelivery maps a transport error onto the delivery outcome.
// Telegram reports a blocked or deactivated recipient as 403.
func classifyDelivery(err error) DeliveryResult {
	if err == nil {
		return DeliveryResult{Status: Delivered}
	}

	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode == 403 {
			return DeliveryResult{Status: RecipientUnreachable, Detail: apiErr.Description}
		}
		return DeliveryResult{Status: TransportRejected, Detail: apiErr.Description}
	}
	return DeliveryResult{Status: TransportRejected, Detail: err.Error()}
}
