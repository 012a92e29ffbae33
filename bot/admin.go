package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"anonymous-relay-bot/storage"
)

const usersPerPage = 10

func (b *Bot) adminHandler(_ *telego.Bot, update telego.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !b.isAdmin(msg.From.ID) {
		return
	}
	b.sendAdminPanel(msg.Chat.ID)
}

func (b *Bot) sendAdminPanel(chatID int64) {
	keyboard := &telego.InlineKeyboardMarkup{InlineKeyboard: [][]telego.InlineKeyboardButton{
		{{Text: "Broadcast", CallbackData: "admin:broadcast"}},
		{{Text: "Statistics", CallbackData: "admin:stats"}},
		{{Text: "Users", CallbackData: "admin:users"}},
	}}
	b.sendHTML(chatID, "<b>Welcome to the admin panel!</b>\nChoose an action:", keyboard)
}

// callbackHandler routes every admin menu button. Entering a flow while
// another is pending silently overwrites the pending one.
func (b *Bot) callbackHandler(_ *telego.Bot, update telego.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}
	defer b.answerCallback(query.ID)

	adminID := query.From.ID
	if !b.isAdmin(adminID) {
		return
	}

	switch {
	case query.Data == "admin:panel":
		b.sendAdminPanel(adminID)
	case query.Data == "admin:stats":
		b.showStatistics(adminID)
	case query.Data == "admin:users":
		b.sendUsersMenu(adminID)
	case query.Data == "admin:broadcast":
		b.sessions.Set(adminID, Session{State: StateAwaitingBroadcast})
		b.sendHTML(adminID, "<b>Send the message you want to broadcast:</b>\n"+
			"Text, or a photo/video with a caption.", nil)
	case query.Data == "admin:mute":
		b.sessions.Set(adminID, Session{State: StateAwaitingMuteUserID})
		b.sendMessage(adminID, "Send the ID of the user to mute:")
	case query.Data == "admin:unmute":
		b.sessions.Set(adminID, Session{State: StateAwaitingUnmuteID})
		b.sendMessage(adminID, "Send the ID of the user to unmute:")
	case query.Data == "admin:search":
		b.sessions.Set(adminID, Session{State: StateAwaitingSearchID})
		b.sendMessage(adminID, "Send the ID of the user to look up:")
	case strings.HasPrefix(query.Data, "admin:recent:"):
		page, err := strconv.Atoi(strings.TrimPrefix(query.Data, "admin:recent:"))
		if err != nil || page < 1 {
			page = 1
		}
		b.showRecentUsers(adminID, page)
	case strings.HasPrefix(query.Data, "admin:user:"):
		userID, err := strconv.ParseInt(strings.TrimPrefix(query.Data, "admin:user:"), 10, 64)
		if err == nil {
			b.showUserInfo(adminID, userID)
		}
	}
}

func (b *Bot) sendUsersMenu(chatID int64) {
	keyboard := &telego.InlineKeyboardMarkup{InlineKeyboard: [][]telego.InlineKeyboardButton{
		{{Text: "Search user", CallbackData: "admin:search"}},
		{{Text: "Recent users", CallbackData: "admin:recent:1"}},
		{{Text: "Mute", CallbackData: "admin:mute"}},
		{{Text: "Unmute", CallbackData: "admin:unmute"}},
		{{Text: "Back", CallbackData: "admin:panel"}},
	}}
	b.sendHTML(chatID, "<b>User management:</b>\nChoose a function:", keyboard)
}

func (b *Bot) showStatistics(chatID int64) {
	now := b.storage.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	total, err := b.storage.CountUsers()
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		return
	}
	today, err := b.storage.CountUsersSince(dayStart)
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		return
	}
	month, err := b.storage.CountUsersSince(monthStart)
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		return
	}

	keyboard := &telego.InlineKeyboardMarkup{InlineKeyboard: [][]telego.InlineKeyboardButton{
		{{Text: "Back", CallbackData: "admin:panel"}},
	}}
	b.sendHTML(chatID, fmt.Sprintf(
		"<b>Statistics</b>\n\n"+
			"Total users: <b>%d</b>\n"+
			"Joined this month: <b>%d</b>\n"+
			"Joined today: <b>%d</b>",
		total, month, today,
	), keyboard)
}

func (b *Bot) showRecentUsers(chatID int64, page int) {
	total, err := b.storage.CountUsers()
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		return
	}
	users, err := b.storage.RecentUsers(usersPerPage, (page-1)*usersPerPage)
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		return
	}
	totalPages := (int(total) + usersPerPage - 1) / usersPerPage

	var sb strings.Builder
	sb.WriteString("<b>Recent users:</b>\n\n")
	if len(users) == 0 {
		sb.WriteString("No users found.")
	}
	var rows [][]telego.InlineKeyboardButton
	for _, user := range users {
		fmt.Fprintf(&sb, "<code>%d</code> | %s | %s\n",
			user.UserID, html.EscapeString(user.Name), formatTime(user.CreatedAt))
		rows = append(rows, []telego.InlineKeyboardButton{{
			Text:         user.Name,
			CallbackData: fmt.Sprintf("admin:user:%d", user.UserID),
		}})
	}

	var nav []telego.InlineKeyboardButton
	if page > 1 {
		nav = append(nav, telego.InlineKeyboardButton{
			Text:         "Previous",
			CallbackData: fmt.Sprintf("admin:recent:%d", page-1),
		})
	}
	if page < totalPages {
		nav = append(nav, telego.InlineKeyboardButton{
			Text:         "Next",
			CallbackData: fmt.Sprintf("admin:recent:%d", page+1),
		})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []telego.InlineKeyboardButton{{Text: "Back", CallbackData: "admin:users"}})

	b.sendHTML(chatID, sb.String(), &telego.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (b *Bot) showUserInfo(chatID, userID int64) {
	user, err := b.storage.FindUserByID(userID)
	if errors.Is(err, storage.ErrNotFound) {
		b.sendMessage(chatID, "No such user.")
		return
	}
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		return
	}

	muted, until, err := b.storage.IsMuted(userID)
	if err != nil {
		b.sendMessage(chatID, msgDatabaseError)
		return
	}
	muteLine := "no"
	if muted {
		muteLine = "until " + formatTime(until)
	}
	adminLine := "no"
	if user.IsAdmin {
		adminLine = "yes"
	}

	b.sendHTML(chatID, fmt.Sprintf(
		"<b>User info:</b>\n\n"+
			"ID: <code>%d</code>\n"+
			"Name: %s\n"+
			"Registered: %s\n"+
			"Admin: %s\n"+
			"Muted: %s",
		user.UserID, html.EscapeString(user.Name), formatTime(user.CreatedAt), adminLine, muteLine,
	), nil)
}

// Moderation flow steps. Invalid input re-prompts the same state without
// advancing; fields collected in earlier steps stay in the session.

func (b *Bot) muteUserIDStep(msg *telego.Message) {
	userID, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Invalid ID. Try again.")
		return
	}
	b.sessions.Set(msg.From.ID, Session{State: StateAwaitingMuteDuration, MuteUserID: userID})
	b.sendMessage(msg.Chat.ID, "How many minutes should the mute last? (e.g. 60)")
}

func (b *Bot) muteDurationStep(msg *telego.Message, sess Session) {
	minutes, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil || minutes <= 0 {
		b.sendMessage(msg.Chat.ID, "Invalid number. Try again.")
		return
	}
	sess.State = StateAwaitingMuteReason
	sess.MutedUntil = b.storage.Now().Add(time.Duration(minutes) * time.Minute)
	b.sessions.Set(msg.From.ID, sess)
	b.sendMessage(msg.Chat.ID, "Now send the reason:")
}

func (b *Bot) muteReasonStep(msg *telego.Message, sess Session) {
	reason := strings.TrimSpace(msg.Text)
	b.sessions.Clear(msg.From.ID)

	if err := b.storage.SetMute(sess.MuteUserID, sess.MutedUntil, reason); err != nil {
		b.sendMessage(msg.Chat.ID, msgDatabaseError)
		return
	}
	b.sendHTML(msg.Chat.ID, fmt.Sprintf(
		"<a href=\"tg://user?id=%d\">User</a> muted until %s.\nReason: <i>%s</i>",
		sess.MuteUserID, formatTime(sess.MutedUntil), html.EscapeString(reason),
	), nil)
}

func (b *Bot) unmuteStep(msg *telego.Message) {
	userID, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Invalid ID. Try again.")
		return
	}
	b.sessions.Clear(msg.From.ID)

	removed, err := b.storage.ClearMute(userID)
	if err != nil {
		b.sendMessage(msg.Chat.ID, msgDatabaseError)
		return
	}
	if removed {
		b.sendHTML(msg.Chat.ID, fmt.Sprintf(
			"<a href=\"tg://user?id=%d\">User</a> has been unmuted.", userID), nil)
	} else {
		b.sendMessage(msg.Chat.ID, "This user was not muted.")
	}
}

func (b *Bot) searchStep(msg *telego.Message) {
	userID, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Invalid ID format. Send digits only.")
		return
	}
	b.sessions.Clear(msg.From.ID)
	b.showUserInfo(msg.Chat.ID, userID)
}

// runBroadcast consumes the awaited broadcast payload and runs the engine
// over every registered user, reporting progress and the final counts back
// to the initiating admin.
func (b *Bot) runBroadcast(msg *telego.Message) {
	b.sessions.Clear(msg.From.ID)

	recipients, err := b.storage.AllUserIDs()
	if err != nil {
		b.sendMessage(msg.Chat.ID, msgDatabaseError)
		return
	}

	b.sendHTML(msg.Chat.ID, "<i>Sending the message...</i>", nil)

	report := b.broadcaster.Broadcast(context.Background(), msg.Chat.ID, msg.MessageID, recipients,
		func(done, total int) {
			b.sendHTML(msg.Chat.ID, fmt.Sprintf("<i>Sending: %d / %d users...</i>", done, total), nil)
		})

	b.sendHTML(msg.Chat.ID, fmt.Sprintf(
		"<b>Broadcast finished!</b>\n\nDelivered: <b>%d</b>\nFailed: <b>%d</b>",
		report.Sent, report.Failed,
	), nil)
}

func (b *Bot) answerCallback(queryID string) {
	err := b.client.AnswerCallbackQuery(&telego.AnswerCallbackQueryParams{CallbackQueryID: queryID})
	if err != nil {
		slog.Error("bot: Failed to answer callback query", "error", err)
	}
}
