package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const msgDatabaseError = "Database error. Please try again later."

func (b *Bot) sendMessage(chatID int64, text string) {
	_, err := b.client.SendMessage(tu.Message(tu.ID(chatID), text))
	if err != nil {
		slog.Error("bot: Failed to send message", "error", err, "chat_id", chatID)
	}
}

func (b *Bot) sendHTML(chatID int64, text string, markup telego.ReplyMarkup) {
	params := tu.Message(tu.ID(chatID), text)
	params.ParseMode = telego.ModeHTML
	params.ReplyMarkup = markup

	_, err := b.client.SendMessage(params)
	if err != nil {
		slog.Error("bot: Failed to send message", "error", err, "chat_id", chatID)
	}
}

func (b *Bot) inviteLink(token string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", b.username, token)
}

// commandArgument returns the first argument carried on a command, such as
// the invitation token on "/start <token>".
func commandArgument(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func fullName(user *telego.User) string {
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
