package bot

import (
	"errors"
	"log/slog"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"anonymous-relay-bot/storage"
)

var (
	ErrGetMe          = errors.New("cannot retrieve api user")
	ErrUpdatesChannel = errors.New("cannot get updates channel")
	ErrHandlerInit    = errors.New("cannot initialize handler")
)

// transport is the slice of the Telegram client the relay and the admin
// flows depend on. *telego.Bot satisfies it; tests substitute a fake.
type transport interface {
	SendMessage(params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(params *telego.SendPhotoParams) (*telego.Message, error)
	SendVideo(params *telego.SendVideoParams) (*telego.Message, error)
	SendVoice(params *telego.SendVoiceParams) (*telego.Message, error)
	SendDocument(params *telego.SendDocumentParams) (*telego.Message, error)
	CopyMessage(params *telego.CopyMessageParams) (*telego.MessageID, error)
	AnswerCallbackQuery(params *telego.AnswerCallbackQueryParams) error
}

type Bot struct {
	api         *telego.Bot
	client      transport
	storage     *storage.Storage
	sessions    *SessionStore
	broadcaster *Broadcaster

	username     string
	logChannelID int64
	adminURL     string
}

func New(api *telego.Bot, store *storage.Storage, logChannelID int64, adminURL string) *Bot {
	return &Bot{
		api:          api,
		client:       api,
		storage:      store,
		sessions:     NewSessionStore(),
		broadcaster:  NewBroadcaster(api),
		logChannelID: logChannelID,
		adminURL:     adminURL,
	}
}

// Run starts long polling and blocks until the update channel closes.
func (b *Bot) Run() error {
	botUser, err := b.api.GetMe()
	if err != nil {
		slog.Error("bot: Cannot retrieve api user", "error", err)
		return ErrGetMe
	}
	b.username = botUser.Username

	slog.Info("bot: Running as", "id", botUser.ID, "username", botUser.Username)

	updates, err := b.api.UpdatesViaLongPolling(nil)
	if err != nil {
		slog.Error("bot: Cannot get update channel", "error", err)
		return ErrUpdatesChannel
	}

	bh, err := th.NewBotHandler(b.api, updates)
	if err != nil {
		slog.Error("bot: Cannot initialize bot handler", "error", err)
		return ErrHandlerInit
	}

	defer bh.Stop()
	defer b.api.StopLongPolling()

	bh.Handle(b.startHandler, th.CommandEqual("start"))
	bh.Handle(b.helpHandler, th.CommandEqual("help"))
	bh.Handle(b.adminHandler, th.CommandEqual("admin"))
	bh.Handle(b.callbackHandler, th.AnyCallbackQuery())
	bh.Handle(b.messageHandler, th.AnyMessage())

	bh.Start()

	return nil
}

// startHandler issues the personal link on a bare /start, or opens a routed
// conversation when the command carries an invitation token.
func (b *Bot) startHandler(_ *telego.Bot, update telego.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	token := commandArgument(msg.Text)
	if token == "" {
		b.sendPersonalLink(msg.Chat.ID, msg.From)
		return
	}
	b.openConversation(msg.Chat.ID, msg.From, token)
}

func (b *Bot) helpHandler(_ *telego.Bot, update telego.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if b.isAdmin(msg.From.ID) {
		b.sendHTML(msg.Chat.ID,
			"<b>Admin help</b>\n\n"+
				"You are logged in as an admin. Available commands:\n"+
				"/admin - admin panel\n",
			nil)
		return
	}

	text := "<b>Help</b>\n\n" +
		"Available commands:\n" +
		"/start - get your personal link\n" +
		"/help - this message"
	if b.adminURL != "" {
		text += "\n\nIf you need assistance, contact the <a href=\"" + b.adminURL + "\">admin</a>."
	}
	b.sendHTML(msg.Chat.ID, text, nil)
}

// messageHandler advances whatever flow the sender is in. Messages from
// senders with no active state are ignored.
func (b *Bot) messageHandler(_ *telego.Bot, update telego.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	sess := b.sessions.Get(msg.From.ID)
	switch sess.State {
	case StateAwaitingQuestion:
		b.completeConversation(msg, sess)
	case StateAwaitingMuteUserID:
		b.muteUserIDStep(msg)
	case StateAwaitingMuteDuration:
		b.muteDurationStep(msg, sess)
	case StateAwaitingMuteReason:
		b.muteReasonStep(msg, sess)
	case StateAwaitingUnmuteID:
		b.unmuteStep(msg)
	case StateAwaitingBroadcast:
		b.runBroadcast(msg)
	case StateAwaitingSearchID:
		b.searchStep(msg)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	user, err := b.storage.FindUserByID(userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("bot: Failed to check admin flag", "error", err, "user_id", userID)
		}
		return false
	}
	return user.IsAdmin
}
