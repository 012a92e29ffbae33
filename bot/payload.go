package bot

import (
	"errors"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

var errUnsupportedPayload = errors.New("unsupported payload kind")

type PayloadKind int

const (
	PayloadText PayloadKind = iota
	PayloadPhoto
	PayloadVideo
	PayloadVoice
	PayloadDocument
)

// Payload is the tagged content of a relayed message. Text carries the body
// for PayloadText; FileID carries the Telegram file reference for every
// other kind.
type Payload struct {
	Kind   PayloadKind
	Text   string
	FileID string
}

// payloadFromMessage classifies an incoming message into a Payload. The
// second return value is false for message kinds the relay does not carry
// (stickers, locations, polls and so on).
func payloadFromMessage(msg *telego.Message) (Payload, bool) {
	switch {
	case msg.Text != "":
		return Payload{Kind: PayloadText, Text: msg.Text}, true
	case len(msg.Photo) > 0:
		// Telegram lists photo sizes smallest first.
		return Payload{Kind: PayloadPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID}, true
	case msg.Video != nil:
		return Payload{Kind: PayloadVideo, FileID: msg.Video.FileID}, true
	case msg.Voice != nil:
		return Payload{Kind: PayloadVoice, FileID: msg.Voice.FileID}, true
	case msg.Document != nil:
		return Payload{Kind: PayloadDocument, FileID: msg.Document.FileID}, true
	}
	return Payload{}, false
}

// sendPayload delivers p to chatID, dispatching on the payload tag. For
// text payloads the caption becomes the message header; for file payloads
// it becomes the caption. Both the recipient path and the audit-channel
// path go through here.
func (b *Bot) sendPayload(chatID int64, p Payload, caption string, markup telego.ReplyMarkup) error {
	id := tu.ID(chatID)

	var err error
	switch p.Kind {
	case PayloadText:
		_, err = b.client.SendMessage(&telego.SendMessageParams{
			ChatID:      id,
			Text:        caption + "\n\n" + p.Text,
			ParseMode:   telego.ModeHTML,
			ReplyMarkup: markup,
		})
	case PayloadPhoto:
		_, err = b.client.SendPhoto(&telego.SendPhotoParams{
			ChatID:      id,
			Photo:       telego.InputFile{FileID: p.FileID},
			Caption:     caption,
			ParseMode:   telego.ModeHTML,
			ReplyMarkup: markup,
		})
	case PayloadVideo:
		_, err = b.client.SendVideo(&telego.SendVideoParams{
			ChatID:      id,
			Video:       telego.InputFile{FileID: p.FileID},
			Caption:     caption,
			ParseMode:   telego.ModeHTML,
			ReplyMarkup: markup,
		})
	case PayloadVoice:
		_, err = b.client.SendVoice(&telego.SendVoiceParams{
			ChatID:      id,
			Voice:       telego.InputFile{FileID: p.FileID},
			Caption:     caption,
			ParseMode:   telego.ModeHTML,
			ReplyMarkup: markup,
		})
	case PayloadDocument:
		_, err = b.client.SendDocument(&telego.SendDocumentParams{
			ChatID:      id,
			Document:    telego.InputFile{FileID: p.FileID},
			Caption:     caption,
			ParseMode:   telego.ModeHTML,
			ReplyMarkup: markup,
		})
	default:
		err = errUnsupportedPayload
	}
	return err
}
