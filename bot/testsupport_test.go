package bot

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/require"

	"anonymous-relay-bot/storage"
)

// fakeTransport records every outgoing call and can fail sends to chosen
// recipients.
type fakeTransport struct {
	mu        sync.Mutex
	messages  []*telego.SendMessageParams
	photos    []*telego.SendPhotoParams
	videos    []*telego.SendVideoParams
	voices    []*telego.SendVoiceParams
	documents []*telego.SendDocumentParams
	copies    []*telego.CopyMessageParams
	answered  []string

	sendErrFor map[int64]error
}

func (f *fakeTransport) failSendTo(chatID int64, err error) {
	if f.sendErrFor == nil {
		f.sendErrFor = map[int64]error{}
	}
	f.sendErrFor[chatID] = err
}

func (f *fakeTransport) SendMessage(params *telego.SendMessageParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErrFor[params.ChatID.ID]; err != nil {
		return nil, err
	}
	f.messages = append(f.messages, params)
	return &telego.Message{}, nil
}

func (f *fakeTransport) SendPhoto(params *telego.SendPhotoParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErrFor[params.ChatID.ID]; err != nil {
		return nil, err
	}
	f.photos = append(f.photos, params)
	return &telego.Message{}, nil
}

func (f *fakeTransport) SendVideo(params *telego.SendVideoParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErrFor[params.ChatID.ID]; err != nil {
		return nil, err
	}
	f.videos = append(f.videos, params)
	return &telego.Message{}, nil
}

func (f *fakeTransport) SendVoice(params *telego.SendVoiceParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErrFor[params.ChatID.ID]; err != nil {
		return nil, err
	}
	f.voices = append(f.voices, params)
	return &telego.Message{}, nil
}

func (f *fakeTransport) SendDocument(params *telego.SendDocumentParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErrFor[params.ChatID.ID]; err != nil {
		return nil, err
	}
	f.documents = append(f.documents, params)
	return &telego.Message{}, nil
}

func (f *fakeTransport) CopyMessage(params *telego.CopyMessageParams) (*telego.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErrFor[params.ChatID.ID]; err != nil {
		return nil, err
	}
	f.copies = append(f.copies, params)
	return &telego.MessageID{}, nil
}

func (f *fakeTransport) AnswerCallbackQuery(params *telego.AnswerCallbackQueryParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, params.CallbackQueryID)
	return nil
}

// messagesTo returns the text of every message sent to chatID.
func (f *fakeTransport) messagesTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, m := range f.messages {
		if m.ChatID.ID == chatID {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

func (f *fakeTransport) lastMessageTo(t *testing.T, chatID int64) *telego.SendMessageParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].ChatID.ID == chatID {
			return f.messages[i]
		}
	}
	t.Fatalf("no message sent to chat %d", chatID)
	return nil
}

func newTestBot(t *testing.T) (*Bot, *fakeTransport, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")
	store, err := storage.New(path)
	require.NoError(t, err)

	fake := &fakeTransport{}
	b := &Bot{
		client:   fake,
		storage:  store,
		sessions: NewSessionStore(),
		broadcaster: &Broadcaster{
			client:    fake,
			batchSize: broadcastBatchSize,
			pause:     time.Millisecond,
		},
		username: "relay_test_bot",
	}
	return b, fake, path
}
