package bot

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadFromMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  *telego.Message
		want Payload
		ok   bool
	}{
		{
			name: "text",
			msg:  &telego.Message{Text: "hello"},
			want: Payload{Kind: PayloadText, Text: "hello"},
			ok:   true,
		},
		{
			name: "photo picks largest size",
			msg:  &telego.Message{Photo: []telego.PhotoSize{{FileID: "s"}, {FileID: "m"}, {FileID: "l"}}},
			want: Payload{Kind: PayloadPhoto, FileID: "l"},
			ok:   true,
		},
		{
			name: "video",
			msg:  &telego.Message{Video: &telego.Video{FileID: "v"}},
			want: Payload{Kind: PayloadVideo, FileID: "v"},
			ok:   true,
		},
		{
			name: "voice",
			msg:  &telego.Message{Voice: &telego.Voice{FileID: "vo"}},
			want: Payload{Kind: PayloadVoice, FileID: "vo"},
			ok:   true,
		},
		{
			name: "document",
			msg:  &telego.Message{Document: &telego.Document{FileID: "d"}},
			want: Payload{Kind: PayloadDocument, FileID: "d"},
			ok:   true,
		},
		{
			name: "unsupported",
			msg:  &telego.Message{},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := payloadFromMessage(tt.msg)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSendPayloadDispatch(t *testing.T) {
	b, fake, _ := newTestBot(t)

	require.NoError(t, b.sendPayload(1, Payload{Kind: PayloadText, Text: "body"}, "header", nil))
	require.NoError(t, b.sendPayload(1, Payload{Kind: PayloadPhoto, FileID: "p"}, "caption", nil))
	require.NoError(t, b.sendPayload(1, Payload{Kind: PayloadVideo, FileID: "v"}, "caption", nil))
	require.NoError(t, b.sendPayload(1, Payload{Kind: PayloadVoice, FileID: "vo"}, "caption", nil))
	require.NoError(t, b.sendPayload(1, Payload{Kind: PayloadDocument, FileID: "d"}, "caption", nil))

	require.Len(t, fake.messages, 1)
	assert.Equal(t, "header\n\nbody", fake.messages[0].Text)
	require.Len(t, fake.photos, 1)
	assert.Equal(t, "p", fake.photos[0].Photo.FileID)
	require.Len(t, fake.videos, 1)
	assert.Equal(t, "v", fake.videos[0].Video.FileID)
	require.Len(t, fake.voices, 1)
	assert.Equal(t, "vo", fake.voices[0].Voice.FileID)
	require.Len(t, fake.documents, 1)
	assert.Equal(t, "d", fake.documents[0].Document.FileID)
}

func TestSendPayloadUnknownKind(t *testing.T) {
	b, _, _ := newTestBot(t)

	err := b.sendPayload(1, Payload{Kind: PayloadKind(99)}, "", nil)
	assert.ErrorIs(t, err, errUnsupportedPayload)
}
