package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperr "lms_backend/pkg/errors"
)

func TestValidateContent(t *testing.T) {
	url := "http://cdn.local/pic.png"
	empty := ""

	tests := []struct {
		name    string
		msg     Message
		wantErr error
	}{
		{"text with body", Message{Type: MessageTypeText, Content: "hi"}, nil},
		{"text empty", Message{Type: MessageTypeText}, apperr.ErrEmptyContent},
		{"text whitespace only", Message{Type: MessageTypeText, Content: "   "}, apperr.ErrEmptyContent},
		{"image with media", Message{Type: MessageTypeImage, Media: &url}, nil},
		{"image without media", Message{Type: MessageTypeImage}, apperr.ErrEmptyContent},
		{"audio with empty media", Message{Type: MessageTypeAudio, Media: &empty}, apperr.ErrEmptyContent},
		{"video with media and caption", Message{Type: MessageTypeVideo, Media: &url, Content: "看"}, nil},
		{"unknown type", Message{Type: "sticker", Content: "x"}, apperr.ErrBadRequest},
		{"no type", Message{Content: "x"}, apperr.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.ValidateContent()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestHasParticipant(t *testing.T) {
	a := &User{ID: uuid.New()}
	b := &User{ID: uuid.New()}
	conv := &Conversation{Participants: []*User{a, nil, b}}

	assert.True(t, conv.HasParticipant(a.ID))
	assert.True(t, conv.HasParticipant(b.ID))
	assert.False(t, conv.HasParticipant(uuid.New()))
}

func TestMessagePatchEmpty(t *testing.T) {
	var nilPatch *MessagePatch
	assert.True(t, nilPatch.Empty())
	assert.True(t, (&MessagePatch{}).Empty())

	s := "x"
	assert.False(t, (&MessagePatch{Content: &s}).Empty())
}
