package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKarmaEvent(t *testing.T) {
	tests := []struct {
		name      string
		kind      TargetKind
		liked     bool
		wantType  KarmaEventType
		wantDelta int
		onPost    bool
	}{
		{"post like", TargetPost, true, EventPostLike, 5, true},
		{"post unlike", TargetPost, false, EventPostUnlike, -5, true},
		{"comment like", TargetComment, true, EventCommentLike, 1, false},
		{"comment unlike", TargetComment, false, EventCommentUnlike, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := NewKarmaEvent(tt.kind, tt.liked, 1, 2, 30, 400)
			require.NoError(t, err)

			assert.Equal(t, tt.wantType, ev.EventType)
			assert.Equal(t, tt.wantDelta, ev.Delta)
			assert.Equal(t, uint(1), ev.BeneficiaryID)
			assert.Equal(t, uint(2), ev.ActorID)
			assert.Equal(t, uint(400), ev.CauseLikeID)
			if tt.onPost {
				require.NotNil(t, ev.PostID)
				assert.Equal(t, uint(30), *ev.PostID)
				assert.Nil(t, ev.CommentID)
			} else {
				require.NotNil(t, ev.CommentID)
				assert.Equal(t, uint(30), *ev.CommentID)
				assert.Nil(t, ev.PostID)
			}
		})
	}

	_, err := NewKarmaEvent(TargetKind("story"), true, 1, 2, 3, 4)
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, StatusFor(NewNotFoundError("Post", 1)))
	assert.Equal(t, fiber.StatusUnauthorized, StatusFor(NewInvalidActorError("no actor")))
	assert.Equal(t, fiber.StatusBadRequest, StatusFor(NewValidationError("bad")))
	assert.Equal(t, fiber.StatusServiceUnavailable, StatusFor(NewStoreUnavailableError(errors.New("down"))))
	assert.Equal(t, fiber.StatusInternalServerError, StatusFor(errors.New("boom")))

	wrapped := fmt.Errorf("like post: %w", NewNotFoundError("Post", 9))
	assert.Equal(t, fiber.StatusNotFound, StatusFor(wrapped))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeInvalidActor))
}
