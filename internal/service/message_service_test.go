package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/mocks"
	"github.com/weiawesome/wes-io-dm/pkg/pubsub"
)

func TestMessageService_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("offline receiver gets no push and reads the message later", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "x", "y")
		svc := f.messageService(nil, nil)

		// When
		msg, err := svc.SendMessage(ctx, "x", "y", domain.MessageContent{Text: "hello"})

		// Then
		req.NoError(err)
		req.NotEmpty(msg.ID)
		req.Equal("x", msg.SenderID)

		page, err := svc.GetConversation(ctx, "x", "y", 10, "")
		req.NoError(err)
		req.Len(page.Messages, 1)
		req.Equal("hello", page.Messages[0].Text)
	})

	t.Run("online receiver gets a new_message push", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		f := newFixture(t, "x", "y")
		svc := f.messageService(nil, nil)

		// Given
		handle := mocks.NewMockHandle(ctrl)
		f.registry.Register("y", handle)

		var pushed *domain.NewMessageEvent
		handle.EXPECT().Push(gomock.Any()).DoAndReturn(func(event any) error {
			pushed = event.(*domain.NewMessageEvent)
			return nil
		}).Times(1)

		// When
		msg, err := svc.SendMessage(ctx, "x", "y", domain.MessageContent{Text: "hi"})

		// Then
		req.NoError(err)
		req.NotNil(pushed)
		req.Equal(domain.MsgTypeNewMessage, pushed.Type)
		req.Equal("x", pushed.Message.SenderID)
		req.Equal("hi", pushed.Message.Text)
		req.Equal(msg.ID, pushed.Message.ID)
	})

	t.Run("push failure does not fail the send", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		f := newFixture(t, "x", "y")
		svc := f.messageService(nil, nil)

		handle := mocks.NewMockHandle(ctrl)
		f.registry.Register("y", handle)
		handle.EXPECT().Push(gomock.Any()).Return(errors.New("broken pipe")).Times(1)

		// When
		msg, err := svc.SendMessage(ctx, "x", "y", domain.MessageContent{Text: "still saved"})

		// Then
		req.NoError(err)
		stored, err := f.messages.GetByID(ctx, msg.ID)
		req.NoError(err)
		req.Equal("still saved", stored.Text)
	})

	t.Run("empty content is rejected and nothing is stored", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "x", "y")
		svc := f.messageService(nil, nil)

		_, err := svc.SendMessage(ctx, "x", "y", domain.MessageContent{Text: "", AttachmentRef: ""})
		req.ErrorIs(err, domain.ErrValidation)

		_, err = svc.SendMessage(ctx, "x", "y", domain.MessageContent{Text: "   \n\t"})
		req.ErrorIs(err, domain.ErrValidation)

		page, err := svc.GetConversation(ctx, "x", "y", 10, "")
		req.NoError(err)
		req.Empty(page.Messages)
	})

	t.Run("unknown receiver is not found", func(t *testing.T) {
		f := newFixture(t, "x")
		svc := f.messageService(nil, nil)

		_, err := svc.SendMessage(ctx, "x", "ghost", domain.MessageContent{Text: "hello?"})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("sending to yourself is rejected", func(t *testing.T) {
		f := newFixture(t, "x")
		svc := f.messageService(nil, nil)

		_, err := svc.SendMessage(ctx, "x", "x", domain.MessageContent{Text: "me"})
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("oversized text is rejected", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "x", "y")
		svc := f.messageService(nil, nil)

		_, err := svc.SendMessage(ctx, "x", "y", domain.MessageContent{Text: strings.Repeat("a", 2001)})
		req.ErrorIs(err, domain.ErrValidation)

		var verr *domain.ValidationError
		req.True(errors.As(err, &verr))
		req.Equal("text", verr.Field)

		_, err = svc.SendMessage(ctx, "x", "y", domain.MessageContent{Text: strings.Repeat("é", 2000)})
		req.NoError(err)
	})

	t.Run("attachment must exist in storage", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		f := newFixture(t, "x", "y")
		attachments := mocks.NewMockAttachmentService(ctrl)
		svc := f.messageService(attachments, nil)

		attachments.EXPECT().Verify(gomock.Any(), "x", "attachments/x/missing.png").
			Return(domain.NewValidationError("attachment_ref", "attachment not found"))
		attachments.EXPECT().Verify(gomock.Any(), "x", "attachments/x/cat.png").Return(nil)

		_, err := svc.SendMessage(ctx, "x", "y", domain.MessageContent{AttachmentRef: "attachments/x/missing.png"})
		req.ErrorIs(err, domain.ErrValidation)

		msg, err := svc.SendMessage(ctx, "x", "y", domain.MessageContent{AttachmentRef: " attachments/x/cat.png "})
		req.NoError(err)
		req.Equal("attachments/x/cat.png", msg.AttachmentRef)
		req.Empty(msg.Text)
	})

	t.Run("created event is published on the conversation channel", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		f := newFixture(t, "x", "y")
		publisher := mocks.NewMockPublisher(ctrl)
		svc := f.messageService(nil, publisher)

		var published *pubsub.Event
		publisher.EXPECT().
			Publish(gomock.Any(), pubsub.ConversationChannel(domain.ConversationKey("x", "y")), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, event *pubsub.Event) error {
				published = event
				return nil
			})

		msg, err := svc.SendMessage(ctx, "y", "x", domain.MessageContent{Text: "event"})
		req.NoError(err)

		req.NotNil(published)
		req.Equal(pubsub.EventMessageCreated, published.Type)
		req.Equal(domain.ConversationKey("x", "y"), published.Key)
		var payload pubsub.MessagePayload
		req.NoError(published.UnmarshalPayload(&payload))
		req.Equal(msg.ID, payload.MessageID)
		req.Equal("y", payload.SenderID)
	})

	t.Run("publish failure does not fail the send", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := newFixture(t, "x", "y")
		publisher := mocks.NewMockPublisher(ctrl)
		svc := f.messageService(nil, publisher)

		publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("bus down"))

		_, err := svc.SendMessage(ctx, "x", "y", domain.MessageContent{Text: "ok"})
		require.NoError(t, err)
	})
}

func TestMessageService_GetConversation(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("symmetric for both participants", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b", "c")
		svc := f.messageService(nil, nil)
		f.seed(t, "a", "b", base, 5)
		f.seed(t, "a", "c", base, 3)

		ab, err := svc.GetConversation(ctx, "a", "b", 50, "")
		req.NoError(err)
		ba, err := svc.GetConversation(ctx, "b", "a", 50, "")
		req.NoError(err)

		req.Len(ab.Messages, 5)
		req.Equal(messageIDs(ab.Messages), messageIDs(ba.Messages))
	})

	t.Run("latest message is last after a send", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b")
		svc := f.messageService(nil, nil)
		f.seed(t, "a", "b", base, 3)

		_, err := svc.SendMessage(ctx, "a", "b", domain.MessageContent{Text: "hi"})
		req.NoError(err)

		page, err := svc.GetConversation(ctx, "a", "b", 1, "")
		req.NoError(err)
		req.Len(page.Messages, 1)
		req.Equal("hi", page.Messages[0].Text)
	})

	t.Run("cursor pages do not overlap and end with has_more false", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b")
		svc := f.messageService(nil, nil)
		all := f.seed(t, "a", "b", base, 7)

		seen := map[string]bool{}
		var collected []string
		cursor := ""
		for i := 0; ; i++ {
			req.Less(i, 10, "pagination did not terminate")

			page, err := svc.GetConversation(ctx, "a", "b", 3, cursor)
			req.NoError(err)
			for j := 1; j < len(page.Messages); j++ {
				req.True(page.Messages[j-1].CreatedAt.Before(page.Messages[j].CreatedAt))
			}
			for _, m := range page.Messages {
				req.False(seen[m.ID], "message %s returned twice", m.ID)
				seen[m.ID] = true
			}
			collected = append(messageIDs(page.Messages), collected...)

			if !page.HasMore {
				req.Nil(page.NextCursor)
				break
			}
			req.NotNil(page.NextCursor)
			req.Equal(EncodeCursor(page.Messages[0].CreatedAt), *page.NextCursor)
			cursor = *page.NextCursor
		}

		req.Equal(messageIDs(all), collected)
	})

	t.Run("has_more is false when the page holds everything", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b")
		svc := f.messageService(nil, nil)
		f.seed(t, "a", "b", base, 3)

		page, err := svc.GetConversation(ctx, "a", "b", 3, "")
		req.NoError(err)
		req.Len(page.Messages, 3)
		req.False(page.HasMore)
		req.Nil(page.NextCursor)
	})

	t.Run("same cursor returns the same page", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b")
		svc := f.messageService(nil, nil)
		all := f.seed(t, "a", "b", base, 5)
		cursor := EncodeCursor(all[4].CreatedAt)

		first, err := svc.GetConversation(ctx, "a", "b", 2, cursor)
		req.NoError(err)
		second, err := svc.GetConversation(ctx, "a", "b", 2, cursor)
		req.NoError(err)

		req.Equal(messageIDs(first.Messages), messageIDs(second.Messages))
		req.Equal([]string{all[2].ID, all[3].ID}, messageIDs(first.Messages))
	})

	t.Run("limit is clamped", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b")
		svc := f.messageService(nil, nil)
		f.seed(t, "a", "b", base, 120)

		page, err := svc.GetConversation(ctx, "a", "b", -5, "")
		req.NoError(err)
		req.Len(page.Messages, 50)
		req.True(page.HasMore)

		page, err = svc.GetConversation(ctx, "a", "b", 1000, "")
		req.NoError(err)
		req.Len(page.Messages, 100)
		req.True(page.HasMore)
	})

	t.Run("invalid cursor is a validation error", func(t *testing.T) {
		f := newFixture(t, "a", "b")
		svc := f.messageService(nil, nil)

		_, err := svc.GetConversation(ctx, "a", "b", 10, "not-a-time")
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("store deadline surfaces as liveness timeout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		f := newFixture(t)
		repo := mocks.NewMockMessageRepository(ctrl)
		svc := NewMessageService(MessageServiceDeps{
			Messages: repo,
			Users:    f.users,
			Presence: f.registry,
			Pages:    f.pages,
		}, testMessageOptions)

		repo.EXPECT().ListBetween(gomock.Any(), "a", "b", nil, 51).Return(nil, context.DeadlineExceeded)

		_, err := svc.GetConversation(ctx, "a", "b", 0, "")
		require.ErrorIs(t, err, domain.ErrLivenessTimeout)
	})

	t.Run("a caller's deadline does not fail other readers of the same page", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		f := newFixture(t)
		repo := mocks.NewMockMessageRepository(ctrl)
		svc := NewMessageService(MessageServiceDeps{
			Messages: repo,
			Users:    f.users,
			Presence: f.registry,
			Pages:    f.pages,
		}, testMessageOptions)

		cursor := EncodeCursor(base)
		older := &domain.Message{ID: "m1", SenderID: "a", ReceiverID: "b", Text: "older", CreatedAt: base.Add(-time.Second)}

		started := make(chan struct{})
		release := make(chan struct{})
		repo.EXPECT().ListBetween(gomock.Any(), "a", "b", gomock.Any(), 11).
			DoAndReturn(func(ctx context.Context, _, _ string, _ *time.Time, _ int) ([]*domain.Message, error) {
				close(started)
				select {
				case <-release:
					return []*domain.Message{older}, nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}).Times(1)

		// Given a reader whose deadline runs out while the page is loading
		shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		shortErr := make(chan error, 1)
		go func() {
			_, err := svc.GetConversation(shortCtx, "a", "b", 10, cursor)
			shortErr <- err
		}()
		<-started

		// And a second reader of the same page without a deadline
		type result struct {
			page *domain.Page
			err  error
		}
		patient := make(chan result, 1)
		go func() {
			page, err := svc.GetConversation(ctx, "b", "a", 10, cursor)
			patient <- result{page: page, err: err}
		}()

		// When the first reader times out and the load then completes
		req.ErrorIs(<-shortErr, domain.ErrLivenessTimeout)
		close(release)

		// Then the second reader still gets the page
		res := <-patient
		req.NoError(res.err)
		req.Equal([]string{"m1"}, messageIDs(res.page.Messages))
	})

	t.Run("a message sharing the boundary timestamp falls behind the cursor", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b")
		svc := f.messageService(nil, nil)

		// Given two messages in the same microsecond below a newer one
		for i, at := range []time.Time{base, base, base.Add(time.Second)} {
			msg := &domain.Message{SenderID: "a", ReceiverID: "b", Text: fmt.Sprintf("m%d", i), CreatedAt: at}
			req.NoError(f.messages.Append(ctx, msg))
		}

		// When paging two at a time
		first, err := svc.GetConversation(ctx, "a", "b", 2, "")
		req.NoError(err)
		req.Len(first.Messages, 2)
		req.True(first.HasMore)
		req.Equal(EncodeCursor(base), *first.NextCursor)

		second, err := svc.GetConversation(ctx, "a", "b", 2, *first.NextCursor)

		// Then the cursor is strictly older than base, so the tied message is
		// not returned
		req.NoError(err)
		req.Empty(second.Messages)
		req.False(second.HasMore)
	})

	t.Run("pairs whose ids join to the same string do not share cached pages", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b|c", "a|b", "c")
		svc := f.messageService(nil, nil)
		f.seed(t, "a", "b|c", base, 2)
		cursor := EncodeCursor(base.Add(time.Hour))

		// Given a cached cursor page of {a, b|c}
		page, err := svc.GetConversation(ctx, "a", "b|c", 10, cursor)
		req.NoError(err)
		req.Len(page.Messages, 2)

		// When {a|b, c} reads the same cursor
		other, err := svc.GetConversation(ctx, "a|b", "c", 10, cursor)

		// Then it sees only its own, empty conversation
		req.NoError(err)
		req.Empty(other.Messages)
		req.False(other.HasMore)
	})
}

func TestMessageService_DeleteMessage(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("sender deletes, receiver is notified, cached pages are dropped", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		f := newFixture(t, "a", "b")
		svc := f.messageService(nil, nil)
		all := f.seed(t, "a", "b", base, 4)
		target := all[0]
		cursor := EncodeCursor(all[3].CreatedAt)

		// Given a cached older page containing the target
		page, err := svc.GetConversation(ctx, "a", "b", 10, cursor)
		req.NoError(err)
		req.Equal("msg", page.Messages[0].Text)

		handle := mocks.NewMockHandle(ctrl)
		f.registry.Register("b", handle)
		handle.EXPECT().Push(gomock.AssignableToTypeOf(&domain.MessageDeletedEvent{})).Return(nil)

		// When
		deleted, err := svc.DeleteMessage(ctx, "a", target.ID)

		// Then
		req.NoError(err)
		req.True(deleted.Deleted)
		req.Empty(deleted.Text)

		page, err = svc.GetConversation(ctx, "a", "b", 10, cursor)
		req.NoError(err)
		req.Equal(target.ID, page.Messages[0].ID)
		req.True(page.Messages[0].Deleted)
		req.Empty(page.Messages[0].Text)

		// Deleting again changes nothing and pushes nothing
		again, err := svc.DeleteMessage(ctx, "a", target.ID)
		req.NoError(err)
		req.True(again.Deleted)
	})

	t.Run("only the sender may delete", func(t *testing.T) {
		f := newFixture(t, "a", "b")
		svc := f.messageService(nil, nil)
		all := f.seed(t, "a", "b", base, 1)

		_, err := svc.DeleteMessage(ctx, "b", all[0].ID)
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("unknown message is not found", func(t *testing.T) {
		f := newFixture(t, "a")
		svc := f.messageService(nil, nil)

		_, err := svc.DeleteMessage(ctx, "a", "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("stored attachment outlives the deleted message", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "a", "b")
		attachments := newAttachmentService(t, 1024)
		svc := f.messageService(attachments, nil)

		// Given b uploads an image and sends it to a
		att, err := attachments.Upload(ctx, "b", "cat.png", bytes.NewReader(pngHeader))
		req.NoError(err)
		original, err := svc.SendMessage(ctx, "b", "a", domain.MessageContent{AttachmentRef: att.Ref})
		req.NoError(err)

		// When a tries to send b's reference back
		_, err = svc.SendMessage(ctx, "a", "b", domain.MessageContent{AttachmentRef: att.Ref})

		// Then
		req.ErrorIs(err, domain.ErrValidation)

		// When b sends it twice and deletes one copy
		again, err := svc.SendMessage(ctx, "b", "a", domain.MessageContent{AttachmentRef: att.Ref})
		req.NoError(err)
		deleted, err := svc.DeleteMessage(ctx, "b", again.ID)
		req.NoError(err)
		req.Empty(deleted.AttachmentRef)

		// Then the first message still resolves its attachment
		kept, err := f.messages.GetByID(ctx, original.ID)
		req.NoError(err)
		req.Equal(att.Ref, kept.AttachmentRef)
		rc, _, err := attachments.Open(ctx, kept.AttachmentRef)
		req.NoError(err)
		req.NoError(rc.Close())
	})
}
