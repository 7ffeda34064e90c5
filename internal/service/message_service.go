package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-dm/internal/audit"
	"github.com/weiawesome/wes-io-dm/internal/cache"
	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/repository"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/metrics"
	"github.com/weiawesome/wes-io-dm/pkg/pubsub"
)

// MessageOptions tunes validation and paging.
type MessageOptions struct {
	Limits                 PageLimits
	MaxTextLength          int
	MaxAttachmentRefLength int
	PageTTL                time.Duration
	FetchTimeout           time.Duration // bounds a page load shared between readers
}

// MessageServiceDeps are the collaborators of the message service.
// Attachments and Publisher are optional.
type MessageServiceDeps struct {
	Messages    repository.MessageRepository
	Users       repository.UserRepository
	Presence    PresenceLookup
	Pages       cache.PageCache
	Attachments AttachmentService
	Publisher   pubsub.Publisher
}

type messageServiceImpl struct {
	messages    repository.MessageRepository
	users       repository.UserRepository
	presence    PresenceLookup
	pages       cache.PageCache
	attachments AttachmentService
	publisher   pubsub.Publisher
	opts        MessageOptions
	sf          singleflight.Group
}

func NewMessageService(deps MessageServiceDeps, opts MessageOptions) MessageService {
	return &messageServiceImpl{
		messages:    deps.Messages,
		users:       deps.Users,
		presence:    deps.Presence,
		pages:       deps.Pages,
		attachments: deps.Attachments,
		publisher:   deps.Publisher,
		opts:        opts,
	}
}

// SendMessage persists a message and pushes it to the receiver when online.
// Once the write succeeds the send succeeds; push problems are only logged.
func (s *messageServiceImpl) SendMessage(ctx context.Context, senderID, receiverID string, content domain.MessageContent) (*domain.Message, error) {
	l := log.Ctx(ctx)

	content = content.Normalize()
	if err := s.validateSend(ctx, senderID, receiverID, content); err != nil {
		return nil, domain.TimeoutAware(err)
	}

	ok, err := s.users.Exists(ctx, receiverID)
	if err != nil {
		return nil, domain.TimeoutAware(fmt.Errorf("failed to resolve receiver: %w", err))
	}
	if !ok {
		return nil, domain.NotFoundf("user %s", receiverID)
	}

	msg := &domain.Message{
		SenderID:      senderID,
		ReceiverID:    receiverID,
		Text:          content.Text,
		AttachmentRef: content.AttachmentRef,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		l.Error().Err(err).Str(log.FieldReceiverID, receiverID).Msg("failed to append message")
		return nil, domain.TimeoutAware(err)
	}
	metrics.MessagesSentTotal.Inc()

	s.push(ctx, receiverID, msg, domain.NewNewMessageEvent(msg))
	s.publish(ctx, pubsub.EventMessageCreated, msg)

	audit.LogWithTarget(ctx, audit.ActionSendMessage, senderID, msg.ID, "message sent")
	return msg, nil
}

func (s *messageServiceImpl) validateSend(ctx context.Context, senderID, receiverID string, content domain.MessageContent) error {
	if err := validateStruct(&sendInput{SenderID: senderID, ReceiverID: receiverID}); err != nil {
		return err
	}
	if content.IsEmpty() {
		return domain.NewValidationError("content", "text or attachment is required")
	}
	if n := s.opts.MaxTextLength; n > 0 && utf8.RuneCountInString(content.Text) > n {
		return domain.NewValidationError("text", fmt.Sprintf("must be at most %d characters", n))
	}
	if n := s.opts.MaxAttachmentRefLength; n > 0 && len(content.AttachmentRef) > n {
		return domain.NewValidationError("attachment_ref", fmt.Sprintf("must be at most %d characters", n))
	}

	if content.AttachmentRef != "" && s.attachments != nil {
		return s.attachments.Verify(ctx, senderID, content.AttachmentRef)
	}
	return nil
}

// DeleteMessage soft-deletes a message sent by requesterID. Stored
// attachment objects are kept: the same reference may be carried by other
// messages of the sender.
func (s *messageServiceImpl) DeleteMessage(ctx context.Context, requesterID, messageID string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, domain.TimeoutAware(err)
	}
	if msg.SenderID != requesterID {
		return nil, fmt.Errorf("message %s belongs to another sender: %w", messageID, domain.ErrForbidden)
	}
	if msg.Deleted {
		return msg, nil
	}

	deleted, err := s.messages.SoftDelete(ctx, messageID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("failed to delete message")
		return nil, domain.TimeoutAware(err)
	}
	metrics.MessagesDeletedTotal.Inc()

	key := deleted.ConversationKey()
	if err := s.pages.InvalidateConversation(ctx, key); err != nil {
		l.Warn().Err(err).Str(log.FieldConversationID, key).Msg("failed to invalidate cached pages")
	}

	s.push(ctx, deleted.ReceiverID, deleted, domain.NewMessageDeletedEvent(deleted))
	s.publish(ctx, pubsub.EventMessageDeleted, deleted)

	audit.LogWithTarget(ctx, audit.ActionDeleteMessage, requesterID, messageID, "message deleted")
	return deleted, nil
}

// push forwards event to the receiver's live connection, if any. Failures
// become a DeliveryWarning on the log and in metrics.
func (s *messageServiceImpl) push(ctx context.Context, receiverID string, msg *domain.Message, event any) {
	eventType := domain.MsgTypeNewMessage
	if _, ok := event.(*domain.MessageDeletedEvent); ok {
		eventType = domain.MsgTypeMessageDeleted
	}

	h, ok := s.presence.Lookup(receiverID)
	if !ok {
		metrics.PushTotal.WithLabelValues(eventType, metrics.PushOffline).Inc()
		return
	}

	if err := h.Push(event); err != nil {
		warning := &domain.DeliveryWarning{ReceiverID: receiverID, MessageID: msg.ID, Err: err}
		metrics.PushTotal.WithLabelValues(eventType, metrics.PushFailed).Inc()
		metrics.DeliveryWarningsTotal.Inc()

		l := log.Ctx(ctx)
		l.Warn().
			Err(warning).
			Str(log.FieldLogType, log.LogTypeDeliveryWarning).
			Str(log.FieldMessageID, msg.ID).
			Str(log.FieldReceiverID, receiverID).
			Str("event", eventType).
			Msg("realtime push failed")
		return
	}
	metrics.PushTotal.WithLabelValues(eventType, metrics.PushDelivered).Inc()
}

// publish announces a message change on the event bus. The bus is optional
// and best-effort.
func (s *messageServiceImpl) publish(ctx context.Context, eventType string, msg *domain.Message) {
	if s.publisher == nil {
		return
	}
	l := log.Ctx(ctx)

	key := msg.ConversationKey()
	event, err := pubsub.NewEvent(eventType, key, pubsub.MessagePayload{
		MessageID:       msg.ID,
		ConversationKey: key,
		SenderID:        msg.SenderID,
		ReceiverID:      msg.ReceiverID,
		Text:            msg.Text,
		AttachmentRef:   msg.AttachmentRef,
		Deleted:         msg.Deleted,
		CreatedAt:       msg.CreatedAt,
	})
	if err != nil {
		l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to build message event")
		return
	}

	if err := s.publisher.Publish(ctx, pubsub.ConversationChannel(key), event); err != nil {
		l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Str("event", eventType).Msg("failed to publish message event")
	}
}

// GetConversation returns one page of the conversation between userID and
// otherID, oldest first. Pages behind a cursor are cached; the newest page
// changes with every send and is always read from the store.
func (s *messageServiceImpl) GetConversation(ctx context.Context, userID, otherID string, limit int, before string) (*domain.Page, error) {
	if err := validateStruct(&sendInput{SenderID: userID, ReceiverID: otherID}); err != nil {
		return nil, err
	}

	limit = s.opts.Limits.Clamp(limit)
	cursor, err := ParseCursor(before)
	if err != nil {
		return nil, err
	}

	if cursor == nil {
		page, err := s.fetchPage(ctx, userID, otherID, nil, limit)
		return page, domain.TimeoutAware(err)
	}

	convKey := domain.ConversationKey(userID, otherID)
	cacheKey := s.pages.BuildKey(convKey, EncodeCursor(*cursor), limit)

	ch := s.sf.DoChan(cacheKey, func() (interface{}, error) {
		fetchCtx, cancel := sharedContext(ctx, s.opts.FetchTimeout)
		defer cancel()
		return s.fetchWithCache(fetchCtx, convKey, cacheKey, userID, otherID, cursor, limit)
	})
	result, err := awaitShared(ctx, ch)
	if err != nil {
		return nil, domain.TimeoutAware(err)
	}

	page, ok := result.(*domain.Page)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return page, nil
}

func (s *messageServiceImpl) fetchWithCache(ctx context.Context, convKey, cacheKey, userID, otherID string, cursor *time.Time, limit int) (*domain.Page, error) {
	cached, err := s.pages.Get(ctx, cacheKey)
	if err == nil {
		metrics.CacheLookupsTotal.WithLabelValues("page", metrics.CacheHit).Inc()
		return cached, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("page", metrics.CacheMiss).Inc()

	if !errors.Is(err, cache.ErrCacheMiss) {
		// Log error but continue to fetch from DB
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache get error")
	}

	page, err := s.fetchPage(ctx, userID, otherID, cursor, limit)
	if err != nil {
		return nil, err
	}

	if err := s.pages.Set(ctx, convKey, cacheKey, page, s.opts.PageTTL); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache set error")
	}
	return page, nil
}

// fetchPage reads one extra row to learn whether older messages remain.
func (s *messageServiceImpl) fetchPage(ctx context.Context, userID, otherID string, cursor *time.Time, limit int) (*domain.Page, error) {
	rows, err := s.messages.ListBetween(ctx, userID, otherID, cursor, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from repository: %w", err)
	}
	return BuildPage(rows, limit), nil
}
