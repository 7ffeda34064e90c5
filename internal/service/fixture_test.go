package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-dm/internal/cache"
	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/idgen"
	"github.com/weiawesome/wes-io-dm/internal/presence"
	"github.com/weiawesome/wes-io-dm/internal/repository"
	"github.com/weiawesome/wes-io-dm/internal/testutil"
	"github.com/weiawesome/wes-io-dm/pkg/pubsub"
)

var testMessageOptions = MessageOptions{
	Limits:                 PageLimits{Default: DefaultPageLimit, Max: MaxPageLimit},
	MaxTextLength:          2000,
	MaxAttachmentRefLength: 1024,
	PageTTL:                time.Minute,
}

type fixture struct {
	messages *repository.GormMessageRepository
	users    *repository.GormUserRepository
	registry *presence.Registry
	pages    *cache.MemoryPageCache
	profiles *cache.MemoryProfileCache
	userSvc  UserService
}

func newFixture(t *testing.T, userIDs ...string) *fixture {
	db := testutil.NewDB(t)
	testutil.SeedUsers(t, db, userIDs...)

	f := &fixture{
		messages: repository.NewGormMessageRepository(db, idgen.NewULIDGenerator()),
		users:    repository.NewGormUserRepository(db),
		registry: presence.NewRegistry(),
		pages:    cache.NewMemoryPageCache("test"),
		profiles: cache.NewMemoryProfileCache("test"),
	}
	f.userSvc = NewUserService(f.users, f.profiles, time.Minute)
	return f
}

func (f *fixture) messageService(attachments AttachmentService, publisher pubsub.Publisher) MessageService {
	return NewMessageService(MessageServiceDeps{
		Messages:    f.messages,
		Users:       f.users,
		Presence:    f.registry,
		Pages:       f.pages,
		Attachments: attachments,
		Publisher:   publisher,
	}, testMessageOptions)
}

// seed writes n alternating messages between a and b one second apart,
// starting at base, and returns them oldest first.
func (f *fixture) seed(t *testing.T, a, b string, base time.Time, n int) []*domain.Message {
	out := make([]*domain.Message, 0, n)
	for i := 0; i < n; i++ {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		msg := &domain.Message{
			SenderID:   from,
			ReceiverID: to,
			Text:       "msg",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, f.messages.Append(context.Background(), msg))
		out = append(out, msg)
	}
	return out
}

func messageIDs(msgs []*domain.Message) []string {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}
