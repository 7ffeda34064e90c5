package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-dm/internal/domain"
)

func TestPartnerService_GetChatPartners(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("one entry per partner ordered by latest message", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "me", "bob", "carol", "dave")
		svc := NewPartnerService(f.messages, f.userSvc)

		// Given
		f.seed(t, "me", "bob", base, 4)
		carol := f.seed(t, "carol", "me", base.Add(time.Hour), 2)
		f.seed(t, "me", "dave", base.Add(time.Minute), 1)
		f.seed(t, "bob", "carol", base.Add(2*time.Hour), 3)

		// When
		partners, err := svc.GetChatPartners(ctx, "me")

		// Then
		req.NoError(err)
		req.Len(partners, 3)
		req.Equal("carol", partners[0].PartnerID)
		req.Equal("dave", partners[1].PartnerID)
		req.Equal("bob", partners[2].PartnerID)
		req.Equal(carol[1].ID, partners[0].LastMessage.ID)
		req.Equal("carol", partners[0].Profile.Username)
		req.Equal("User carol", partners[0].Profile.FullName)

		seen := map[string]bool{}
		for i, p := range partners {
			req.False(seen[p.PartnerID])
			seen[p.PartnerID] = true
			if i > 0 {
				req.False(p.LastMessage.CreatedAt.After(partners[i-1].LastMessage.CreatedAt))
			}
		}
	})

	t.Run("partners without a profile are omitted", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "me", "bob")
		svc := NewPartnerService(f.messages, f.userSvc)

		f.seed(t, "me", "bob", base, 1)
		require.NoError(t, f.messages.Append(ctx, &domain.Message{
			SenderID: "ghost", ReceiverID: "me", Text: "boo", CreatedAt: base.Add(time.Hour),
		}))

		partners, err := svc.GetChatPartners(ctx, "me")
		req.NoError(err)
		req.Len(partners, 1)
		req.Equal("bob", partners[0].PartnerID)
	})

	t.Run("no messages yields an empty list", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, "me")
		svc := NewPartnerService(f.messages, f.userSvc)

		partners, err := svc.GetChatPartners(ctx, "me")
		req.NoError(err)
		req.NotNil(partners)
		req.Empty(partners)
	})
}
