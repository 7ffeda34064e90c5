package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/repository"
	"github.com/weiawesome/wes-io-dm/pkg/log"
)

type partnerServiceImpl struct {
	messages repository.MessageRepository
	users    UserService
}

func NewPartnerService(messages repository.MessageRepository, users UserService) PartnerService {
	return &partnerServiceImpl{
		messages: messages,
		users:    users,
	}
}

// GetChatPartners returns one summary per counterpart of userID, most
// recently active first.
func (s *partnerServiceImpl) GetChatPartners(ctx context.Context, userID string) ([]*domain.ChatPartnerSummary, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}

	// Pass one: the scan is newest first, so the first message seen for a
	// counterpart is the latest one.
	latest := make(map[string]*domain.Message)
	var partners []string
	err := s.messages.ScanForUser(ctx, userID, func(msg *domain.Message) (bool, error) {
		partner := msg.Counterpart(userID)
		if _, seen := latest[partner]; !seen {
			latest[partner] = msg
			partners = append(partners, partner)
		}
		return true, nil
	})
	if err != nil {
		return nil, domain.TimeoutAware(fmt.Errorf("failed to scan messages: %w", err))
	}

	profiles, err := s.users.ResolveProfiles(ctx, partners)
	if err != nil {
		return nil, err
	}

	summaries := lo.FilterMap(partners, func(partner string, _ int) (*domain.ChatPartnerSummary, bool) {
		profile, ok := profiles[partner]
		if !ok {
			return nil, false
		}
		return &domain.ChatPartnerSummary{
			PartnerID:   partner,
			Profile:     profile,
			LastMessage: latest[partner],
		}, true
	})
	if dropped := len(partners) - len(summaries); dropped > 0 {
		l := log.Ctx(ctx)
		l.Debug().Int("dropped", dropped).Msg("partners without a known profile omitted")
	}

	// Pass two: order by the retained message.
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.CreatedAt.After(summaries[j].LastMessage.CreatedAt)
	})
	return summaries, nil
}
