package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/weiawesome/wes-io-dm/internal/domain"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// PageLimits bounds the page size of conversation reads.
type PageLimits struct {
	Default int
	Max     int
}

// Clamp maps limit into [1, Max]. Non-positive values select Default.
func (p PageLimits) Clamp(limit int) int {
	def, ceiling := p.Default, p.Max
	if ceiling <= 0 {
		ceiling = MaxPageLimit
	}
	if def <= 0 {
		def = DefaultPageLimit
	}
	if def > ceiling {
		def = ceiling
	}

	switch {
	case limit <= 0:
		return def
	case limit > ceiling:
		return ceiling
	default:
		return limit
	}
}

// ParseLimit reads a limit query value. Anything that is not an integer
// yields 0, which Clamp turns into the default.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

// EncodeCursor renders the creation time of the oldest delivered message.
func EncodeCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseCursor parses a cursor produced by EncodeCursor. An empty cursor
// means "start from the newest message" and yields nil.
func ParseCursor(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, domain.NewValidationError("before", "invalid cursor")
	}
	t = t.UTC()
	return &t, nil
}

// BuildPage turns up to limit+1 rows fetched newest first into a page in
// display order. The extra row only signals that older messages remain.
func BuildPage(newestFirst []*domain.Message, limit int) *domain.Page {
	hasMore := len(newestFirst) > limit
	if hasMore {
		newestFirst = newestFirst[:limit]
	}

	msgs := make([]*domain.Message, len(newestFirst))
	for i, m := range newestFirst {
		msgs[len(newestFirst)-1-i] = m
	}

	page := &domain.Page{
		Messages: msgs,
		HasMore:  hasMore,
	}
	if hasMore && len(msgs) > 0 {
		cursor := EncodeCursor(msgs[0].CreatedAt)
		page.NextCursor = &cursor
	}
	return page
}
