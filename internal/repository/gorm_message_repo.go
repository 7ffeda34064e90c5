package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/idgen"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db  *gorm.DB
	ids idgen.Generator
	now func() time.Time
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB, ids idgen.Generator) *GormMessageRepository {
	return &GormMessageRepository{
		db:  db,
		ids: ids,
		now: time.Now,
	}
}

// Append writes a new message. Creation time is truncated to microseconds,
// the precision of the created_at column on every supported driver, so the
// returned message matches what a later read sees.
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		id, err := r.ids.Generate()
		if err != nil {
			return err
		}
		msg.ID = id
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.now()
	}
	msg.CreatedAt = msg.CreatedAt.UTC().Truncate(time.Microsecond)

	if err := r.db.WithContext(ctx).Create(domain.MessageToModel(msg)).Error; err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListBetween returns messages of the pair newest first.
func (r *GormMessageRepository) ListBetween(ctx context.Context, a, b string, before *time.Time, n int) ([]*domain.Message, error) {
	q := r.db.WithContext(ctx).
		Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))", a, b, b, a)
	if before != nil {
		q = q.Where("created_at < ?", before.UTC())
	}

	var models []domain.MessageModel
	err := q.Order("created_at DESC").Order("id DESC").Limit(n).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	msgs := make([]*domain.Message, 0, len(models))
	for i := range models {
		msgs = append(msgs, models[i].ToDomain())
	}
	return msgs, nil
}

// ScanForUser streams the user's messages newest first without loading them all.
func (r *GormMessageRepository) ScanForUser(ctx context.Context, userID string, visit MessageVisitor) error {
	rows, err := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").Order("id DESC").
		Rows()
	if err != nil {
		return fmt.Errorf("failed to scan messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var model domain.MessageModel
		if err := r.db.ScanRows(rows, &model); err != nil {
			return fmt.Errorf("failed to read message row: %w", err)
		}
		more, err := visit(model.ToDomain())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return rows.Err()
}

// GetByID retrieves a message by ID.
func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var model domain.MessageModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("message %s", id)
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// SoftDelete blanks the message content. Deleting twice is not an error.
func (r *GormMessageRepository) SoftDelete(ctx context.Context, id string) (*domain.Message, error) {
	msg, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.Deleted {
		return msg, nil
	}

	err = r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"text":           "",
			"attachment_ref": "",
			"deleted":        true,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}

	msg.Text = ""
	msg.AttachmentRef = ""
	msg.Deleted = true
	return msg, nil
}
