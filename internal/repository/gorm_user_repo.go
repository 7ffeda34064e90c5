package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-dm/internal/domain"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("user %s", id)
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByIDs retrieves all known users among ids.
func (r *GormUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	users := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	for i := range models {
		users[models[i].ID] = models[i].ToDomain()
	}
	return users, nil
}

// Exists reports whether a user with id is known.
func (r *GormUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.UserModel{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert creates the user or updates its profile fields.
func (r *GormUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	model := domain.UserToModel(user)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "full_name", "avatar_ref", "updated_at"}),
	}).Create(model)
	if result.Error != nil {
		return result.Error
	}

	stored, err := r.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// List returns users ordered by username.
func (r *GormUserRepository) List(ctx context.Context, excludeID string, limit int) ([]*domain.User, error) {
	q := r.db.WithContext(ctx).Order("username ASC").Order("id ASC")
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []domain.UserModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].ToDomain())
	}
	return users, nil
}
