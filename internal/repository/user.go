package repository

import (
	"context"
	"fmt"

	"karmafeed/internal/models"
	"karmafeed/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the interface for actor data operations
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	EnsureByUsername(ctx context.Context, username string) (*models.User, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureByUsername returns the actor with this username, inserting it first if absent.
// Concurrent first requests for the same name converge on one row.
func (r *userRepository) EnsureByUsername(ctx context.Context, username string) (*models.User, error) {
	user := models.User{Username: username}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(&user)
	if result.Error != nil && !IsUniqueViolation(result.Error) {
		r.log.LogError(ctx, result.Error, "ensure")
		return nil, fmt.Errorf("ensure user %q: %w", username, result.Error)
	}
	if result.Error == nil && result.RowsAffected == 1 && user.ID != 0 {
		r.log.LogCreate(ctx, map[string]interface{}{"user_id": user.ID, "username": username})
		return &user, nil
	}
	return r.GetByUsername(ctx, username)
}
