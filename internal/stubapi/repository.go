package stubapi

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) UserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrInvalidCredentials
	}
	return u, err
}

func (r *Repository) UserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrInvalidToken
	}
	return u, err
}

func (r *Repository) CreateUser(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// Passes lists passes newest first. A nil workmanID lists everyone's.
func (r *Repository) Passes(ctx context.Context, workmanID *int64) ([]GatePassRecord, error) {
	q := r.db.WithContext(ctx).Preload("Workman").Preload("ApprovedBy").Order("created_at DESC, id DESC")
	if workmanID != nil {
		q = q.Where("workman_id = ?", *workmanID)
	}
	var records []GatePassRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Repository) Pass(ctx context.Context, id int64) (GatePassRecord, error) {
	var rec GatePassRecord
	err := r.db.WithContext(ctx).Preload("Workman").Preload("ApprovedBy").First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GatePassRecord{}, ErrNotFound
	}
	return rec, err
}

func (r *Repository) CreatePass(ctx context.Context, rec *GatePassRecord) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error
}

func (r *Repository) SavePass(ctx context.Context, rec *GatePassRecord) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(rec).Error
}

func (r *Repository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&RevokedToken{ID: jti, ExpiresAt: expiresAt}).Error
}

func (r *Repository) Revoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RevokedToken{}).Where("id = ?", jti).Count(&count).Error
	return count > 0, err
}
