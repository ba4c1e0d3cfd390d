package project

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrProjectNotFound = errors.New("project not found")

type Project struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"-"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Title     *string   `gorm:"type:varchar(255)" json:"title"`
	Link      *string   `gorm:"type:varchar(2048)" json:"link"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Project) TableName() string { return "projects" }

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, p *Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// CreateBatch inserts every project in one statement. Used by the
// client-side data migration, which ships a whole local collection at once.
func (r *Repo) CreateBatch(ctx context.Context, ps []Project) error {
	if len(ps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ps).Error
}

func (r *Repo) ListByUser(ctx context.Context, userID uint64) ([]Project, error) {
	var projects []Project
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Delete removes the project only when it belongs to the caller; a foreign
// id reads as not found.
func (r *Repo) Delete(ctx context.Context, userID uint64, id uint64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}
