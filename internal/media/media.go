package media

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrMediaNotFound = errors.New("media not found")

const (
	TypeImage = "image"
	TypeVideo = "video"
)

type Media struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"-"`
	Type      string    `gorm:"type:varchar(16);not null" json:"type"`
	Filename  string    `gorm:"type:varchar(255);not null" json:"filename"`
	URL       string    `gorm:"type:varchar(512);not null" json:"url"`
	MimeType  string    `gorm:"type:varchar(64)" json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Media) TableName() string { return "media" }

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, m *Media) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repo) ListByUser(ctx context.Context, userID uint64) ([]Media, error) {
	var items []Media
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repo) GetByUserAndID(ctx context.Context, userID uint64, id uint64) (*Media, error) {
	var m Media
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) Delete(ctx context.Context, userID uint64, id uint64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Media{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}
