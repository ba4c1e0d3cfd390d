package chat

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const DefaultTitle = "New Chat"

type Chat struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ChatID    string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"chat_id"`
	UserID    uint64    `gorm:"index;not null" json:"-"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	// Deleting a chat takes its transcript with it.
	Messages []Message `gorm:"foreignKey:ChatID;references:ChatID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Chat) TableName() string { return "chats" }

type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID         string    `gorm:"type:varchar(26);not null;index:idx_msg_user_chat_id,priority:2;index:uniq_msg_idempo,unique,priority:2" json:"chat_id"`
	UserID         uint64    `gorm:"not null;index:idx_msg_user_chat_id,priority:1;index:uniq_msg_idempo,unique,priority:1" json:"-"`
	Role           string    `gorm:"type:varchar(16);index;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IdempotencyKey *string   `gorm:"type:varchar(128);index:uniq_msg_idempo,unique,priority:3" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }
