package db

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/gopherchat/backend/internal/chat"
	"github.com/gopherchat/backend/internal/media"
	"github.com/gopherchat/backend/internal/models"
	"github.com/gopherchat/backend/internal/project"
)

// Connect opens the shared gorm handle. It is created once at startup and
// injected everywhere; nothing reads it from a package global.
func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	if err := Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	return gdb
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&chat.Chat{},
		&chat.Message{},
		&chat.Job{},
		&project.Project{},
		&media.Media{},
	)
}
