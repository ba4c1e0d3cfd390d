package main

import (
	"log"

	"github.com/gopherchat/backend/internal/config"
	"github.com/gopherchat/backend/internal/db"
	"github.com/gopherchat/backend/internal/httpapi"
	"github.com/gopherchat/backend/internal/identity"
	"github.com/gopherchat/backend/internal/store/rabbitmq"
	"github.com/gopherchat/backend/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	rabbit, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit connect: %v", err)
	}
	defer rabbit.Close()

	resolver := identity.NewJWTResolver(cfg.JWTSecret)

	r := httpapi.NewRouter(gdb, cfg, rds, rabbit, resolver)

	log.Printf("server listening addr=%s provider=%s", cfg.ServerAddr, cfg.AIProvider)
	if err := r.Run(cfg.ServerAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
