// Registers a mailbox session from the command line. Useful for local
// development when the provisioning layer is not running.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"telegram-tempmail-relay/internal/config"
	pg "telegram-tempmail-relay/internal/infra/db/postgres"
	"telegram-tempmail-relay/internal/infra/logging"
	"telegram-tempmail-relay/internal/infra/mailtm"
	"telegram-tempmail-relay/internal/infra/security"
	"telegram-tempmail-relay/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	userID := flag.String("user", "", "user identity to bind the session to")
	chatID := flag.Int64("chat", 0, "telegram chat id for notifications (0 for web-only)")
	address := flag.String("address", "", "provisioned mailbox address")
	secret := flag.String("secret", "", "mailbox credential secret")
	flag.Parse()

	if *userID == "" || *address == "" || *secret == "" {
		log.Fatal("usage: seed -user <id> -address <mailbox> -secret <password> [-chat <id>]")
	}

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 16 && len(encKey) != 24 && len(encKey) != 32 {
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		log.Fatalf("encryption: %v", err)
	}

	sessionRepo := pg.NewSessionRepo(pool, encSvc)
	provider := mailtm.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout.Std())
	sessionUC := usecase.NewSessionUseCase(sessionRepo, provider, logger)

	s, err := sessionUC.Register(ctx, *userID, *chatID, *address, *secret)
	if err != nil {
		log.Fatalf("register session: %v", err)
	}
	fmt.Printf("session %s registered for %s (%s)\n", s.ID, s.UserID, s.MailboxAddress)
}
