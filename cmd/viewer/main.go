// Viewer renders a room's message log as a table, offline. It opens the
// Badger directory read-only so it can run next to a live relay.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"chat-relay/internal"
	"chat-relay/repositories"
)

func main() {
	room := flag.String("room", "general", "room key to inspect")
	flag.Parse()

	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if another process (the relay) holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := repositories.NewMessageRepository(db, slog.New(slog.NewTextHandler(os.Stderr, nil)), nil)
	messages, err := repo.History(*room)
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Author", "Content", "ID"})
	for _, m := range messages {
		table.Append([]string{
			m.CreatedAt().Format(time.RFC3339),
			m.Author,
			m.Content,
			m.ID.String(),
		})
	}

	fmt.Printf("Room %q, %d messages\n", *room, len(messages))
	table.Render()
}
