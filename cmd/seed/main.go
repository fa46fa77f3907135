package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/boilagbe-backend/internal/config"
	"github.com/shinyyama/boilagbe-backend/internal/db"
	"github.com/shinyyama/boilagbe-backend/internal/logging"
	"github.com/shinyyama/boilagbe-backend/internal/repository"
	"github.com/shinyyama/boilagbe-backend/internal/service"
	"go.uber.org/zap"
)

type seedBook struct {
	Title     string
	Author    string
	Genre     string
	Condition string
	Age       int
	BasePrice float64
}

func main() {
	logger, err := logging.New(os.Getenv("LOG_LEVEL"), "boilagbe-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() { _ = db.Close(gdb) }()

	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	bookRepo := repository.NewBookRepository(gdb)
	cnt, err := bookRepo.CountAll(ctx)
	if err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	if cnt > 0 && !strings.EqualFold(os.Getenv("FORCE_SEED"), "true") {
		logger.Info("book listings already exist; skipping seed (set FORCE_SEED=true to override)", zap.Int64("count", cnt))
		return nil
	}

	books := service.NewBookService(bookRepo)
	year := time.Now().Year()
	seeded := 0
	for i, b := range seedBooks() {
		img := coverURL(i + 1)
		listing, err := books.Create(ctx, service.BookInput{
			Title:       b.Title,
			Author:      b.Author,
			Genre:       b.Genre,
			Condition:   b.Condition,
			EditionYear: year - b.Age,
			BasePrice:   b.BasePrice,
			OwnerEmail:  "seller@boilagbe.example",
			Location:    "Dhaka",
			Description: fmt.Sprintf("%s by %s. %s condition.", b.Title, b.Author, b.Condition),
			ImageURL:    &img,
		})
		if err != nil {
			return fmt.Errorf("create %q: %w", b.Title, err)
		}
		logger.Debug("listing seeded", zap.Uint64("id", listing.ID), zap.Float64("finalPrice", listing.FinalPrice))
		seeded++
	}

	if uid := os.Getenv("SEED_CHAT_ADMIN"); uid != "" {
		if err := seedChat(ctx, repository.NewMessageRepository(gdb), uid, logger); err != nil {
			return err
		}
	}

	logger.Info("seed complete", zap.Int("books", seeded))
	return nil
}

// seedChat leaves one unread buyer message in the admin's inbox so the chat list has content.
func seedChat(ctx context.Context, repo repository.MessageRepository, adminUID string, logger *zap.Logger) error {
	msgs := service.NewMessageService(repo, nil, logger)
	_, err := msgs.Send(ctx, service.SendInput{
		SenderID:   "demo-buyer",
		ReceiverID: adminUID,
		Text:       "Hi, is the Pather Panchali copy still available?",
		Via:        "seed",
	})
	if err != nil {
		return fmt.Errorf("seed chat: %w", err)
	}
	return nil
}

func seedBooks() []seedBook {
	return []seedBook{
		{"Pather Panchali", "Bibhutibhushan Bandyopadhyay", "Fiction", "Good", 6, 450},
		{"Gitanjali", "Rabindranath Tagore", "Poetry", "Like new", 0, 300},
		{"Feluda Samagra", "Satyajit Ray", "Mystery", "Fair", 9, 1200},
		{"Himu Samagra", "Humayun Ahmed", "Fiction", "Good", 2, 800},
		{"Lalsalu", "Syed Waliullah", "Fiction", "Worn", 14, 250},
		{"Introduction to Algorithms", "Cormen et al.", "Academic", "Good", 3, 2500},
		{"HSC Physics Part 1", "Ishak & Nurul", "Academic", "Fair", 1, 350},
		{"Sheikh Mujib: The Unfinished Memoirs", "Sheikh Mujibur Rahman", "Biography", "Like new", 4, 600},
	}
}

func coverURL(k int) string {
	return fmt.Sprintf("https://picsum.photos/seed/boilagbe-%d/600/800", k)
}
