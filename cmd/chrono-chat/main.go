package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/vedran77/chronofeed/internal/client"
	"github.com/vedran77/chronofeed/internal/inbox"
	"github.com/vedran77/chronofeed/internal/session"
	"github.com/vedran77/chronofeed/internal/tui"
)

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("CHRONO_SERVER", "http://localhost:8080"), "API server base URL")
	email := flag.String("email", os.Getenv("CHRONO_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("CHRONO_PASSWORD"), "account password")
	logPath := flag.String("log", envOr("CHRONO_CHAT_LOG", "chrono-chat.log"), "log file")
	flag.Parse()

	if err := run(*server, *email, *password, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(server, email, password, logPath string) error {
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required (-email/-password or CHRONO_EMAIL/CHRONO_PASSWORD)")
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

	api := client.New(server)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	self, err := api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	slog.Info("logged in", "user_id", self.ID, "username", self.Username)

	stream, err := api.Dial(ctx)
	if err != nil {
		return fmt.Errorf("connect realtime: %w", err)
	}
	defer stream.Close()

	projection := inbox.New(self.ID, clockwork.NewRealClock())
	model := tui.New(tui.Options{
		Self:    *self,
		Backend: api,
		Stream:  stream,
		Dial: func(ctx context.Context) (tui.Stream, error) {
			return api.Dial(ctx)
		},
		Inbox:   projection,
		Session: session.NewController(self.ID, api, projection),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
