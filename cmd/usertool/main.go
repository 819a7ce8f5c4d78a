package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"portraitbot/internal/adapter/repo"
	"portraitbot/internal/collector"
	"portraitbot/internal/domain"
	"portraitbot/internal/infra"
	"portraitbot/internal/lifecycle"
)

func main() {
	_ = godotenv.Load(".env", ".env.local")

	var (
		idFlag    int64
		resetFlag bool
	)
	flag.Int64Var(&idFlag, "id", 0, "telegram user id")
	flag.BoolVar(&resetFlag, "reset", false, "return the user to the start of onboarding, dropping the trained model")
	flag.Parse()

	if idFlag == 0 {
		exitWithError(errors.New("-id is required"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "usertool").Int64("user_id", idFlag).Logger()
	users := repo.NewUserRepository(infra.NewSQLRunner(pool, logger))

	var user *domain.User
	if resetFlag {
		// Pending photos live in the bot process; only the record is reset here.
		svc := lifecycle.New(lifecycle.Deps{Users: users, Collector: collector.New(users, &logger), Logger: &logger})
		user, err = svc.Reset(ctx, idFlag)
	} else {
		user, err = users.GetByID(ctx, idFlag)
	}
	if errors.Is(err, domain.ErrNotFound) {
		exitWithError(fmt.Errorf("user %d not found", idFlag))
	}
	if err != nil {
		exitWithError(err)
	}

	fmt.Printf("user %d status=%s\n", user.ID, user.Status)
	if user.DatasetRef != "" {
		fmt.Printf("dataset_ref=%s\n", user.DatasetRef)
	}
	if user.ModelRef != "" {
		fmt.Printf("model_ref=%s\n", user.ModelRef)
	}
	fmt.Printf("updated_at=%s\n", user.UpdatedAt.Format(time.RFC3339))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
