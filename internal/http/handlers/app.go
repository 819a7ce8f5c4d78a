package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"portraitbot/internal/domain"
	"portraitbot/internal/infra"
)

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UserReader loads bot users.
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type App struct {
	DB     Pinger
	Users  UserReader
	Logger infra.Logger
}

func NewApp(db Pinger, users UserReader, logger *infra.Logger) *App {
	return &App{DB: db, Users: users, Logger: infra.LoggerOrDiscard(logger)}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}
