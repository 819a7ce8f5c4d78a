package httpapi

import (
	stdhttp "net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"portraitbot/internal/http/handlers"
	"portraitbot/internal/middleware"
)

// RouterOptions configures the ops router.
type RouterOptions struct {
	// OpsToken guards the user endpoints when set.
	OpsToken string
	// StaticDir is served under /static when datasets are stored locally.
	StaticDir string
}

func NewRouter(app *handlers.App, opts RouterOptions) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(app.Logger))

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/users", func(r chi.Router) {
		r.Use(middleware.BearerToken(opts.OpsToken))
		r.Get("/{id}", app.GetUser)
	})

	if opts.StaticDir != "" {
		r.Handle("/static/*", stdhttp.StripPrefix("/static/", stdhttp.FileServer(filesOnly{stdhttp.Dir(opts.StaticDir)})))
	}

	return r
}

// filesOnly hides directories so stored objects are reachable only by their
// full key.
type filesOnly struct {
	fs stdhttp.FileSystem
}

func (f filesOnly) Open(name string) (stdhttp.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
