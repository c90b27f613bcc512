package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vulnetix/bkctl/internal/api"
	"github.com/vulnetix/bkctl/internal/auth"
	"github.com/vulnetix/bkctl/internal/config"
	"github.com/vulnetix/bkctl/internal/history"
	"github.com/vulnetix/bkctl/internal/logging"
	"github.com/vulnetix/bkctl/internal/notify"
)

// app is everything a command needs to talk to the backend
type app struct {
	cfg     *config.Config
	output  config.OutputFormat
	store   auth.Store
	client  *api.Client
	history *history.History
	toaster *notify.Toaster
	logger  *slog.Logger
}

// newApp wires the client, its failure interceptor and the session store.
// Notifications and logs go to stderr so stdout only carries response bodies.
func newApp(cfg *config.Config, stderr io.Writer) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	output, err := config.ValidateOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	kind, err := auth.ValidateStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	store, err := auth.NewStore(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat, stderr)

	options := []api.Option{
		api.WithClientCredentials(cfg.ClientID, cfg.ClientSecret),
		api.WithLogger(logger),
	}
	if cfg.Timeout > 0 {
		options = append(options, api.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	a := &app{
		cfg:     cfg,
		output:  output,
		store:   store,
		client:  api.NewClient(cfg.BackendURL, store, options...),
		history: history.New(),
		toaster: notify.NewToaster(stderr),
		logger:  logger,
	}
	api.NewFailureInterceptor(a.store, a.toaster, a.history, logger).Register(a.client)
	a.history.Listen(func(location string) {
		logger.Debug("location changed", "location", location)
	})
	return a, nil
}
