package server

import (
	"context"

	"github.com/temmyjay001/agency-service/internal/auth"
	"github.com/temmyjay001/agency-service/internal/callbacks"
	"github.com/temmyjay001/agency-service/internal/config"
	"github.com/temmyjay001/agency-service/internal/credits"
	"github.com/temmyjay001/agency-service/internal/events"
	"github.com/temmyjay001/agency-service/internal/leads"
	"github.com/temmyjay001/agency-service/internal/metering"
	"github.com/temmyjay001/agency-service/internal/relay"
	"github.com/temmyjay001/agency-service/internal/storage"
)

type Server struct {
	config           *config.Config
	db               *storage.DB
	dispatcher       *events.Dispatcher
	authMiddleware   *auth.Middleware
	authHandlers     *auth.Handlers
	relayHandlers    *relay.Handlers
	creditHandlers   *credits.Handlers
	meteringHandlers *metering.Handlers
	leadHandlers     *leads.Handlers
	callbackHandlers *callbacks.Handlers
}

// New wires every service on top of the given credit store. db is only set
// when the store is postgres and enables /health/db.
func New(cfg *config.Config, store credits.Store, db *storage.DB) *Server {
	// Initialize services in dependency order
	relayClient := relay.NewClient(relay.Config{
		BaseURL:     cfg.N8NBaseURL,
		WebhookPath: cfg.N8NWebhookPath,
		Secret:      cfg.N8NSharedSecret,
		Timeout:     cfg.N8NTimeout,
		MetricActions: []string{
			leads.ActionLeadIntake,
			metering.ActionAIQuery,
			metering.ActionProductCreate,
			metering.ActionProductPublish,
			events.EventTypeCreditsAdded,
			events.EventTypeCreditsLowBalance,
		},
	})
	dispatcher := events.NewDispatcher(relayClient, events.DefaultQueueSize)

	authService := auth.NewService(cfg)

	creditService := credits.NewService(store, credits.Options{
		DefaultAllocation:   cfg.CreditsDefaultAllocation,
		LowBalanceThreshold: cfg.CreditsLowBalanceThreshold,
		Publisher:           dispatcher,
	})

	meteringService := metering.NewService(creditService, relayClient, cfg.RefundOnRelayFailure)
	catalog := metering.NewCatalog(cfg.AIQueryCost, cfg.ProductCreateCost, cfg.ListingPublishCost)

	return &Server{
		config:           cfg,
		db:               db,
		dispatcher:       dispatcher,
		authMiddleware:   auth.NewMiddleware(authService),
		authHandlers:     auth.NewHandlers(authService),
		relayHandlers:    relay.NewHandlers(relayClient),
		creditHandlers:   credits.NewHandlers(creditService, credits.DefaultPackages),
		meteringHandlers: metering.NewHandlers(meteringService, catalog),
		leadHandlers:     leads.NewHandlers(relayClient),
		callbackHandlers: callbacks.NewHandlers(creditService, cfg.N8NSharedSecret, cfg.N8NCallbackTolerance),
	}
}

// StartEventDispatcher forwards credit events to the automation engine
// until ctx is cancelled.
func (s *Server) StartEventDispatcher(ctx context.Context) {
	s.dispatcher.Start(ctx)
}
