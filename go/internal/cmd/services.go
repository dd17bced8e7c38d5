package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/clients/grading_client"
	"github.com/mcdev12/studyroom/go/internal/config"
	"github.com/mcdev12/studyroom/go/internal/study/api"
	"github.com/mcdev12/studyroom/go/internal/study/archive"
	"github.com/mcdev12/studyroom/go/internal/study/gateway"
	"github.com/mcdev12/studyroom/go/internal/study/ingress"
	"github.com/mcdev12/studyroom/go/internal/study/orchestrator"
	"github.com/mcdev12/studyroom/go/internal/study/outbox"
	"github.com/mcdev12/studyroom/go/internal/study/participant"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Gateway      *gateway.Service
	Dispatcher   *outbox.Dispatcher
	Ingress      *ingress.HTTPHandler
	API          *api.Service

	closers []func() error
}

// Close releases external connections opened during setup.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close resource")
		}
	}
}

func setupServices(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*Services, error) {
	// Wire up dependency injection chain
	// Publishers → Dispatcher → Orchestrator → Gateway / Ingress / API
	svcs := &Services{}

	policy, err := participant.ParseRetentionPolicy(cfg.Directory.Retention)
	if err != nil {
		return nil, err
	}

	// Outbox
	dispatcher := outbox.NewDispatcher(outbox.Config{
		Workers:        cfg.Outbox.Workers,
		QueueSize:      cfg.Outbox.QueueSize,
		PublishTimeout: outbox.DefaultConfig().PublishTimeout,
	})
	if err := registerPublishers(ctx, cfg, dispatcher, svcs); err != nil {
		svcs.Close()
		return nil, err
	}
	svcs.Dispatcher = dispatcher

	// Orchestrator and gateway reference each other; the broadcaster is set after both exist.
	orch := orchestrator.NewOrchestrator(clock, policy, nil, dispatcher)
	gatewayService := gateway.NewService(gateway.DefaultConfig(), orch)
	orch.SetBroadcaster(gatewayService)
	svcs.Orchestrator = orch
	svcs.Gateway = gatewayService

	// Ingress
	in := ingress.NewIngress(clock, orch, dispatcher)
	svcs.Ingress = ingress.NewHTTPHandler(in, 0)

	// Query API
	svcs.API = api.NewService(orch)

	return svcs, nil
}

func registerPublishers(ctx context.Context, cfg *config.Config, dispatcher *outbox.Dispatcher, svcs *Services) error {
	if cfg.Grading.URL != "" {
		client := grading_client.NewGradingClient(cfg.Grading.URL, cfg.Grading.Timeout)
		dispatcher.Register(outbox.EventTypeSubmissionReceived, outbox.NewGradingPublisher(client))
		log.Info().Str("url", cfg.Grading.URL).Msg("forwarding submissions to grading service")
	} else {
		dispatcher.Register(outbox.EventTypeSubmissionReceived, outbox.NewLogPublisher())
		log.Warn().Msg("no grading url configured, submissions are only logged")
	}

	if cfg.NATS.Enabled {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		jsCfg.StreamName = cfg.NATS.Stream
		jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix

		js, err := outbox.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		dispatcher.RegisterAll(js)
		svcs.closers = append(svcs.closers, js.Close)
	}

	if cfg.Archive.Enabled {
		database, err := setupDatabase(ctx, cfg.Archive.Database)
		if err != nil {
			return err
		}
		svcs.closers = append(svcs.closers, database.Close)

		if err := setupArchive(ctx, database, dispatcher); err != nil {
			return err
		}
	}
	return nil
}

func setupArchive(ctx context.Context, database *sql.DB, dispatcher *outbox.Dispatcher) error {
	repo := archive.NewRepository(database)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	dispatcher.Register(outbox.EventTypeSessionFinalized, repo)
	return nil
}
