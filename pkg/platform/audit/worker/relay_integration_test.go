//go:build integration

package worker_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"marketgate/internal/platform/kafka"
	kafkaconsumer "marketgate/internal/platform/kafka/consumer"
	audit "marketgate/pkg/platform/audit"
	auditconsumer "marketgate/pkg/platform/audit/consumer"
	auditpostgres "marketgate/pkg/platform/audit/store/postgres"
	"marketgate/pkg/platform/audit/worker"
	txcontext "marketgate/pkg/platform/tx"
	"marketgate/pkg/testutil/containers"
)

// PipelineSuite runs the outbox through a real broker and back into the
// materialized compliance table.
type PipelineSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	store    *auditpostgres.Store
	logger   *slog.Logger
}

func TestPipelineSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
	s.store = auditpostgres.New(s.postgres.DB)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *PipelineSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox", "audit_compliance"))
}

func (s *PipelineSuite) TestOutboxReachesAuditCompliance() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	suffix := uuid.NewString()[:8]
	complianceTopic := "compliance-" + suffix
	opsTopic := "ops-" + suffix

	client, err := kafka.NewClient(s.redpanda.Brokers)
	s.Require().NoError(err)
	defer client.Close()
	s.Require().NoError(kafka.EnsureTopics(ctx, client, complianceTopic, opsTopic))
	s.Require().NoError(kafka.EnsureTopics(ctx, client, complianceTopic), "existing topics are not an error")

	entityID := "lease-" + suffix
	s.Require().NoError(s.store.Append(ctx, audit.ComplianceEvent{
		Timestamp:  time.Now().UTC(),
		Action:     string(audit.EventGateEvaluated),
		EntityType: "lease",
		EntityID:   entityID,
		Gate:       "lease_creation",
		Decision:   "allowed",
		MarketPack: "nyc",
	}.ToEvent()))
	s.Require().NoError(s.store.Append(ctx, audit.OpsEvent{
		Timestamp: time.Now().UTC(),
		Action:    string(audit.EventMarketPackViewed),
		Subject:   "nyc",
	}.ToEvent()))

	relay := worker.NewRelay(s.store, kafka.NewProducer(client), complianceTopic, opsTopic,
		worker.WithLogger(s.logger),
		worker.WithTxRunner(func(ctx context.Context, fn func(ctx context.Context) error) error {
			return txcontext.Run(ctx, s.postgres.DB, fn)
		}),
	)
	n, err := relay.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	router := auditconsumer.NewRouter(s.logger, nil)
	router.Register(complianceTopic, auditconsumer.NewComplianceHandler(s.store, s.logger))
	c, err := kafkaconsumer.New(s.redpanda.Brokers, "audit-"+suffix, router.Topics(), router, s.logger)
	s.Require().NoError(err)
	defer c.Close()

	consumeCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(consumeCtx) }()

	s.Eventually(func() bool {
		events, err := s.store.ListByEntity(ctx, entityID)
		return err == nil && len(events) == 1
	}, 30*time.Second, 200*time.Millisecond)

	stop()
	<-done

	pending, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}
