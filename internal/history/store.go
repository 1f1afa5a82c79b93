// Package history records pipeline run outcomes in ClickHouse. Recording is
// best-effort: a history outage never fails a pipeline flow.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/config"
)

// Record is one pipeline run outcome.
type Record struct {
	RunID      string
	Kind       string // training, evaluation, deployment
	Subject    string // job name or endpoint name
	Outcome    string
	Detail     string
	OccurredAt time.Time
}

// Store persists pipeline run records.
type Store interface {
	Start(ctx context.Context) error
	Stop() error
	// Record writes a run record. Failures are logged, never returned.
	Record(ctx context.Context, rec *Record)
}

// NewNop returns a Store that discards records, for deployments without a
// history database.
func NewNop() Store {
	return nopStore{}
}

type nopStore struct{}

func (nopStore) Start(context.Context) error     { return nil }
func (nopStore) Stop() error                     { return nil }
func (nopStore) Record(context.Context, *Record) {}

type store struct {
	cfg  *config.Config
	conn driver.Conn
	log  logrus.FieldLogger
}

// NewStore creates a ClickHouse-backed run history store.
func NewStore(log logrus.FieldLogger, cfg *config.Config) Store {
	return &store{
		cfg: cfg,
		log: log.WithField("component", "history_store"),
	}
}

func (s *store) Start(ctx context.Context) error {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", s.cfg.ClickhouseHost, s.cfg.ClickhouseNativePort)},
		Auth: clickhouse.Auth{
			Database: s.cfg.ClickhouseDatabase,
			Username: s.cfg.ClickhouseUsername,
			Password: s.cfg.ClickhousePassword,
		},
		DialTimeout:     30 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return fmt.Errorf("opening clickhouse connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.Ping(pingCtx); err != nil {
		return fmt.Errorf("pinging clickhouse: %w", err)
	}

	s.conn = conn
	s.log.Info("history store started")

	return nil
}

func (s *store) Stop() error {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return fmt.Errorf("closing clickhouse connection: %w", err)
		}
	}

	return nil
}

func (s *store) Record(ctx context.Context, rec *Record) {
	occurredAt := rec.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	err := s.conn.Exec(ctx,
		`INSERT INTO pipeline_runs (run_id, kind, subject, outcome, detail, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Kind, rec.Subject, rec.Outcome, rec.Detail, occurredAt,
	)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"run_id": rec.RunID,
			"kind":   rec.Kind,
		}).Warn("failed to record pipeline run")

		return
	}

	s.log.WithFields(logrus.Fields{
		"run_id":  rec.RunID,
		"kind":    rec.Kind,
		"outcome": rec.Outcome,
	}).Debug("pipeline run recorded")
}
