// Package rankupdate recomputes PageRank scores over the link graph on a
// schedule and publishes each snapshot for the query path to pick up.
package rankupdate

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sokmotor/sokmotor/pagerank"
)

// Service periodically recomputes and publishes PageRank scores. It
// satisfies the service.Service interface.
type Service struct {
	cfg        Config
	calculator *pagerank.Calculator

	lastDocCount int
}

// New creates a fully configured PageRank update service instance.
func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("rank update service config validation failed: %w", err)
	}

	calc, err := pagerank.NewCalculator(cfg.Calculation)
	if err != nil {
		return nil, fmt.Errorf("rank update service config validation failed: %w", err)
	}

	return &Service{cfg: cfg, calculator: calc}, nil
}

// Name returns the name of the service.
func (svc *Service) Name() string { return "rank-update" }

// Run executes the service and blocks until the context is cancelled or a
// pass fails.
func (svc *Service) Run(ctx context.Context) error {
	svc.cfg.Logger.WithField(
		"update_interval", svc.cfg.UpdateInterval.String(),
	).Info("starting service")
	defer svc.cfg.Logger.Info("stopped service")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-svc.cfg.Clock.After(svc.cfg.UpdateInterval):
			if err := svc.updatePass(ctx); err != nil {
				return err
			}
		}
	}
}

func (svc *Service) updatePass(ctx context.Context) error {
	nodes, err := svc.cfg.Graph.Nodes()
	if err != nil {
		return fmt.Errorf("rank update: unable to read link graph: %w", err)
	}

	changed := len(nodes) - svc.lastDocCount
	if changed < 0 {
		changed = -changed
	}
	if changed < svc.cfg.MinChangedDocs {
		svc.cfg.Logger.WithField("doc_count", len(nodes)).
			Debug("skipping update pass: link graph unchanged")

		return nil
	}

	startedAt := svc.cfg.Clock.Now()

	snapshot, err := svc.calculator.Calculate(ctx, svc.cfg.Graph)
	if err != nil {
		return fmt.Errorf("rank update: %w", err)
	}

	svc.cfg.Scores.Publish(snapshot)
	svc.lastDocCount = len(nodes)

	svc.cfg.Logger.WithFields(logrus.Fields{
		"scored_docs":  snapshot.Len(),
		"elapsed_time": svc.cfg.Clock.Now().Sub(startedAt).String(),
	}).Info("published new score snapshot")

	return nil
}
