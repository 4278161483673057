package rankupdate

import (
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/sokmotor/sokmotor/linkgraph/graph"
	"github.com/sokmotor/sokmotor/pagerank"
)

// Config defines the settings for the PageRank update service.
type Config struct {
	// Graph is the link graph the scores are computed over.
	Graph graph.Graph

	// Scores receives every freshly computed snapshot.
	Scores *pagerank.Holder

	// Calculation tunes the underlying calculator. A zero value selects
	// the calculator defaults.
	Calculation pagerank.Config

	// Clock drives the pass schedule. A nil value selects the wall clock.
	Clock clock.Clock

	// UpdateInterval is the pause between consecutive update passes.
	UpdateInterval time.Duration

	// MinChangedDocs skips a pass unless the graph grew or shrank by at
	// least this many documents since the previous pass. Defaults to 1.
	MinChangedDocs int

	// Logger receives pass-level diagnostics. A nil value discards them.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error

	if cfg.Graph == nil {
		err = multierror.Append(err, fmt.Errorf("link graph has not been provided"))
	}

	if cfg.Scores == nil {
		err = multierror.Append(err, fmt.Errorf("score holder has not been provided"))
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	if cfg.UpdateInterval == 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for update interval"))
	}

	if cfg.MinChangedDocs < 0 {
		err = multierror.Append(err, fmt.Errorf(
			"invalid value for min changed docs, must be >= 0",
		))
	} else if cfg.MinChangedDocs == 0 {
		cfg.MinChangedDocs = 1
	}

	if cfg.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		cfg.Logger = logrus.NewEntry(discard)
	}

	return err
}
