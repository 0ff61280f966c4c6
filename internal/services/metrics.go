package services

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// reactionOutcomes counts reaction writes by outcome (accepted|duplicate|removed).
var reactionOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reaction_outcomes_total",
		Help: "Reaction writes by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(reactionOutcomes)
}

// loggerFrom returns the request-scoped logger carried by ctx, or the global
// logger when none was attached.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
