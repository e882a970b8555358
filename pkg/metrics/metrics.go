package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProposalsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aster",
		Subsystem: "moderation",
		Name:      "proposals_submitted_total",
		Help:      "Proposals submitted, labeled by entity kind.",
	}, []string{"entity_type"})

	ProposalsApproved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aster",
		Subsystem: "moderation",
		Name:      "proposals_approved_total",
		Help:      "Proposals approved, labeled by entity kind.",
	}, []string{"entity_type"})

	ProposalsDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aster",
		Subsystem: "moderation",
		Name:      "proposals_denied_total",
		Help:      "Proposals denied, labeled by entity kind.",
	}, []string{"entity_type"})

	PartialApprovals = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aster",
		Subsystem: "moderation",
		Name:      "partial_approvals_total",
		Help:      "Approvals where the entity write landed but the status transition failed.",
	})

	EntityWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aster",
		Subsystem: "entities",
		Name:      "writes_total",
		Help:      "Entity writes, labeled by entity kind and operation.",
	}, []string{"entity_type", "operation"})
)
