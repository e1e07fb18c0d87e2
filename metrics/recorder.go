// Package metrics exposes auth session activity as Prometheus counters.
package metrics

import (
	"context"

	auth "github.com/goliatone/go-phone-auth"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "phone_auth"

// Recorder counts session lifecycle activity. It implements
// auth.ActivitySink so it can be handed to the manager directly.
type Recorder struct {
	created     prometheus.Counter
	transitions *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	links       prometheus.Counter
}

var _ auth.ActivitySink = (*Recorder)(nil)

// NewRecorder registers the collectors on reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Auth sessions opened.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Auth session status changes.",
		}, []string{"from", "to"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_requests_total",
			Help:      "Token issuance attempts by outcome.",
		}, []string{"outcome"}),
		links: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_links_total",
			Help:      "Chat identities linked to phone numbers.",
		}),
	}

	for _, c := range []prometheus.Collector{r.created, r.transitions, r.tokens, r.links} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Record implements auth.ActivitySink.
func (r *Recorder) Record(_ context.Context, event auth.ActivityEvent) error {
	switch event.EventType {
	case auth.ActivityEventSessionCreated:
		r.created.Inc()
	case auth.ActivityEventSessionTransition:
		r.transitions.WithLabelValues(event.FromStatus, event.ToStatus).Inc()
	case auth.ActivityEventTokensIssued:
		r.tokens.WithLabelValues("issued").Inc()
	case auth.ActivityEventTokensDenied:
		r.tokens.WithLabelValues("denied").Inc()
	case auth.ActivityEventIdentityLinked:
		r.links.Inc()
	}
	return nil
}
