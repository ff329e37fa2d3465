package conversation

import "github.com/prometheus/client_golang/prometheus"

var (
	// transitions counts handled messages by step before and after.
	// "none" stands for the absence of a session.
	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_conversation_transitions_total",
			Help: "Inbound messages handled, by session step before and after.",
		},
		[]string{"from", "to"},
	)

	// claims counts code claim attempts by result (claimed, rejected, error).
	claims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_code_claims_total",
			Help: "Code claim attempts by result.",
		},
		[]string{"result"},
	)

	// outbound counts replies by delivery result (sent, failed).
	outbound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_outbound_messages_total",
			Help: "Outbound replies by delivery result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(transitions, claims, outbound)
}

func stepLabel(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
