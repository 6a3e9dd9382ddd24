package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		messagesTotal,
		repliesTotal,
		rateLimitedTotal,
		promptTokensTotal,
	)
}

var (
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Inbound chat messages by classified intent.",
		},
		[]string{"intent"},
	)

	repliesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_replies_total",
			Help: "Outbound replies sent through the chat transport.",
		},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rate_limited_total",
			Help: "Inbound messages dropped by the per-sender rate limiter.",
		},
	)

	promptTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_prompt_tokens_total",
			Help: "Estimated prompt tokens sent to the AI provider, by purpose.",
		},
		[]string{"purpose"},
	)
)

func IncMessage(intent string) { messagesTotal.WithLabelValues(norm(intent)).Inc() }
func IncReply()                { repliesTotal.Inc() }
func IncRateLimited()          { rateLimitedTotal.Inc() }

func AddPromptTokens(purpose string, n int) {
	if n > 0 {
		promptTokensTotal.WithLabelValues(norm(purpose)).Add(float64(n))
	}
}
