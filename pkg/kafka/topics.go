package kafka

// Topic names shared between the producer and consumer sides
const (
	TopicEstimateDecisions    = "estimate-decisions"
	TopicEstimateDecisionsDLQ = "estimate-decisions-dlq"
)
