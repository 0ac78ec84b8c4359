package webhook

import "github.com/stretchr/testify/mock"

// MatchEnvelope creates a custom matcher for envelope arguments in mocks
func MatchEnvelope(matcher func(Envelope) bool) interface{} {
	return mock.MatchedBy(matcher)
}

// MatchOutboxEntry creates a custom matcher for outbox entry arguments in mocks
func MatchOutboxEntry(matcher func(OutboxEntry) bool) interface{} {
	return mock.MatchedBy(matcher)
}
