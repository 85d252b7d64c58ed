package apiclient

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// errServerStatus marks a 5xx answer as a breaker failure while the response
// itself is still handed back to the caller.
var errServerStatus = errors.New("upstream server error")

type Breaker = gobreaker.CircuitBreaker[*rawResponse]

// NewBreaker builds the circuit breaker shared by every shopper client.
// It opens after maxFailures consecutive transport errors or 5xx answers.
// A shopper cancelling a request or running out of time is not an upstream
// failure and leaves the counts alone.
func NewBreaker(maxFailures uint32, openTimeout time.Duration, log *zap.Logger) *Breaker {
	return gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        "storefront-api",
		MaxRequests: 1,
		Timeout:     openTimeout,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}
