package trader

import (
	"fmt"

	"github.com/Devanshi310/devanshi-binance-bot/pkg/models"
)

// ValidationError rejects an invocation before any venue call. Always fatal
// to the invocation that raised it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GatewayError wraps a network or venue rejection for a single order. It is
// local to that order unless it was the invocation's first venue call.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// PartialExecutionError reports a multi-order run where some but not all
// planned orders succeeded. Carries the ratio; the run itself still produced
// a usable summary.
type PartialExecutionError struct {
	Attempted int
	Succeeded int
}

func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("partial execution: %d/%d orders succeeded", e.Succeeded, e.Attempted)
}

// SupervisionDrift means a monitored order reached a terminal state the
// supervisor did not cause (e.g. EXPIRED). Supervision of that order ends.
type SupervisionDrift struct {
	OrderID string
	Status  models.OrderStatus
}

func (e *SupervisionDrift) Error() string {
	return fmt.Sprintf("order %s drifted to %s outside supervision", e.OrderID, e.Status)
}
