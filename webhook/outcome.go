package webhook

import "fmt"

/* Outcome is what the router decided for an event type
 * Ignored is not an error: the processor still gets an acknowledgment
 */
type Outcome int

const (
	Handled Outcome = iota + 1
	Ignored
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case Handled:
		return "handled"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Validate checks if the outcome is valid
func (o Outcome) Validate() error {
	if o != Handled && o != Ignored {
		return fmt.Errorf("invalid outcome: %d", o)
	}
	return nil
}

// Disposition is the recorded end state of one inbound delivery
type Disposition string

const (
	RejectedSignature Disposition = "rejected_signature"
	RejectedPayload   Disposition = "rejected_payload"
	IgnoredEvent      Disposition = "ignored"
	NormalizeFailed   Disposition = "normalize_failed"
	DispatchFailed    Disposition = "dispatch_failed"
	Dispatched        Disposition = "dispatched"
)

// IsOperationalError reports dispositions that were acknowledged but lost the message
func (d Disposition) IsOperationalError() bool {
	return d == NormalizeFailed || d == DispatchFailed
}

// IsRejected reports dispositions answered with a client error
func (d Disposition) IsRejected() bool {
	return d == RejectedSignature || d == RejectedPayload
}
