package domain

// Outcome classifies the result of a lookup against the source service.
type Outcome int

const (
	// OutcomeSuccess means the lookup returned at least one item.
	OutcomeSuccess Outcome = iota
	// OutcomeEmpty means the service answered but had nothing for us
	// (unknown player, no archives, empty month).
	OutcomeEmpty
	// OutcomeFailed means the lookup did not complete; Err holds the reason.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult carries the items of a lookup with its outcome. Items is
// always empty unless Outcome is OutcomeSuccess.
type FetchResult[T any] struct {
	Items   []T
	Outcome Outcome
	Err     error
}

// Succeeded wraps items, downgrading to OutcomeEmpty when there are none.
func Succeeded[T any](items []T) FetchResult[T] {
	if len(items) == 0 {
		return FetchResult[T]{Outcome: OutcomeEmpty}
	}
	return FetchResult[T]{Items: items, Outcome: OutcomeSuccess}
}

// Empty is a lookup that completed without data. reason may be nil.
func Empty[T any](reason error) FetchResult[T] {
	return FetchResult[T]{Outcome: OutcomeEmpty, Err: reason}
}

// Failed is a lookup that did not complete.
func Failed[T any](err error) FetchResult[T] {
	return FetchResult[T]{Outcome: OutcomeFailed, Err: err}
}
