// internal/action/result.go
package action

// Strategy names one way of clicking an element.
type Strategy string

const (
	// StrategyDirect is a trusted pointer click at the element center.
	StrategyDirect Strategy = "direct"
	// StrategyScript calls HTMLElement.click() from page script.
	StrategyScript Strategy = "script"
	// StrategyPointer moves the pointer onto the element, then clicks.
	StrategyPointer Strategy = "pointer"
	// StrategyKeyboard focuses the element and sends Enter.
	StrategyKeyboard Strategy = "keyboard"
)

// clickStrategies is the fallback order. The first strategy that completes
// without an error wins.
var clickStrategies = []Strategy{StrategyDirect, StrategyScript, StrategyPointer, StrategyKeyboard}

// FailureKind classifies why a primitive failed. Callers treat every kind
// as a plain failure; the distinction exists for logs.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureNotFound means no candidate matched before the timeout.
	FailureNotFound
	// FailureNotInteractable means the element was present but never
	// became visible and enabled, or every strategy was refused.
	FailureNotInteractable
	// FailureToolkit means the browser itself reported an error.
	FailureToolkit
)

func (f FailureKind) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureNotFound:
		return "not_found"
	case FailureNotInteractable:
		return "not_interactable"
	case FailureToolkit:
		return "toolkit_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of a click or type primitive.
type Result struct {
	OK bool
	// Strategy is the click strategy that succeeded.
	Strategy Strategy
	// Attempted lists the click strategies tried, in order.
	Attempted []Strategy
	Failure   FailureKind
	// Err is the last underlying error, for logs.
	Err error
}

func success(s Strategy, attempted []Strategy) Result {
	return Result{OK: true, Strategy: s, Attempted: attempted}
}

func failure(kind FailureKind, err error, attempted []Strategy) Result {
	return Result{Failure: kind, Err: err, Attempted: attempted}
}
