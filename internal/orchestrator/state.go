package orchestrator

// State is a step of the per-turn state machine.
type State int

const (
	StateIdle State = iota
	StateClassifying
	StateRoutingProvider
	StateAwaitingModelResponse
	StateEvaluatingToolCall
	StateAwaitingConfirmation
	StateExecutingTool
	StateResponding
)

var stateNames = [...]string{
	StateIdle:                  "idle",
	StateClassifying:           "classifying",
	StateRoutingProvider:       "routing-provider",
	StateAwaitingModelResponse: "awaiting-model-response",
	StateEvaluatingToolCall:    "evaluating-tool-call",
	StateAwaitingConfirmation:  "awaiting-confirmation",
	StateExecutingTool:         "executing-tool",
	StateResponding:            "responding",
}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
