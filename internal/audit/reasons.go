package audit

// Machine-distinguishable reason codes attached to audit records. Every
// rejection and failure carries exactly one of these; nothing fails
// silently.
const (
	ReasonEmergencyStop   = "blocked: emergency stop"
	ReasonMaxPositions    = "blocked: max positions"
	ReasonLossLimit       = "blocked: loss limit"
	ReasonBelowMinSize    = "skip: below min size"
	ReasonDuplicate       = "skip: duplicate signal"
	ReasonAlreadyOpen     = "skip: position already open"
	ReasonExecutionFailed = "execution failed"
)
