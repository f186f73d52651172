package domain

// SafetyVerdict is the outcome of running the full security screen over a
// token. MatchedSignals preserves the order in which rules matched,
// including advisory warnings that did not block on their own.
type SafetyVerdict struct {
	Flagged        bool     `json:"flagged"`
	MatchedSignals []string `json:"matched_signals,omitempty"`
}
