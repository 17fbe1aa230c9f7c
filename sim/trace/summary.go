package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	Ticks  int
	Totals TickRecord

	MeanLysisPerTick float64
	// TransferAcceptance is accepted transfers over transfer attempts; 0 when
	// no transfer was attempted.
	TransferAcceptance float64
	// RejectionDistribution counts rejected or failed transfers by cause.
	RejectionDistribution map[string]int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		RejectionDistribution: make(map[string]int),
	}
	if st == nil || len(st.Ticks) == 0 {
		return summary
	}

	for _, r := range st.Ticks {
		summary.Totals.Add(r)
	}
	summary.Ticks = len(st.Ticks)
	summary.MeanLysisPerTick = float64(summary.Totals.Lysis) / float64(summary.Ticks)

	if attempts := summary.Totals.TransferAttempts(); attempts > 0 {
		summary.TransferAcceptance = float64(summary.Totals.TransferAccepted) / float64(attempts)
	}
	for cause, n := range map[string]int{
		"no-recipient": summary.Totals.TransferNoRecipient,
		"rejected-pid": summary.Totals.TransferRejectedPID,
		"rejected-inc": summary.Totals.TransferRejectedInc,
	} {
		if n > 0 {
			summary.RejectionDistribution[cause] = n
		}
	}

	return summary
}
