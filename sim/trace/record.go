// Package trace provides per-tick event recording for plasmid population runs.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// TickRecord counts the events applied during one tick.
type TickRecord struct {
	Tick   int
	Trials int

	Lysis          int
	Fission        int
	FissionBlocked int // fission drawn but no empty target existed

	SegregationLoss         int // plasmids lost to segregation at fission
	IncompatibilityDiscards int // plasmids removed by the incompatibility resolver

	TransferAccepted    int
	TransferNoRecipient int // contacted site was empty
	TransferRejectedPID int // recipient already hosted the same plasmid
	TransferRejectedInc int // surface exclusion

	Immigration int
}

// TransferAttempts is the number of transfer events drawn, accepted or not.
func (r TickRecord) TransferAttempts() int {
	return r.TransferAccepted + r.TransferNoRecipient + r.TransferRejectedPID + r.TransferRejectedInc
}

// Add accumulates other into r. Tick is left unchanged.
func (r *TickRecord) Add(other TickRecord) {
	r.Trials += other.Trials
	r.Lysis += other.Lysis
	r.Fission += other.Fission
	r.FissionBlocked += other.FissionBlocked
	r.SegregationLoss += other.SegregationLoss
	r.IncompatibilityDiscards += other.IncompatibilityDiscards
	r.TransferAccepted += other.TransferAccepted
	r.TransferNoRecipient += other.TransferNoRecipient
	r.TransferRejectedPID += other.TransferRejectedPID
	r.TransferRejectedInc += other.TransferRejectedInc
	r.Immigration += other.Immigration
}
