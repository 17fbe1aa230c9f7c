package sim

import "math"

// EventKind is the outcome of a single site trial.
type EventKind int

const (
	EventNone EventKind = iota
	EventLysis
	EventFission
	EventTransfer
)

func (k EventKind) String() string {
	switch k {
	case EventLysis:
		return "lysis"
	case EventFission:
		return "fission"
	case EventTransfer:
		return "transfer"
	default:
		return "none"
	}
}

// Propensities are the per-trial probabilities of each event kind for one host.
// They partition [0, 1) in the order lysis, fission, transfer; the remainder
// is the probability that nothing happens.
type Propensities struct {
	Lysis    float64
	Fission  float64
	Transfer float64
}

// HostFitness is max(0, 1 - total burden) of a set of residents.
func HostFitness(residents []*Plasmid) float64 {
	burden := 0.0
	for _, p := range residents {
		burden += p.PB()
	}
	return math.Max(0, 1-burden)
}

// ComputePropensities derives the event probabilities of an occupied site
// from its residents, its resource availability, the current bacteriostatic
// antibiotic action and the mortality rate.
//
// Fission scales with host fitness and free space; antibiotic action only
// suppresses hosts without a resistance plasmid. Transfer scales with the
// summed transfer probability of the residents and free space.
func ComputePropensities(residents []*Plasmid, resource, baa, mortality float64) Propensities {
	tpSum := 0.0
	resistant := 0.0
	for _, p := range residents {
		tpSum += p.TP()
		if p.Traits.Res {
			resistant = 1
		}
	}
	return Propensities{
		Lysis:    mortality,
		Fission:  HostFitness(residents) * resource * (1 - baa*(1-resistant)),
		Transfer: tpSum * resource,
	}
}

// ChooseEvent maps a uniform draw u in [0, 1) to an event kind.
func ChooseEvent(u float64, p Propensities) EventKind {
	switch {
	case u < p.Lysis:
		return EventLysis
	case u < p.Lysis+p.Fission:
		return EventFission
	case u < p.Lysis+p.Fission+p.Transfer:
		return EventTransfer
	default:
		return EventNone
	}
}

// TransferOutcome records what happened to a conjugation attempt.
type TransferOutcome int

const (
	TransferAccepted TransferOutcome = iota
	// TransferNoDonor: no resident has a positive transfer probability.
	TransferNoDonor
	// TransferNoRecipient: the contacted site is empty or does not exist.
	TransferNoRecipient
	// TransferRejectedPID: the recipient already hosts the same plasmid.
	TransferRejectedPID
	// TransferRejectedInc: surface exclusion blocked a same-group plasmid.
	TransferRejectedInc
)

func (o TransferOutcome) String() string {
	switch o {
	case TransferAccepted:
		return "accepted"
	case TransferNoDonor:
		return "no-donor"
	case TransferNoRecipient:
		return "no-recipient"
	case TransferRejectedPID:
		return "rejected-pid"
	case TransferRejectedInc:
		return "rejected-inc"
	default:
		return "unknown"
	}
}
