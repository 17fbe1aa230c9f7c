// sim/simulator.go
package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/plasmid-sim/plasmid-sim/sim/trace"
)

// StopReason is the terminal state of a run.
type StopReason string

const (
	StopTickBudget        StopReason = "tick budget reached"
	StopPlasmidExtinction StopReason = "plasmid extinction"
	StopResistanceLost    StopReason = "resistance lost"
	StopCanceled          StopReason = "canceled"
)

// Observer receives the summary after seeding (tick 0) and after every tick.
type Observer interface {
	ObserveTick(ctx context.Context, st *State, s Summary) error
}

// Finisher is implemented by observers that need the final state and stop reason.
type Finisher interface {
	Finish(ctx context.Context, st *State, s Summary, reason StopReason) error
}

// Result describes how a run ended.
type Result struct {
	Reason StopReason
	Ticks  int
	Final  Summary
}

// Simulator drives a State tick by tick and evaluates stop rules at tick boundaries.
type Simulator struct {
	State     *State
	Trace     *trace.SimulationTrace
	Summary   Summary
	observers []Observer
}

// NewSimulator validates cfg, builds and seeds the initial population.
func NewSimulator(cfg Config, traceCfg trace.TraceConfig) (*Simulator, error) {
	st, err := NewState(cfg)
	if err != nil {
		return nil, err
	}
	if err := st.Seed(); err != nil {
		return nil, fmt.Errorf("seeding: %w", err)
	}
	return &Simulator{
		State:   st,
		Trace:   trace.NewSimulationTrace(traceCfg),
		Summary: Summarize(st),
	}, nil
}

// AddObserver registers an observer. Observers are called in registration order.
func (s *Simulator) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Run advances the simulation until a stop rule fires or ctx is canceled.
// Cancellation is only checked between ticks.
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	if err := s.notify(ctx); err != nil {
		return Result{}, err
	}
	for {
		if ctx.Err() != nil {
			logrus.Warnf("[tick %05d] run canceled: %v", s.State.Tick, ctx.Err())
			return s.finish(ctx, StopCanceled)
		}
		if err := s.State.RunTick(); err != nil {
			return Result{}, err
		}
		s.Trace.RecordTick(s.State.Events)
		s.Summary = Summarize(s.State)
		logrus.Infof("[tick %05d] Fc=%d Pc=%d plasmids=%d types=%d ARP=%d",
			s.Summary.Tick, s.Summary.Fc, s.Summary.Pc, s.Summary.PlasmidCount, s.Summary.PlasmidDiv, s.Summary.ARP)
		if err := s.notify(ctx); err != nil {
			return Result{}, err
		}
		if reason := s.stopReason(); reason != "" {
			return s.finish(ctx, reason)
		}
	}
}

// stopReason evaluates stop rules in priority order: extinction, resistance
// loss, tick budget. Returns "" to continue.
func (s *Simulator) stopReason() StopReason {
	cfg := s.State.Config
	switch {
	case s.Summary.Pc == 0:
		return StopPlasmidExtinction
	case cfg.Resistance.StopWhenLost && cfg.ResistanceEnabled() && s.Summary.ARP == 0:
		return StopResistanceLost
	case s.State.Tick >= cfg.SimulationTime:
		return StopTickBudget
	default:
		return ""
	}
}

func (s *Simulator) notify(ctx context.Context) error {
	for _, o := range s.observers {
		if err := o.ObserveTick(ctx, s.State, s.Summary); err != nil {
			return fmt.Errorf("observer at tick %d: %w", s.State.Tick, err)
		}
	}
	return nil
}

func (s *Simulator) finish(ctx context.Context, reason StopReason) (Result, error) {
	logrus.Infof("[tick %05d] Simulation ended: %s", s.State.Tick, reason)
	for _, o := range s.observers {
		if f, ok := o.(Finisher); ok {
			if err := f.Finish(context.WithoutCancel(ctx), s.State, s.Summary, reason); err != nil {
				return Result{}, fmt.Errorf("finishing observer: %w", err)
			}
		}
	}
	return Result{Reason: reason, Ticks: s.State.Tick, Final: s.Summary}, nil
}
