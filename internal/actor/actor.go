// Package actor implements the ActorSystem (§4.3): a deterministic,
// single-threaded, cooperative scheduler multiplexing many VMs, each one
// running as an actor with a FIFO mailbox and a parent/child relationship.
package actor

import (
	"fmt"
	"sort"

	"boruna/internal/bytecode"
	"boruna/internal/capability"
	"boruna/internal/eventlog"
	"boruna/internal/value"
	"boruna/internal/vm"
)

// Status is an actor's scheduling state.
type Status string

const (
	StatusRunnable  Status = "Runnable"
	StatusBlocked   Status = "Blocked"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
)

// Actor is one scheduled unit: a stable id, its VM, its place in the actor
// tree, and its terminal result once Completed (§3 "Actor state").
type Actor struct {
	ID       uint64
	VM       *vm.VM
	ParentID *uint64
	Children []uint64
	Status   Status
	Result   value.Value
	FailErr  *vm.Error
}

type outgoing struct {
	From, To uint64
	Payload  value.Value
}

// System owns every actor's VM and the pending-message queue; no actor VM
// is ever executed from more than one context (§5 Scheduling).
type System struct {
	Module  *bytecode.Module
	Policy  capability.Policy
	Handler capability.Handler
	Log     *eventlog.EventLog

	Actors []*Actor
	nextID uint64

	BudgetPerRound int
	MaxRounds      int
	round          int

	pending []outgoing
}

// NewSystem builds a system with one root actor (id 0) running the
// module's entry function.
func NewSystem(module *bytecode.Module, policy capability.Policy, handler capability.Handler, budgetPerRound, maxRounds int) *System {
	s := &System{
		Module:         module,
		Policy:         policy,
		Handler:        handler,
		Log:            eventlog.New(),
		BudgetPerRound: budgetPerRound,
		MaxRounds:      maxRounds,
	}
	root := &Actor{ID: 0, VM: vm.New(module, s.newGateway()), Status: StatusRunnable}
	s.Actors = append(s.Actors, root)
	s.nextID = 1
	return s
}

func (s *System) newGateway() *capability.Gateway {
	return capability.NewGateway(s.Policy, s.Handler, s.Log)
}

func (s *System) actorByID(id uint64) *Actor {
	for _, a := range s.Actors {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *System) root() *Actor { return s.Actors[0] }

// Run executes rounds until the root actor terminates, a deadlock is
// detected, or max_rounds is exceeded (§4.3).
func (s *System) Run() (value.Value, error) {
	for {
		s.round++
		if s.round > s.MaxRounds {
			return value.Value{}, errMaxRounds(s.MaxRounds)
		}

		runQueue := s.runnableAscending()
		if len(runQueue) == 0 && len(s.pending) == 0 {
			if s.anyBlocked() {
				return value.Value{}, errDeadlock()
			}
			root := s.root()
			if root.Status == StatusCompleted {
				return root.Result, nil
			}
			if root.Status == StatusFailed && root.FailErr != nil {
				return value.Value{}, root.FailErr
			}
			return value.Unit(), nil
		}

		if len(runQueue) > 0 {
			if err := s.executeAndCollect(runQueue); err != nil {
				return value.Value{}, err
			}
		}

		s.deliver()
		s.wake()

		if root := s.root(); root.Status == StatusFailed && root.ParentID == nil {
			if root.FailErr != nil {
				return value.Value{}, root.FailErr
			}
			return value.Value{}, fmt.Errorf("actor: root failed")
		}
	}
}

func (s *System) runnableAscending() []*Actor {
	var out []*Actor
	for _, a := range s.Actors {
		if a.Status == StatusRunnable {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *System) anyBlocked() bool {
	for _, a := range s.Actors {
		if a.Status == StatusBlocked {
			return true
		}
	}
	return false
}

// executeAndCollect runs phase 4 (execute) and phase 5 (collect) for the
// given run queue, in ascending actor id order. Spawn-id allocation for
// each actor is seeded from the system's running next-id counter at the
// moment that actor is about to execute, which is ascending-id order —
// keeping every actor's locally-predicted ActorId values consistent with
// the ids actually assigned a few lines later in this same pass (§4.3
// "Determinism properties"; see DESIGN.md for why this is allocated per
// actor rather than once for the whole round).
func (s *System) executeAndCollect(runQueue []*Actor) error {
	for _, a := range runQueue {
		s.Log.Append(eventlog.SchedulerTick(s.round, a.ID))
		a.VM.SetNextSpawnID(s.nextID)

		res := a.VM.ExecuteBounded(s.BudgetPerRound)
		switch res.Status {
		case vm.StatusCompleted:
			a.Status = StatusCompleted
			a.Result = res.Value
		case vm.StatusYielded:
			a.Status = StatusRunnable
		case vm.StatusBlocked:
			a.Status = StatusBlocked
		case vm.StatusError:
			a.Status = StatusFailed
			a.FailErr = res.Err
			s.cascadeFail(a)
			if a.ParentID != nil {
				s.pending = append(s.pending, outgoing{
					From:    a.ID,
					To:      *a.ParentID,
					Payload: value.ErrString(res.Err.Error()),
				})
			}
			continue
		}

		for _, req := range a.VM.DrainSpawnRequests() {
			s.spawnChild(a, req.FuncIndex)
		}
		for _, msg := range a.VM.DrainOutgoingMessages() {
			s.pending = append(s.pending, outgoing{From: a.ID, To: msg.Target, Payload: msg.Payload})
		}
	}
	return nil
}

func (s *System) spawnChild(parent *Actor, funcIndex int) *Actor {
	id := s.nextID
	s.nextID++
	name := ""
	if funcIndex >= 0 && funcIndex < len(s.Module.Functions) {
		name = s.Module.Functions[funcIndex].Name
	}
	s.Log.Append(eventlog.ActorSpawn(id, name))

	childVM := vm.New(s.Module, s.newGateway())
	childVM.SetEntryFunction(funcIndex)
	childVM.SetOwnActorID(id)

	pid := parent.ID
	child := &Actor{ID: id, VM: childVM, ParentID: &pid, Status: StatusRunnable}
	s.Actors = append(s.Actors, child)
	parent.Children = append(parent.Children, id)
	return child
}

// cascadeFail transitively marks a failed actor's still-active descendants
// Failed; descendants that already finished (Completed) are left alone —
// a terminal result can't be retroactively invalidated — but their own
// descendants are still visited.
func (s *System) cascadeFail(a *Actor) {
	queue := append([]uint64(nil), a.Children...)
	for len(queue) > 0 {
		child := s.actorByID(queue[0])
		queue = queue[1:]
		if child == nil {
			continue
		}
		queue = append(queue, child.Children...)
		if child.Status == StatusCompleted || child.Status == StatusFailed {
			continue
		}
		child.Status = StatusFailed
		child.FailErr = a.FailErr
	}
}

// deliver sorts the pending-message queue by (to, from) ascending, logs
// MessageSend for every entry, and — when the target exists and isn't
// Failed — logs MessageReceive and appends to the target's mailbox
// (§4.3 phase 6).
func (s *System) deliver() {
	sort.SliceStable(s.pending, func(i, j int) bool {
		if s.pending[i].To != s.pending[j].To {
			return s.pending[i].To < s.pending[j].To
		}
		return s.pending[i].From < s.pending[j].From
	})
	for _, m := range s.pending {
		s.Log.Append(eventlog.MessageSend(m.From, m.To, m.Payload))
		target := s.actorByID(m.To)
		if target == nil || target.Status == StatusFailed {
			continue
		}
		s.Log.Append(eventlog.MessageReceive(m.To, m.Payload))
		target.VM.PushMessage(vm.Message{From: m.From, Payload: m.Payload})
	}
	s.pending = nil
}

// wake returns any Blocked actor whose mailbox became non-empty to
// Runnable (§4.3 phase 7).
func (s *System) wake() {
	for _, a := range s.Actors {
		if a.Status == StatusBlocked && a.VM.MailboxLen() > 0 {
			a.Status = StatusRunnable
		}
	}
}
