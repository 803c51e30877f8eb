// Package vm implements the stack-based bytecode VM (§4.1): operand
// stack, call frames, opcode interpreter, and the bounded-step execution
// primitive a scheduler uses to multiplex many VMs fairly.
package vm

import (
	"fmt"

	"boruna/internal/capability"
)

// ErrorKind enumerates the VM error taxonomy (§7). All are fatal to the
// current call.
type ErrorKind string

const (
	ErrStackUnderflow        ErrorKind = "StackUnderflow"
	ErrStackOverflow         ErrorKind = "StackOverflow"
	ErrInvalidIP             ErrorKind = "InvalidIp"
	ErrInvalidFunction       ErrorKind = "InvalidFunction"
	ErrInvalidConstant       ErrorKind = "InvalidConstant"
	ErrInvalidLocal          ErrorKind = "InvalidLocal"
	ErrInvalidGlobal         ErrorKind = "InvalidGlobal"
	ErrTypeError             ErrorKind = "TypeError"
	ErrDivisionByZero        ErrorKind = "DivisionByZero"
	ErrCapabilityDenied      ErrorKind = "CapabilityDenied"
	ErrCapabilityBudgetExceeded ErrorKind = "CapabilityBudgetExceeded"
	ErrUnknownCapability     ErrorKind = "UnknownCapability"
	ErrAssertionFailed       ErrorKind = "AssertionFailed"
	ErrIndexOutOfBounds      ErrorKind = "IndexOutOfBounds"
	ErrMatchExhausted        ErrorKind = "MatchExhausted"
	ErrActorNotFound         ErrorKind = "ActorNotFound"
	ErrMailboxEmpty          ErrorKind = "MailboxEmpty"
	ErrExecutionLimitExceeded ErrorKind = "ExecutionLimitExceeded"
	ErrHalt                  ErrorKind = "Halt"
	ErrBudgetExhausted       ErrorKind = "BudgetExhausted"
	// ErrSchedulerRequired is an implementation addition beyond §7's list,
	// for SpawnActor trapping when run() executes with no ActorSystem
	// attached (§4.1 "If no scheduler is present, this traps"). ReceiveMsg
	// on an empty mailbox under run() traps with MailboxEmpty instead.
	ErrSchedulerRequired ErrorKind = "SchedulerRequired"
)

// Error is the VM's error type. Only the fields relevant to Kind are set.
type Error struct {
	Kind ErrorKind

	Cap             *capability.Capability
	Index           int
	Length          int
	Expected        string
	Got             string
	Message         string
	ExecutionLimit  int
	ActorID         uint64
	Wrapped         error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrStackOverflow, ErrExecutionLimitExceeded:
		return fmt.Sprintf("%s(%d)", e.Kind, e.ExecutionLimit)
	case ErrInvalidIP, ErrInvalidFunction, ErrInvalidConstant, ErrInvalidLocal, ErrInvalidGlobal:
		return fmt.Sprintf("%s(%d)", e.Kind, e.Index)
	case ErrTypeError:
		return fmt.Sprintf("TypeError{expected: %s, got: %s}", e.Expected, e.Got)
	case ErrCapabilityDenied, ErrCapabilityBudgetExceeded:
		name := "?"
		if e.Cap != nil {
			name = e.Cap.Name
		}
		return fmt.Sprintf("%s(%s)", e.Kind, name)
	case ErrUnknownCapability:
		return fmt.Sprintf("UnknownCapability(%d)", e.Index)
	case ErrAssertionFailed:
		return fmt.Sprintf("AssertionFailed(%q)", e.Message)
	case ErrIndexOutOfBounds:
		return fmt.Sprintf("IndexOutOfBounds{index: %d, length: %d}", e.Index, e.Length)
	case ErrActorNotFound:
		return fmt.Sprintf("ActorNotFound(%d)", e.ActorID)
	default:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Message)
		}
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Wrapped }

func typeErr(expected, got string) *Error {
	return &Error{Kind: ErrTypeError, Expected: expected, Got: got}
}

func kindName(k any) string {
	type kinder interface{ String() string }
	if s, ok := k.(kinder); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", k)
}
