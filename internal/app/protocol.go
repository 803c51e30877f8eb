package app

import "boruna/internal/bytecode"

// Protocol names the four functions the App contract recognizes (§4.6).
const (
	FuncInit     = "init"
	FuncUpdate   = "update"
	FuncView     = "view"
	FuncPolicies = "policies"
)

// FuncIndex resolves an App module's protocol functions by name.
type FuncIndex struct {
	Init     int
	Update   int
	View     int
	Policies int // -1 if the module doesn't define one
}

// ValidateProtocol checks that m implements the App protocol (§4.6, §6):
// init/0, update/2, view/1, and an optional policies/0, with update, view,
// and policies each declaring an empty capability set (they must be pure —
// only init may perform capability effects).
func ValidateProtocol(m *bytecode.Module) (FuncIndex, error) {
	fi := FuncIndex{Policies: -1}

	initIdx, ok := m.FunctionIndex(FuncInit)
	if !ok {
		return fi, missingFunction(FuncInit)
	}
	if err := checkArity(m, initIdx, FuncInit, 0); err != nil {
		return fi, err
	}
	fi.Init = initIdx

	updateIdx, ok := m.FunctionIndex(FuncUpdate)
	if !ok {
		return fi, missingFunction(FuncUpdate)
	}
	if err := checkArity(m, updateIdx, FuncUpdate, 2); err != nil {
		return fi, err
	}
	if err := checkPure(m, updateIdx, FuncUpdate); err != nil {
		return fi, err
	}
	fi.Update = updateIdx

	viewIdx, ok := m.FunctionIndex(FuncView)
	if !ok {
		return fi, missingFunction(FuncView)
	}
	if err := checkArity(m, viewIdx, FuncView, 1); err != nil {
		return fi, err
	}
	if err := checkPure(m, viewIdx, FuncView); err != nil {
		return fi, err
	}
	fi.View = viewIdx

	if policiesIdx, ok := m.FunctionIndex(FuncPolicies); ok {
		if err := checkArity(m, policiesIdx, FuncPolicies, 0); err != nil {
			return fi, err
		}
		if err := checkPure(m, policiesIdx, FuncPolicies); err != nil {
			return fi, err
		}
		fi.Policies = policiesIdx
	}

	return fi, nil
}

func checkArity(m *bytecode.Module, idx int, name string, want int) error {
	fn := m.Functions[idx]
	if fn.Arity != want {
		return wrongArity(name, want, fn.Arity)
	}
	return nil
}

func checkPure(m *bytecode.Module, idx int, name string) error {
	fn := m.Functions[idx]
	if len(fn.Capabilities) != 0 {
		return &Error{Kind: ErrValidation, Name: name, Message: name + " must declare an empty capability set"}
	}
	return nil
}
