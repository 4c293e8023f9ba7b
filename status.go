package liftcheck

// StatusDerivation is the outcome of DeriveStatus: either a derived
// operational status, or a signal that a human must choose one. The zero
// value requires a decision, so it can never be mistaken for "healthy".
type StatusDerivation struct {
	status  OperationalStatus
	derived bool
}

// Derived returns a derivation carrying status.
func Derived(status OperationalStatus) StatusDerivation {
	return StatusDerivation{status: status, derived: true}
}

// RequiresHumanDecision is the derivation for ambiguous inspections.
var RequiresHumanDecision = StatusDerivation{}

// Status returns the derived status and whether one was derived.
func (d StatusDerivation) Status() (OperationalStatus, bool) {
	return d.status, d.derived
}

// IsDerived returns true if a status was derived.
func (d StatusDerivation) IsDerived() bool {
	return d.derived
}

// String returns the derived status or "requires decision".
func (d StatusDerivation) String() string {
	if !d.derived {
		return "requires decision"
	}
	return string(d.status)
}

// DeriveStatus computes the suggested operational status from item rows:
//
//  1. no defect or unresolved rows: Safe to Operate
//  2. any Critical defect to be rectified Immediately: Unsafe to Operate
//  3. any unresolved row: requires a human decision
//  4. otherwise (non-critical defects): requires a human decision
//
// Operate with Limitations is never derived; it is always a human pick.
func DeriveStatus(items []ItemResult) StatusDerivation {
	var hasDefect, hasUnresolved bool
	for _, item := range items {
		switch item.Result {
		case ResultDefect:
			hasDefect = true
			if item.Defect.IsCriticalImmediate() {
				return Derived(StatusUnsafe)
			}
		case ResultUnresolved:
			hasUnresolved = true
		}
	}

	if !hasDefect && !hasUnresolved {
		return Derived(StatusSafe)
	}
	return RequiresHumanDecision
}
