package health

import (
	"fmt"
	"strings"
)

// CheckStatus is the graded health of a dependency or of the whole system.
//
// Values are totally ordered from worst to best:
// StatusOutage < StatusMajor < StatusMinor < StatusOK.
type CheckStatus int

const (
	// StatusOutage means the dependency is unavailable.
	StatusOutage CheckStatus = iota
	// StatusMajor means the dependency is severely degraded.
	StatusMajor
	// StatusMinor means the dependency is impaired but usable.
	StatusMinor
	// StatusOK means the dependency is healthy.
	StatusOK
)

var statusNames = [...]string{
	StatusOutage: "OUTAGE",
	StatusMajor:  "MAJOR",
	StatusMinor:  "MINOR",
	StatusOK:     "OK",
}

// Statuses lists every status from worst to best.
var Statuses = []CheckStatus{StatusOutage, StatusMajor, StatusMinor, StatusOK}

// String returns the wire name of the status.
func (s CheckStatus) String() string {
	if s.valid() {
		return statusNames[s]
	}
	return fmt.Sprintf("CheckStatus(%d)", int(s))
}

func (s CheckStatus) valid() bool {
	return s >= StatusOutage && s <= StatusOK
}

// ParseCheckStatus parses a wire name, case-insensitively.
func ParseCheckStatus(name string) (CheckStatus, error) {
	for i, n := range statusNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return CheckStatus(i), nil
		}
	}
	return StatusOutage, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s CheckStatus) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *CheckStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseCheckStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// WorseThan reports whether s is strictly worse than other.
func (s CheckStatus) WorseThan(other CheckStatus) bool {
	return s < other
}

// BetterThan reports whether s is strictly better than other.
func (s CheckStatus) BetterThan(other CheckStatus) bool {
	return s > other
}

// NoBetterThan clamps s so that it is not better than ceiling.
func (s CheckStatus) NoBetterThan(ceiling CheckStatus) CheckStatus {
	return MinStatus(s, ceiling)
}

// NoWorseThan clamps s so that it is not worse than floor.
func (s CheckStatus) NoWorseThan(floor CheckStatus) CheckStatus {
	return MaxStatus(s, floor)
}

// MinStatus returns the worse of a and b.
func MinStatus(a, b CheckStatus) CheckStatus {
	if a.WorseThan(b) {
		return a
	}
	return b
}

// MaxStatus returns the better of a and b.
func MaxStatus(a, b CheckStatus) CheckStatus {
	if a.BetterThan(b) {
		return a
	}
	return b
}

// DCStatus maps a system status onto the two-valued signal understood by
// DNS failover agents: "FAILOVER" for an outage, "OK" otherwise.
func (s CheckStatus) DCStatus() string {
	if s == StatusOutage {
		return "FAILOVER"
	}
	return "OK"
}

// Urgency weights how far a dependency's failure can drag down system status.
type Urgency int

const (
	// UrgencyUnknown is the zero value; it folds like UrgencyRequired.
	UrgencyUnknown Urgency = iota
	// UrgencyRequired lets an outage of the dependency take the whole system down.
	UrgencyRequired
	// UrgencyStrong caps the dependency's effect at StatusMajor.
	UrgencyStrong
	// UrgencyWeak caps the dependency's effect at StatusMinor.
	UrgencyWeak
	// UrgencyNone never affects system status.
	UrgencyNone
)

var urgencyInfo = [...]struct {
	name        string
	description string
}{
	UrgencyUnknown:  {"UNKNOWN", "Unknown: importance not declared; treated as required"},
	UrgencyRequired: {"REQUIRED", "Required: failure of this dependency results in a complete system outage"},
	UrgencyStrong:   {"STRONG", "Strong: failure of this dependency results in a major degradation of the system"},
	UrgencyWeak:     {"WEAK", "Weak: failure of this dependency results in a minor degradation of the system"},
	UrgencyNone:     {"NONE", "None: informational only; failure does not affect system status"},
}

// String returns the wire name of the urgency.
func (u Urgency) String() string {
	if u >= UrgencyUnknown && u <= UrgencyNone {
		return urgencyInfo[u].name
	}
	return fmt.Sprintf("Urgency(%d)", int(u))
}

// Description returns a human explanation of the urgency.
func (u Urgency) Description() string {
	if u >= UrgencyUnknown && u <= UrgencyNone {
		return urgencyInfo[u].description
	}
	return ""
}

// ParseUrgency parses a wire name, case-insensitively. The empty string is UrgencyUnknown.
func ParseUrgency(name string) (Urgency, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return UrgencyUnknown, nil
	}
	for i, info := range urgencyInfo {
		if strings.EqualFold(info.name, name) {
			return Urgency(i), nil
		}
	}
	return UrgencyUnknown, fmt.Errorf("%w: %q", ErrUnknownUrgency, name)
}

// MarshalText implements encoding.TextMarshaler.
func (u Urgency) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Urgency) UnmarshalText(text []byte) error {
	parsed, err := ParseUrgency(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Effective returns the status a dependency at depStatus contributes to the system.
func (u Urgency) Effective(depStatus CheckStatus) CheckStatus {
	switch u {
	case UrgencyStrong:
		return depStatus.NoWorseThan(StatusMajor)
	case UrgencyWeak:
		return depStatus.NoWorseThan(StatusMinor)
	case UrgencyNone:
		return StatusOK
	default:
		return depStatus
	}
}

// Downgrade folds a dependency's status into the running system status.
// The result is never better than system.
func (u Urgency) Downgrade(system, depStatus CheckStatus) CheckStatus {
	return MinStatus(system, u.Effective(depStatus))
}
