package pairing

import "fmt"

// Status is the terminal status a platform reports for a pairing request.
type Status uint8

const (
	StatusPaired Status = iota
	StatusAlreadyPaired
	StatusNotReadyToPair
	StatusNotPaired
	StatusAlreadyInProgress
	StatusConnectionRejected
	StatusTooManyConnections
	StatusHardwareFailure
	StatusAuthenticationTimeout
	StatusAuthenticationNotAllowed
	StatusAuthenticationFailure
	StatusNoSupportedProfiles
	StatusProtectionLevelCouldNotBeMet
	StatusAccessDenied
	StatusInvalidCeremonyData
	StatusPairingCanceled
	StatusRejectedByHandler
	StatusRemoteDeviceHasAssociation
	StatusFailed
)

var statusNames = [...]string{
	StatusPaired:                       "Paired",
	StatusAlreadyPaired:                "AlreadyPaired",
	StatusNotReadyToPair:               "NotReadyToPair",
	StatusNotPaired:                    "NotPaired",
	StatusAlreadyInProgress:            "AlreadyInProgress",
	StatusConnectionRejected:           "ConnectionRejected",
	StatusTooManyConnections:           "TooManyConnections",
	StatusHardwareFailure:              "HardwareFailure",
	StatusAuthenticationTimeout:        "AuthenticationTimeout",
	StatusAuthenticationNotAllowed:     "AuthenticationNotAllowed",
	StatusAuthenticationFailure:        "AuthenticationFailure",
	StatusNoSupportedProfiles:          "NoSupportedProfiles",
	StatusProtectionLevelCouldNotBeMet: "ProtectionLevelCouldNotBeMet",
	StatusAccessDenied:                 "AccessDenied",
	StatusInvalidCeremonyData:          "InvalidCeremonyData",
	StatusPairingCanceled:              "PairingCanceled",
	StatusRejectedByHandler:            "RejectedByHandler",
	StatusRemoteDeviceHasAssociation:   "RemoteDeviceHasAssociation",
	StatusFailed:                       "Failed",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Success reports whether s leaves the device paired.
func (s Status) Success() bool {
	return s == StatusPaired || s == StatusAlreadyPaired
}

// OutcomeKind classifies an Outcome.
type OutcomeKind uint8

const (
	OutcomeAlreadyPaired OutcomeKind = iota + 1
	OutcomePaired
	OutcomeRejected
	OutcomeUnsupported
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAlreadyPaired:
		return "already-paired"
	case OutcomePaired:
		return "paired"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", uint8(k))
	}
}

// Outcome is the result of one pairing attempt. It is never retried
// automatically.
type Outcome struct {
	Kind      OutcomeKind
	Reason    string        // set for Rejected
	Challenge ChallengeKind // challenge refused during the attempt, if any
	Status    Status        // platform status for Rejected and Unsupported
}

// AlreadyPaired is the outcome for a device that was paired before the attempt.
func AlreadyPaired() Outcome { return Outcome{Kind: OutcomeAlreadyPaired, Status: StatusAlreadyPaired} }

// Paired is the outcome for a successful attempt.
func Paired() Outcome { return Outcome{Kind: OutcomePaired, Status: StatusPaired} }

// Rejected is a failed attempt with a human-readable reason.
func Rejected(reason string) Outcome {
	return Outcome{Kind: OutcomeRejected, Reason: reason, Status: StatusFailed}
}

// Unsupported is a failed attempt caused by a challenge kind this machine
// does not know. It only occurs with platforms that deliver challenges
// outside the offered kinds; the BlueZ agent rejects those itself.
func Unsupported(kind ChallengeKind, status Status) Outcome {
	return Outcome{Kind: OutcomeUnsupported, Challenge: kind, Status: status}
}

// Success reports whether the device is paired after the attempt.
func (o Outcome) Success() bool {
	return o.Kind == OutcomePaired || o.Kind == OutcomeAlreadyPaired
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeRejected:
		return "rejected: " + o.Reason
	case OutcomeUnsupported:
		return fmt.Sprintf("unsupported pairing kind %s (%s)", o.Challenge, o.Status)
	default:
		return o.Kind.String()
	}
}
