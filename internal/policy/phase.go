// Package policy implements the voice-activity state machine that decides when
// to start capture, stop it after silence, and submit after confirmation.
//
// The policy is pure decision logic: it owns no goroutines and reads no
// devices. Callers feed it one Input per tick and an Actuator that performs the
// external effect of each transition.
package policy

const unknownName = "unknown"

// Phase is the resting state of a session.
type Phase int

const (
	// PhaseWaiting means no capture is in progress.
	PhaseWaiting Phase = iota
	// PhaseRecording means the target application is capturing speech.
	PhaseRecording
	// PhaseConfirming means capture stopped and the confirmation window is open.
	PhaseConfirming
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseRecording:
		return "recording"
	case PhaseConfirming:
		return "confirming"
	default:
		return unknownName
	}
}

// Command is an external effect requested on a transition.
type Command int

const (
	// CommandNone requests nothing.
	CommandNone Command = iota
	// CommandStartCapture clicks the record control to start (or resume) capture.
	CommandStartCapture
	// CommandStopCapture clicks the record control to stop capture.
	CommandStopCapture
	// CommandSubmit presses the submit key.
	CommandSubmit
)

// String returns a human-readable representation of the command.
func (c Command) String() string {
	switch c {
	case CommandNone:
		return "none"
	case CommandStartCapture:
		return "start-capture"
	case CommandStopCapture:
		return "stop-capture"
	case CommandSubmit:
		return "submit"
	default:
		return unknownName
	}
}
