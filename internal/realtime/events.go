package realtime

// State is the session lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// TranscriptSource identifies which participant a transcript fragment
// belongs to.
type TranscriptSource string

const (
	SourceUser      TranscriptSource = "user"
	SourceAssistant TranscriptSource = "assistant"
)

// TranscriptEvent is an incremental speech-to-text fragment. A fragment with
// IsFinal set closes that source's turn.
type TranscriptEvent struct {
	Source  TranscriptSource
	Text    string
	IsFinal bool
}

// ToolAction describes a side effect requested by the model: emitted once
// when a simulated tool starts and again when it completes. UI-facing, not
// persisted.
type ToolAction struct {
	Action string // e.g. "diagnostic_start", "purchase_mobile_complete"
	Data   map[string]any
}

// EventKind discriminates session events.
type EventKind int

const (
	// EventStateChanged carries the new session state. A transition to
	// Disconnected also means local audio capture must halt.
	EventStateChanged EventKind = iota
	// EventTranscript carries a transcript fragment.
	EventTranscript
	// EventAudio carries an inline audio payload for immediate playback.
	EventAudio
	// EventInterrupted means in-flight playback must stop now.
	EventInterrupted
	// EventNavigate carries the URL of the top search result.
	EventNavigate
	// EventToolAction carries a simulated side-effect notification.
	EventToolAction
)

// Event is one discrete protocol occurrence published to the UI layer.
// Only the field matching Kind is meaningful.
type Event struct {
	Kind       EventKind
	State      State
	Transcript TranscriptEvent
	Audio      []byte
	URL        string
	Action     ToolAction
}
