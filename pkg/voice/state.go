package voice

// InputState is where the listen side is.
type InputState string

const (
	InputIdle         InputState = "idle"
	InputListening    InputState = "listening"
	InputTranscribing InputState = "transcribing"
)

// OutputState is where the speak side is.
type OutputState string

const (
	OutputIdle         OutputState = "idle"
	OutputSynthesizing OutputState = "synthesizing"
	OutputCacheHit     OutputState = "cache_hit"
	OutputPlaying      OutputState = "playing"
)

// State is a snapshot of both machines.
type State struct {
	Input  InputState  `json:"input"`
	Output OutputState `json:"output"`
}

// Outcome is how a Speak call ended.
type Outcome int

const (
	// OutcomeCompleted means the audio played to the end.
	OutcomeCompleted Outcome = iota
	// OutcomeSkipped means playback was cut short.
	OutcomeSkipped
	// OutcomePrinted means audio was unavailable and the text was
	// written to Output instead.
	OutcomePrinted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomePrinted:
		return "printed"
	default:
		return "unknown"
	}
}

// Observer is called after every state change. It runs on the goroutine
// that made the change and must not block.
type Observer func(State)
