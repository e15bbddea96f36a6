package turn

// State is a step of the per-turn state machine.
type State string

const (
	StateReceived          State = "RECEIVED"
	StateGreeting          State = "GREETING"
	StateTextGenerating    State = "TEXT_GENERATING"
	StateTextFailed        State = "TEXT_FAILED"
	StateMetadataExtracted State = "METADATA_EXTRACTED"
	StateAudioGenerating   State = "AUDIO_GENERATING"
	StateAudioFailed       State = "AUDIO_FAILED"
	StateImageGenerating   State = "IMAGE_GENERATING"
	StateImageFailed       State = "IMAGE_FAILED"
	StateImageSucceeded    State = "IMAGE_SUCCEEDED"
	StateDegradedSuccess   State = "DEGRADED_SUCCESS"
	StateFullSuccess       State = "FULL_SUCCESS"
)

var next = map[State][]State{
	StateReceived:          {StateGreeting, StateTextGenerating},
	StateTextGenerating:    {StateTextFailed, StateMetadataExtracted},
	StateMetadataExtracted: {StateTextFailed, StateAudioGenerating},
	StateAudioGenerating:   {StateAudioFailed, StateImageGenerating},
	StateImageGenerating:   {StateImageFailed, StateImageSucceeded},
	StateImageFailed:       {StateDegradedSuccess},
	StateImageSucceeded:    {StateFullSuccess},
}

// Terminal reports whether s ends a turn.
func (s State) Terminal() bool {
	_, ok := next[s]
	return !ok
}

// Success reports whether s is a terminal state that answers the reader.
func (s State) Success() bool {
	return s == StateGreeting || s == StateDegradedSuccess || s == StateFullSuccess
}

func canMove(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}
