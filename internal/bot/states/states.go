package states

import "fmt"

// Step is the admin listing-flow state for a single user.
type Step string

const (
	// StepNone indicates that no listing flow is in progress.
	StepNone Step = "none"
	// StepAwaitingFile indicates that the bot is waiting for the file to sell.
	StepAwaitingFile Step = "awaiting_file"
	// StepAwaitingPrice indicates that the bot is waiting for the listing price.
	StepAwaitingPrice Step = "awaiting_price"
	// StepAwaitingCaption indicates that the bot is waiting for the listing caption.
	StepAwaitingCaption Step = "awaiting_caption"
)

// Event advances the listing flow.
type Event string

const (
	// EventBegin starts (or restarts) a listing flow.
	EventBegin Event = "begin"
	// EventFile is a message carrying an attachable media reference.
	EventFile Event = "file"
	// EventPrice is a message whose text parsed as a positive integer.
	EventPrice Event = "price"
	// EventCaption is any text message taken verbatim as the caption.
	EventCaption Event = "caption"
	// EventReset force-clears the flow from any state.
	EventReset Event = "reset"
)

// FileKind is the media kind detected on the submitted message.
type FileKind string

const (
	KindDocument FileKind = "document"
	KindPhoto    FileKind = "photo"
	KindVideo    FileKind = "video"
	KindAudio    FileKind = "audio"
)

// Draft is the in-progress listing, populated progressively across the flow
// and validated fully only at the caption transition.
type Draft struct {
	FileID       string   `json:"file_id,omitempty"`
	MessageID    int      `json:"message_id,omitempty"`
	SourceChatID int64    `json:"source_chat_id,omitempty"`
	Kind         FileKind `json:"kind,omitempty"`
	Price        int64    `json:"price,omitempty"`
}

// Complete reports whether every field required to persist a listing is set.
func (d *Draft) Complete() bool {
	if d == nil {
		return false
	}
	return d.FileID != "" && d.MessageID != 0 && d.SourceChatID != 0 && d.Kind != "" && d.Price > 0
}

var transitions = map[Step]map[Event]Step{
	StepNone: {
		EventBegin: StepAwaitingFile,
		EventReset: StepNone,
	},
	StepAwaitingFile: {
		EventBegin: StepAwaitingFile,
		EventFile:  StepAwaitingPrice,
		EventReset: StepNone,
	},
	StepAwaitingPrice: {
		EventBegin: StepAwaitingFile,
		EventPrice: StepAwaitingCaption,
		EventReset: StepNone,
	},
	StepAwaitingCaption: {
		EventBegin:   StepAwaitingFile,
		EventCaption: StepNone,
		EventReset:   StepNone,
	},
}

// Next returns the step that follows applying event to step, rejecting
// invalid (step, event) pairs instead of silently no-op-ing.
func Next(step Step, event Event) (Step, error) {
	if step == "" {
		step = StepNone
	}
	next, ok := transitions[step][event]
	if !ok {
		return step, fmt.Errorf("invalid transition: %s on %s", event, step)
	}
	return next, nil
}
