package ledger

// Status is the persisted form of a State.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// State is the outcome of one send attempt. The set of implementations is
// closed: Pending, Sent and Failed.
type State interface {
	Status() Status
	state()
}

// Pending means the attempt started and the provider has not answered yet.
// A Pending entry that stays Pending marks a crash mid-send.
type Pending struct{}

// Sent means the provider accepted the message.
type Sent struct {
	MessageID string
}

// Failed means retries were exhausted or the message could not be built.
type Failed struct {
	Reason string
}

func (Pending) Status() Status { return StatusPending }
func (Sent) Status() Status    { return StatusSent }
func (Failed) Status() Status  { return StatusFailed }

func (Pending) state() {}
func (Sent) state()    {}
func (Failed) state()  {}

// stateFrom rebuilds a State from its stored columns.
func stateFrom(status Status, messageID, reason string) (State, error) {
	switch status {
	case StatusPending:
		return Pending{}, nil
	case StatusSent:
		return Sent{MessageID: messageID}, nil
	case StatusFailed:
		return Failed{Reason: reason}, nil
	default:
		return nil, ErrUnknownStatus
	}
}
