// Package peer exchanges live WPM scores with one opponent over TCP.
package peer

// State is the lifecycle of a Channel. Closed is terminal.
type State int32

const (
	// StateIdle is a new channel with no socket.
	StateIdle State = iota
	// StateConnecting covers listening for or dialing the opponent.
	StateConnecting
	// StateExchanging means scores are being traded over a live connection.
	StateExchanging
	// StateClosed is terminal. Reason says why the channel stopped.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateExchanging:
		return "exchanging"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason records why a channel stopped exchanging.
type CloseReason int

const (
	ReasonNone CloseReason = iota
	// ReasonPeerClosed means an empty read: the peer closed its side.
	ReasonPeerClosed
	// ReasonGameOver means the local race ended and the final pair was exchanged.
	ReasonGameOver
	// ReasonBadPayload means the peer sent something that is not an integer.
	ReasonBadPayload
	// ReasonTransport means a socket read or write failed.
	ReasonTransport
	// ReasonCanceled means the owning session shut the channel down.
	ReasonCanceled
)

func (r CloseReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonPeerClosed:
		return "peer closed"
	case ReasonGameOver:
		return "game over"
	case ReasonBadPayload:
		return "bad payload"
	case ReasonTransport:
		return "transport error"
	case ReasonCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}
