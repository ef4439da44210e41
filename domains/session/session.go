package session

import (
	"context"
	"time"
)

// State is the lifecycle state of the single supported account.
type State string

const (
	StateInitializing  State = "initializing"
	StateWaitingForQR  State = "waiting_for_qr"
	StateAuthenticated State = "authenticated"
	StateReady         State = "ready"
	StateDisconnected  State = "disconnected"
	StateError         State = "error"
)

type EventType string

const (
	EventQR            EventType = "qr"
	EventAuthenticated EventType = "authenticated"
	EventReady         EventType = "ready"
	EventDisconnected  EventType = "disconnected"
	EventMessage       EventType = "message"
)

// Event is a typed lifecycle or message event emitted by the transport.
// The supervisor consumes these over a channel instead of wiring callbacks
// into the concrete client.
type Event struct {
	Type        EventType
	QRCode      string
	QRImagePath string
	Reason      string
	Message     *InboundMessage
}

type InboundMessage struct {
	ChatJID   string
	SenderJID string
	PushName  string
	Text      string
	IsGroup   bool
	IsFromMe  bool
	Timestamp time.Time
}

// AccountSession is reset on logout, never destroyed while the process runs.
type AccountSession struct {
	AccountID       string    `json:"account_id"`
	Name            string    `json:"name"`
	State           State     `json:"state"`
	LastError       string    `json:"last_error,omitempty"`
	RetryCount      int       `json:"retry_count"`
	LastReconnectAt time.Time `json:"last_reconnect_at"`
	GeneratingQR    bool      `json:"generating_qr"`
}

// ITransport is the protocol layer: it owns the socket, pairing secrets and
// durable credentials. Everything here may block on network.
type ITransport interface {
	Initialize(ctx context.Context) error
	Logout(ctx context.Context) error
	// WipeSession removes the durable credentials so the next Initialize
	// produces a fresh QR pairing.
	WipeSession(ctx context.Context) error
	SendMessage(ctx context.Context, chatJID, text string) error
	SendMedia(ctx context.Context, chatJID, path, caption string) error
	Events() <-chan Event
	Connected() bool
}

// IObserver mirrors state changes and transcripts to a UI push channel.
// Fire-and-forget: implementations must never block the caller.
type IObserver interface {
	Notify(code, message string, result any)
}

type IConnectionUsecase interface {
	Run(ctx context.Context)
	Status() AccountSession
	Ready() bool
	ForceReconnect(ctx context.Context) error
	RegenerateQR(ctx context.Context) error
	// Logout unlinks the device on purpose: credentials are wiped and no
	// reconnect is attempted until a new QR pairing.
	Logout(ctx context.Context) error
}
