package error

import "errors"

// GenericError is implemented by every typed error in this package so the
// REST recovery middleware can map panics to proper HTTP responses.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}

var (
	ErrWaCLI           = errors.New("whatsapp client is not initialized")
	ErrAlreadyLoggedIn = errors.New("you are already logged in")
	ErrSessionSaved    = errors.New("session saved, please reconnect instead of login")
	ErrQrChannel       = errors.New("error getting qr channel")
	ErrReconnect       = errors.New("error reconnecting to whatsapp")
	ErrNotConnected    = errors.New("connection is not ready, message not dispatched")
)
