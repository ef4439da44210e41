package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	domainSession "github.com/AzielCF/az-reply/domains/session"
	pkgError "github.com/AzielCF/az-reply/pkg/error"
	"github.com/sirupsen/logrus"
)

// ConnectionConfig son los tiempos del supervisor; los tests los bajan a
// milisegundos.
type ConnectionConfig struct {
	BackoffBase         time.Duration
	BackoffCeiling      time.Duration
	HealthCheckInterval time.Duration
	ReconnectCooldown   time.Duration
}

// serviceConnection owns the account lifecycle: it is the only component
// allowed to call Initialize on the transport, so reconnect storms cannot
// happen by construction.
type serviceConnection struct {
	transport domainSession.ITransport
	observer  domainSession.IObserver
	cfg       ConnectionConfig

	mu           sync.Mutex
	session      domainSession.AccountSession
	reconnecting bool
	// loggedOut latches after an intentional unlink: the health check must
	// not resurrect a session the operator killed on purpose.
	loggedOut bool
	// epoch invalidates in-flight reconnect timers after a credential wipe;
	// a stale timer from before the wipe must never resurrect the session.
	epoch int

	onMessage func(domainSession.InboundMessage)

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

func NewConnectionService(
	transport domainSession.ITransport,
	observer domainSession.IObserver,
	cfg ConnectionConfig,
) domainSession.IConnectionUsecase {
	return &serviceConnection{
		transport: transport,
		observer:  observer,
		cfg:       cfg,
		session: domainSession.AccountSession{
			AccountID: "primary",
			State:     domainSession.StateInitializing,
		},
		now:   time.Now,
		after: time.After,
	}
}

// SetMessageHandler wires the inbound message sink. Must be called before
// Run; the supervisor only forwards, it never interprets messages.
func (service *serviceConnection) SetMessageHandler(handler func(domainSession.InboundMessage)) {
	service.onMessage = handler
}

func (service *serviceConnection) Run(ctx context.Context) {
	service.setState(domainSession.StateInitializing, "")
	if err := service.transport.Initialize(ctx); err != nil {
		logrus.WithError(err).Error("[CONN] Initial connect failed")
		service.setState(domainSession.StateError, err.Error())
		service.scheduleReconnect(ctx)
	}

	healthTicker := time.NewTicker(service.cfg.HealthCheckInterval)
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-service.transport.Events():
			if !ok {
				return
			}
			service.handleEvent(ctx, event)
		case <-healthTicker.C:
			service.healthCheck(ctx)
		}
	}
}

func (service *serviceConnection) handleEvent(ctx context.Context, event domainSession.Event) {
	switch event.Type {
	case domainSession.EventQR:
		service.mu.Lock()
		service.session.State = domainSession.StateWaitingForQR
		// Pairing en curso mientras haya códigos en rotación.
		service.session.GeneratingQR = true
		service.mu.Unlock()
		logrus.Info("[CONN] QR code ready for pairing")
		service.notify("QR_GENERATED", "Scan the QR code to pair", map[string]any{
			"qr_code":  event.QRCode,
			"qr_image": event.QRImagePath,
		})

	case domainSession.EventAuthenticated:
		service.mu.Lock()
		service.session.State = domainSession.StateAuthenticated
		service.session.LastError = ""
		service.session.GeneratingQR = false
		service.mu.Unlock()
		logrus.Info("[CONN] Pairing accepted, waiting for session")
		service.notify("AUTHENTICATED", "Device paired", nil)

	case domainSession.EventReady:
		service.mu.Lock()
		service.session.State = domainSession.StateReady
		service.session.LastError = ""
		service.session.RetryCount = 0
		service.session.GeneratingQR = false
		service.loggedOut = false
		if event.Reason != "" {
			service.session.Name = event.Reason
		}
		service.mu.Unlock()
		logrus.Info("[CONN] Session ready")
		service.notify("CONNECTION_READY", "Session is ready", service.Status())

	case domainSession.EventDisconnected:
		if isIntentionalLogout(event.Reason) {
			service.handleLogout(ctx, event.Reason)
			return
		}
		logrus.Warnf("[CONN] Unexpected disconnect: %s", event.Reason)
		service.setState(domainSession.StateDisconnected, event.Reason)
		service.notify("DISCONNECTED", "Connection lost, retrying", map[string]any{"reason": event.Reason})
		service.scheduleReconnect(ctx)

	case domainSession.EventMessage:
		if event.Message != nil && service.onMessage != nil {
			service.onMessage(*event.Message)
		}
	}
}

// handleLogout is the terminal branch: the operator unlinked the device, so
// the credentials are wiped and no reconnect is scheduled. Only a new QR
// pairing brings the account back.
func (service *serviceConnection) handleLogout(ctx context.Context, reason string) {
	logrus.Warnf("[CONN] Intentional logout: %s", reason)

	service.mu.Lock()
	service.epoch++
	service.reconnecting = false
	service.loggedOut = true
	service.session.State = domainSession.StateDisconnected
	service.session.LastError = reason
	service.session.RetryCount = 0
	service.session.Name = ""
	service.mu.Unlock()

	if err := service.transport.WipeSession(ctx); err != nil {
		logrus.WithError(err).Error("[CONN] Failed to wipe session credentials")
	}
	service.notify("LOGGED_OUT", "Device unlinked, scan a new QR to pair again", nil)
}

func (service *serviceConnection) healthCheck(ctx context.Context) {
	service.mu.Lock()
	state := service.session.State
	stuck := (state == domainSession.StateDisconnected || state == domainSession.StateError) &&
		!service.reconnecting && !service.loggedOut && !service.session.GeneratingQR &&
		service.now().Sub(service.session.LastReconnectAt) >= service.cfg.ReconnectCooldown
	service.mu.Unlock()

	if state == domainSession.StateReady && !service.transport.Connected() {
		logrus.Warn("[CONN] Health check found a dead socket")
		service.setState(domainSession.StateDisconnected, "health check: socket not connected")
		service.notify("DISCONNECTED", "Connection lost, retrying", map[string]any{"reason": "health check"})
		service.scheduleReconnect(ctx)
		return
	}

	// Un estado caído sin timer armado no se arregla solo; el health check
	// es la red de seguridad que vuelve a armar el backoff.
	if stuck {
		logrus.Warn("[CONN] Health check found a stalled session, rearming reconnect")
		service.scheduleReconnect(ctx)
	}
}

// scheduleReconnect arms a single backoff timer. The delay doubles per
// consecutive failure and is capped at the ceiling; the counter resets when
// a session reaches ready.
func (service *serviceConnection) scheduleReconnect(ctx context.Context) {
	service.mu.Lock()
	if service.reconnecting {
		service.mu.Unlock()
		return
	}
	service.reconnecting = true

	delay := service.cfg.BackoffBase << service.session.RetryCount
	if delay > service.cfg.BackoffCeiling || delay <= 0 {
		delay = service.cfg.BackoffCeiling
	}
	service.session.RetryCount++
	attempt := service.session.RetryCount
	epoch := service.epoch
	service.mu.Unlock()

	logrus.Infof("[CONN] Reconnect attempt %d in %s", attempt, delay)
	service.notify("RECONNECTING", "Reconnect scheduled", map[string]any{
		"attempt":  attempt,
		"delay_ms": delay.Milliseconds(),
	})

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-service.after(delay):
		}

		service.mu.Lock()
		stale := epoch != service.epoch
		if stale {
			service.reconnecting = false
			service.mu.Unlock()
			logrus.Debug("[CONN] Dropping stale reconnect timer")
			return
		}
		service.session.LastReconnectAt = service.now()
		service.mu.Unlock()

		err := service.transport.Initialize(ctx)

		service.mu.Lock()
		service.reconnecting = false
		service.mu.Unlock()

		if err != nil {
			// Un intento fallido no rearma el timer: el estado queda en
			// error y el health check programa el siguiente.
			logrus.WithError(err).Errorf("[CONN] Reconnect attempt %d failed", attempt)
			service.setState(domainSession.StateError, err.Error())
		}
	}()
}

func (service *serviceConnection) Status() domainSession.AccountSession {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.session
}

func (service *serviceConnection) Ready() bool {
	service.mu.Lock()
	ready := service.session.State == domainSession.StateReady
	service.mu.Unlock()
	return ready && service.transport.Connected()
}

// ForceReconnect drops the current socket and reconnects immediately,
// subject to a cooldown so a nervous operator cannot hammer the server.
func (service *serviceConnection) ForceReconnect(ctx context.Context) error {
	service.mu.Lock()
	if service.reconnecting {
		service.mu.Unlock()
		return pkgError.ErrReconnect
	}
	if since := service.now().Sub(service.session.LastReconnectAt); since < service.cfg.ReconnectCooldown {
		service.mu.Unlock()
		return errors.New("reconnect cooldown active, try again later")
	}
	service.session.LastReconnectAt = service.now()
	service.session.RetryCount = 0
	service.loggedOut = false
	service.mu.Unlock()

	logrus.Info("[CONN] Manual reconnect requested")
	service.setState(domainSession.StateInitializing, "")
	if err := service.transport.Initialize(ctx); err != nil {
		service.setState(domainSession.StateError, err.Error())
		service.scheduleReconnect(ctx)
		return err
	}
	return nil
}

// Logout unlinks the device on the server and wipes the local credentials.
// The account stays down until an operator starts a new QR pairing.
func (service *serviceConnection) Logout(ctx context.Context) error {
	service.mu.Lock()
	state := service.session.State
	service.mu.Unlock()
	if state == domainSession.StateInitializing || state == domainSession.StateWaitingForQR {
		return errors.New("no linked device to log out")
	}

	if err := service.transport.Logout(ctx); err != nil {
		return err
	}
	// The server may or may not echo a logged-out disconnect; wiping here
	// keeps the outcome the same either way.
	service.handleLogout(ctx, "intentional logout")
	return nil
}

// RegenerateQR wipes the stored credentials and starts a fresh pairing.
func (service *serviceConnection) RegenerateQR(ctx context.Context) error {
	service.mu.Lock()
	if service.session.State == domainSession.StateReady {
		service.mu.Unlock()
		return pkgError.ErrAlreadyLoggedIn
	}
	if service.session.GeneratingQR {
		service.mu.Unlock()
		return errors.New("qr generation already in progress")
	}
	service.session.GeneratingQR = true
	service.epoch++
	service.reconnecting = false
	service.loggedOut = false
	service.mu.Unlock()

	logrus.Info("[CONN] Regenerating QR pairing")
	if err := service.transport.WipeSession(ctx); err != nil {
		service.mu.Lock()
		service.session.GeneratingQR = false
		service.mu.Unlock()
		return err
	}
	if err := service.transport.Initialize(ctx); err != nil {
		service.mu.Lock()
		service.session.GeneratingQR = false
		service.mu.Unlock()
		service.setState(domainSession.StateError, err.Error())
		return err
	}
	return nil
}

func (service *serviceConnection) setState(state domainSession.State, lastError string) {
	service.mu.Lock()
	service.session.State = state
	service.session.LastError = lastError
	service.mu.Unlock()
}

func (service *serviceConnection) notify(code, message string, result any) {
	if service.observer != nil {
		service.observer.Notify(code, message, result)
	}
}

// isIntentionalLogout distingue el desvinculado manual (no se reintenta, se
// borran credenciales) de una caída de red cualquiera.
func isIntentionalLogout(reason string) bool {
	reason = strings.ToLower(reason)
	return strings.Contains(reason, "logout") ||
		strings.Contains(reason, "logged out") ||
		strings.Contains(reason, "intentional")
}
