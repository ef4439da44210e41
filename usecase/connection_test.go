package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domainSession "github.com/AzielCF/az-reply/domains/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu        sync.Mutex
	events    chan domainSession.Event
	connected bool
	initCalls int
	initErrs  []error
	wipes     int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan domainSession.Event, 16)}
}

func (f *fakeTransport) failNextInits(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.initErrs = append(f.initErrs, errors.New("dial failed"))
	}
}

func (f *fakeTransport) Initialize(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	if len(f.initErrs) > 0 {
		err := f.initErrs[0]
		f.initErrs = f.initErrs[1:]
		f.connected = false
		return err
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Logout(_ context.Context) error { return nil }

func (f *fakeTransport) WipeSession(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wipes++
	f.connected = false
	return nil
}

func (f *fakeTransport) SendMessage(_ context.Context, _, _ string) error { return nil }

func (f *fakeTransport) SendMedia(_ context.Context, _, _, _ string) error { return nil }

func (f *fakeTransport) Events() <-chan domainSession.Event { return f.events }

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) setConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = v
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls
}

func (f *fakeTransport) wipeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wipes
}

// delayRecorder reemplaza time.After: registra el delay pedido y dispara al
// instante, así los tests de backoff no duermen.
type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) after(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (r *delayRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.delays))
	copy(out, r.delays)
	return out
}

func newTestConnectionService(t *testing.T, transport *fakeTransport, observer *fakeObserver) (*serviceConnection, *delayRecorder) {
	t.Helper()
	recorder := &delayRecorder{}
	service := NewConnectionService(transport, observer, ConnectionConfig{
		BackoffBase:         10 * time.Second,
		BackoffCeiling:      60 * time.Second,
		HealthCheckInterval: time.Hour, // los tests de salud lo bajan
		ReconnectCooldown:   time.Hour,
	}).(*serviceConnection)
	service.after = recorder.after
	return service, recorder
}

func startSupervisor(t *testing.T, service *serviceConnection) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go service.Run(ctx)
	t.Cleanup(cancel)
	return cancel
}

func TestConnection_LifecycleStateTransitions(t *testing.T) {
	transport := newFakeTransport()
	observer := &fakeObserver{}
	service, _ := newTestConnectionService(t, transport, observer)
	startSupervisor(t, service)

	transport.events <- domainSession.Event{Type: domainSession.EventQR, QRCode: "2@abc"}
	assert.Eventually(t, func() bool {
		return service.Status().State == domainSession.StateWaitingForQR
	}, time.Second, 5*time.Millisecond)
	assert.True(t, service.Status().GeneratingQR, "pairing en curso mientras rotan códigos")

	transport.events <- domainSession.Event{Type: domainSession.EventAuthenticated}
	assert.Eventually(t, func() bool {
		return service.Status().State == domainSession.StateAuthenticated
	}, time.Second, 5*time.Millisecond)

	transport.events <- domainSession.Event{Type: domainSession.EventReady, Reason: "Tienda"}
	assert.Eventually(t, func() bool {
		return service.Status().State == domainSession.StateReady
	}, time.Second, 5*time.Millisecond)

	status := service.Status()
	assert.Equal(t, "Tienda", status.Name)
	assert.Zero(t, status.RetryCount)
	assert.False(t, status.GeneratingQR)
	assert.Contains(t, observer.codes(), "QR_GENERATED")
	assert.Contains(t, observer.codes(), "CONNECTION_READY")
}

func TestConnection_BackoffDoublesAndCaps(t *testing.T) {
	transport := newFakeTransport()
	service, recorder := newTestConnectionService(t, transport, &fakeObserver{})
	startSupervisor(t, service)
	require.Eventually(t, func() bool { return transport.calls() == 1 }, time.Second, 5*time.Millisecond)

	attemptDone := func(calls int) func() bool {
		return func() bool {
			service.mu.Lock()
			defer service.mu.Unlock()
			return !service.reconnecting && transport.calls() == calls
		}
	}

	// Los primeros 4 reintentos fallan y el quinto conecta; cada caída
	// rearma un solo timer, el contador de reintentos persiste entre ellas.
	transport.failNextInits(4)
	for i := 0; i < 5; i++ {
		transport.events <- domainSession.Event{Type: domainSession.EventDisconnected, Reason: "stream error"}
		require.Eventually(t, attemptDone(2+i), time.Second, time.Millisecond)
	}

	expected := []time.Duration{
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		60 * time.Second, // 80s capeado al techo
		60 * time.Second,
	}
	assert.Equal(t, expected, recorder.recorded())
}

func TestConnection_FailedAttemptDoesNotRearmItself(t *testing.T) {
	transport := newFakeTransport()
	service, recorder := newTestConnectionService(t, transport, &fakeObserver{})
	startSupervisor(t, service)
	require.Eventually(t, func() bool { return transport.calls() == 1 }, time.Second, 5*time.Millisecond)

	transport.failNextInits(1)
	transport.events <- domainSession.Event{Type: domainSession.EventDisconnected, Reason: "stream error"}
	require.Eventually(t, func() bool {
		return service.Status().State == domainSession.StateError
	}, time.Second, 5*time.Millisecond)

	// El fallo deja el estado en error y nada más: el siguiente intento lo
	// programa el health check, no el propio timer.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, transport.calls())
	assert.Len(t, recorder.recorded(), 1)
}

func TestConnection_ReadyResetsBackoff(t *testing.T) {
	transport := newFakeTransport()
	service, recorder := newTestConnectionService(t, transport, &fakeObserver{})
	startSupervisor(t, service)
	require.Eventually(t, func() bool { return transport.calls() == 1 }, time.Second, 5*time.Millisecond)

	attemptDone := func(calls int) func() bool {
		return func() bool {
			service.mu.Lock()
			defer service.mu.Unlock()
			return !service.reconnecting && transport.calls() == calls
		}
	}

	transport.failNextInits(2)
	for i := 0; i < 3; i++ {
		transport.events <- domainSession.Event{Type: domainSession.EventDisconnected, Reason: "stream error"}
		require.Eventually(t, attemptDone(2+i), time.Second, time.Millisecond)
	}
	require.Len(t, recorder.recorded(), 3)

	transport.events <- domainSession.Event{Type: domainSession.EventReady}
	require.Eventually(t, func() bool {
		return service.Status().State == domainSession.StateReady
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, service.Status().RetryCount)

	// La siguiente caída vuelve a empezar en el delay base.
	transport.events <- domainSession.Event{Type: domainSession.EventDisconnected, Reason: "stream error"}
	require.Eventually(t, func() bool {
		return len(recorder.recorded()) == 4
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 10*time.Second, recorder.recorded()[3])
}

func TestConnection_IntentionalLogoutWipesAndStops(t *testing.T) {
	transport := newFakeTransport()
	observer := &fakeObserver{}
	service, recorder := newTestConnectionService(t, transport, observer)
	startSupervisor(t, service)

	require.Eventually(t, func() bool { return transport.calls() == 1 }, time.Second, 5*time.Millisecond)

	transport.events <- domainSession.Event{Type: domainSession.EventDisconnected, Reason: "intentional logout by user"}

	require.Eventually(t, func() bool { return transport.wipeCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domainSession.StateDisconnected, service.Status().State)
	assert.Contains(t, observer.codes(), "LOGGED_OUT")

	// Sin reintentos: nadie vuelve a llamar a Initialize.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, transport.calls())
	assert.Empty(t, recorder.recorded())
}

func TestConnection_HealthCheckDetectsDeadSocket(t *testing.T) {
	transport := newFakeTransport()
	observer := &fakeObserver{}
	service, _ := newTestConnectionService(t, transport, observer)
	service.cfg.HealthCheckInterval = 10 * time.Millisecond
	startSupervisor(t, service)

	transport.events <- domainSession.Event{Type: domainSession.EventReady}
	require.Eventually(t, func() bool {
		return service.Status().State == domainSession.StateReady
	}, time.Second, 5*time.Millisecond)

	transport.setConnected(false)

	require.Eventually(t, func() bool {
		return transport.calls() >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, observer.codes(), "DISCONNECTED")
}

func TestConnection_ForceReconnectCooldown(t *testing.T) {
	transport := newFakeTransport()
	service, _ := newTestConnectionService(t, transport, &fakeObserver{})

	require.NoError(t, service.ForceReconnect(context.Background()))

	err := service.ForceReconnect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cooldown")
}

func TestConnection_RegenerateQRRejectedWhenReady(t *testing.T) {
	transport := newFakeTransport()
	service, _ := newTestConnectionService(t, transport, &fakeObserver{})
	startSupervisor(t, service)

	transport.events <- domainSession.Event{Type: domainSession.EventReady}
	require.Eventually(t, func() bool {
		return service.Status().State == domainSession.StateReady
	}, time.Second, 5*time.Millisecond)

	err := service.RegenerateQR(context.Background())
	require.Error(t, err)
}

func TestConnection_RegenerateQRInvalidatesPendingReconnect(t *testing.T) {
	transport := newFakeTransport()
	service, _ := newTestConnectionService(t, transport, &fakeObserver{})

	// Timer bloqueado manualmente para simular un reintento en vuelo.
	release := make(chan time.Time)
	service.after = func(time.Duration) <-chan time.Time { return release }

	transport.failNextInits(1)
	startSupervisor(t, service)
	require.Eventually(t, func() bool { return transport.calls() == 1 }, time.Second, 5*time.Millisecond)

	// El wipe del QR sube el epoch; el timer pendiente ya no debe conectar.
	require.NoError(t, service.RegenerateQR(context.Background()))
	callsAfterRegen := transport.calls()

	close(release)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, callsAfterRegen, transport.calls(), "el timer viejo no debe reconectar tras el wipe")
}

func TestConnection_LogoutWipesAndStaysDown(t *testing.T) {
	transport := newFakeTransport()
	observer := &fakeObserver{}
	service, recorder := newTestConnectionService(t, transport, observer)
	service.cfg.HealthCheckInterval = 10 * time.Millisecond
	service.cfg.ReconnectCooldown = 0
	startSupervisor(t, service)

	transport.events <- domainSession.Event{Type: domainSession.EventReady}
	require.Eventually(t, func() bool {
		return service.Status().State == domainSession.StateReady
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, service.Logout(context.Background()))
	assert.Equal(t, 1, transport.wipeCount())
	assert.Equal(t, domainSession.StateDisconnected, service.Status().State)
	assert.Contains(t, observer.codes(), "LOGGED_OUT")

	// Ni el health check ni nadie reconecta un desvinculado a propósito.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, transport.calls())
	assert.Empty(t, recorder.recorded())
}

func TestConnection_HealthCheckRearmsStalledSession(t *testing.T) {
	transport := newFakeTransport()
	service, recorder := newTestConnectionService(t, transport, &fakeObserver{})
	service.cfg.ReconnectCooldown = 0

	// Estado caído sin timer en vuelo: el health check debe rearmar el backoff.
	service.setState(domainSession.StateError, "dial failed")
	service.healthCheck(context.Background())

	require.Eventually(t, func() bool { return transport.calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Second}, recorder.recorded())
}

func TestConnection_ForwardsMessagesToHandler(t *testing.T) {
	transport := newFakeTransport()
	service, _ := newTestConnectionService(t, transport, &fakeObserver{})

	var mu sync.Mutex
	var got []domainSession.InboundMessage
	service.SetMessageHandler(func(msg domainSession.InboundMessage) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})
	startSupervisor(t, service)

	transport.events <- domainSession.Event{Type: domainSession.EventMessage, Message: &domainSession.InboundMessage{
		ChatJID: "x@g.us",
		Text:    "hola",
	}}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, "hola", got[0].Text)
	mu.Unlock()
}
