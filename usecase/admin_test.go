package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	domainAdmin "github.com/AzielCF/az-reply/domains/admin"
	domainSession "github.com/AzielCF/az-reply/domains/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	status         domainSession.AccountSession
	reconnects     int
	qrRegens       int
	reconnectError error
}

func (f *fakeConn) Run(_ context.Context)                {}
func (f *fakeConn) Status() domainSession.AccountSession { return f.status }
func (f *fakeConn) Ready() bool                          { return f.status.State == domainSession.StateReady }

func (f *fakeConn) ForceReconnect(_ context.Context) error {
	f.reconnects++
	return f.reconnectError
}
func (f *fakeConn) RegenerateQR(_ context.Context) error {
	f.qrRegens++
	return nil
}
func (f *fakeConn) Logout(_ context.Context) error { return nil }

type adminFixture struct {
	admin    *serviceAdmin
	triggers *serviceTrigger
	pending  *servicePending
	sender   *fakeSender
	conn     *fakeConn
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	triggers, _ := newTestTriggerService(t)
	sender := &fakeSender{}
	pending := NewPendingService(triggers, sender, &fakeObserver{}, 24*time.Hour, time.Hour).(*servicePending)
	conn := &fakeConn{status: domainSession.AccountSession{State: domainSession.StateReady, Name: "Tienda"}}

	return &adminFixture{
		admin:    NewAdminService(triggers, pending, conn).(*serviceAdmin),
		triggers: triggers,
		pending:  pending,
		sender:   sender,
		conn:     conn,
	}
}

func TestAdmin_IsCommand(t *testing.T) {
	fx := newAdminFixture(t)
	assert.True(t, fx.admin.IsCommand("!status"))
	assert.True(t, fx.admin.IsCommand("  !learn hola | adiós"))
	assert.False(t, fx.admin.IsCommand("hola"))
	assert.False(t, fx.admin.IsCommand(""))
}

func TestAdmin_LearnAddsTrigger(t *testing.T) {
	fx := newAdminFixture(t)

	reply := fx.admin.Handle(context.Background(), "!learn Horario | Abrimos de 9 a 18")

	assert.Equal(t, `Aprendido: "horario"`, reply)
	assert.Equal(t, "Abrimos de 9 a 18", fx.triggers.GetAll()["horario"])
}

func TestAdmin_LearnWithoutPipeReturnsUsage(t *testing.T) {
	fx := newAdminFixture(t)

	reply := fx.admin.Handle(context.Background(), "!learn horario abrimos de 9 a 18")

	assert.Equal(t, domainAdmin.Usage, reply)
	assert.Empty(t, fx.triggers.GetAll())
}

func TestAdmin_LearnRejectsTooShortTrigger(t *testing.T) {
	fx := newAdminFixture(t)

	reply := fx.admin.Handle(context.Background(), "!learn a | respuesta")

	assert.Contains(t, reply, "Comando inválido")
	assert.Empty(t, fx.triggers.GetAll())
}

func TestAdmin_ForgetKnownAndUnknown(t *testing.T) {
	fx := newAdminFixture(t)
	require.NoError(t, fx.triggers.Upsert("horario", "Abrimos de 9 a 18"))

	assert.Equal(t, `Olvidado: "horario"`, fx.admin.Handle(context.Background(), "!forget HORARIO"))
	assert.Empty(t, fx.triggers.GetAll())

	assert.Equal(t, `No conozco "horario"`, fx.admin.Handle(context.Background(), "!forget horario"))
}

func TestAdmin_AnswerResolvesPending(t *testing.T) {
	fx := newAdminFixture(t)
	id := fx.pending.Add("521000000001@s.whatsapp.net", "¿hacen envíos?", "Cliente")

	reply := fx.admin.Handle(context.Background(), "!answer "+id+" | Sí, a todo el país")

	assert.Equal(t, "Respuesta enviada y aprendida", reply)
	require.Len(t, fx.sender.sent(), 1)
	assert.Equal(t, "Sí, a todo el país", fx.triggers.GetAll()["¿hacen envíos?"])
	assert.Empty(t, fx.pending.List())
}

func TestAdmin_AnswerUnknownID(t *testing.T) {
	fx := newAdminFixture(t)

	reply := fx.admin.Handle(context.Background(), "!answer nope | respuesta")

	assert.Contains(t, reply, "No hay pendiente con id nope")
}

func TestAdmin_PendingListsItems(t *testing.T) {
	fx := newAdminFixture(t)

	assert.Equal(t, "Sin mensajes pendientes", fx.admin.Handle(context.Background(), "!pending"))

	fx.pending.Add("a@s.whatsapp.net", "¿hacen envíos?", "Cliente")
	fx.pending.AddWithFailure("b@s.whatsapp.net", "pregunta rara", "Otro", "ai failed: quota exceeded")

	reply := fx.admin.Handle(context.Background(), "!pending")
	assert.Contains(t, reply, "2 pendientes")
	assert.Contains(t, reply, "¿hacen envíos?")
	assert.Contains(t, reply, "[ai failed: quota exceeded]")
}

func TestAdmin_ReloadReportsCount(t *testing.T) {
	fx := newAdminFixture(t)
	require.NoError(t, fx.triggers.Upsert("horario", "Abrimos de 9 a 18"))

	reply := fx.admin.Handle(context.Background(), "!reload")
	assert.Equal(t, "Recargado: 1 respuestas conocidas", reply)
}

func TestAdmin_StatusSummarizesSession(t *testing.T) {
	fx := newAdminFixture(t)
	fx.conn.status.RetryCount = 2
	fx.conn.status.LastError = "stream error"

	reply := fx.admin.Handle(context.Background(), "!status")

	assert.Contains(t, reply, "Estado: ready (Tienda)")
	assert.Contains(t, reply, "Reintentos de conexión: 2")
	assert.Contains(t, reply, "Último error: stream error")
}

func TestAdmin_ReconnectAndQR(t *testing.T) {
	fx := newAdminFixture(t)

	assert.Equal(t, "Reconectando...", fx.admin.Handle(context.Background(), "!reconnect"))
	assert.Equal(t, 1, fx.conn.reconnects)

	assert.Equal(t, "Generando QR nuevo, revisa el panel", fx.admin.Handle(context.Background(), "!qr"))
	assert.Equal(t, 1, fx.conn.qrRegens)
}

func TestAdmin_ReconnectRejected(t *testing.T) {
	fx := newAdminFixture(t)
	fx.conn.reconnectError = errors.New("cooldown active")

	reply := fx.admin.Handle(context.Background(), "!reconnect")
	assert.Equal(t, "Reconexión rechazada: cooldown active", reply)
}

func TestAdmin_UnknownCommandReturnsUsage(t *testing.T) {
	fx := newAdminFixture(t)
	assert.Equal(t, domainAdmin.Usage, fx.admin.Handle(context.Background(), "!banana"))
}
