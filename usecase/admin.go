package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainAdmin "github.com/AzielCF/az-reply/domains/admin"
	domainPending "github.com/AzielCF/az-reply/domains/pending"
	domainSession "github.com/AzielCF/az-reply/domains/session"
	domainTrigger "github.com/AzielCF/az-reply/domains/trigger"
	"github.com/AzielCF/az-reply/validations"
	"github.com/sirupsen/logrus"
)

type serviceAdmin struct {
	triggers domainTrigger.ITriggerUsecase
	pendings domainPending.IPendingUsecase
	conn     domainSession.IConnectionUsecase
}

func NewAdminService(
	triggers domainTrigger.ITriggerUsecase,
	pendings domainPending.IPendingUsecase,
	conn domainSession.IConnectionUsecase,
) domainAdmin.IAdminUsecase {
	return &serviceAdmin{
		triggers: triggers,
		pendings: pendings,
		conn:     conn,
	}
}

func (service *serviceAdmin) IsCommand(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), "!")
}

// Handle ejecuta la directiva y siempre devuelve texto para el operador;
// cualquier error de parseo o validación vuelve como mensaje, nunca como
// pánico ni silencio.
func (service *serviceAdmin) Handle(ctx context.Context, raw string) string {
	command, err := domainAdmin.Parse(raw)
	if err != nil {
		logrus.Debugf("[ADMIN] Parse failed for %q: %v", raw, err)
		return domainAdmin.Usage
	}

	switch command.Kind {
	case domainAdmin.CommandLearn:
		return service.handleLearn(command)
	case domainAdmin.CommandForget:
		return service.handleForget(command)
	case domainAdmin.CommandAnswer:
		return service.handleAnswer(ctx, command)
	case domainAdmin.CommandPending:
		return service.handlePending()
	case domainAdmin.CommandReload:
		if err := service.triggers.Reload(); err != nil {
			return "No pude recargar el documento: " + err.Error()
		}
		return fmt.Sprintf("Recargado: %d respuestas conocidas", len(service.triggers.GetAll()))
	case domainAdmin.CommandStatus:
		return service.handleStatus()
	case domainAdmin.CommandReconnect:
		if err := service.conn.ForceReconnect(ctx); err != nil {
			return "Reconexión rechazada: " + err.Error()
		}
		return "Reconectando..."
	case domainAdmin.CommandQR:
		if err := service.conn.RegenerateQR(ctx); err != nil {
			return "No pude regenerar el QR: " + err.Error()
		}
		return "Generando QR nuevo, revisa el panel"
	}
	return domainAdmin.Usage
}

func (service *serviceAdmin) handleLearn(command domainAdmin.Command) string {
	if err := validations.ValidateLearn(command); err != nil {
		return "Comando inválido: " + err.Error()
	}
	if err := service.triggers.Upsert(command.Trigger, command.Response); err != nil {
		return "Aprendido en memoria pero no pude guardarlo: " + err.Error()
	}
	return fmt.Sprintf("Aprendido: %q", domainTrigger.Normalize(command.Trigger))
}

func (service *serviceAdmin) handleForget(command domainAdmin.Command) string {
	if err := validations.ValidateForget(command); err != nil {
		return "Comando inválido: " + err.Error()
	}
	removed, err := service.triggers.Remove(command.Trigger)
	if err != nil {
		return "Olvidado en memoria pero no pude guardarlo: " + err.Error()
	}
	if !removed {
		return fmt.Sprintf("No conozco %q", domainTrigger.Normalize(command.Trigger))
	}
	return fmt.Sprintf("Olvidado: %q", domainTrigger.Normalize(command.Trigger))
}

func (service *serviceAdmin) handleAnswer(ctx context.Context, command domainAdmin.Command) string {
	if err := validations.ValidateAnswer(command); err != nil {
		return "Comando inválido: " + err.Error()
	}
	found, err := service.pendings.Resolve(ctx, command.PendingID, command.Response)
	if err != nil {
		return "No pude enviar la respuesta: " + err.Error()
	}
	if !found {
		return fmt.Sprintf("No hay pendiente con id %s (¿ya expiró?)", command.PendingID)
	}
	return "Respuesta enviada y aprendida"
}

func (service *serviceAdmin) handlePending() string {
	items := service.pendings.List()
	if len(items) == 0 {
		return "Sin mensajes pendientes"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d pendientes:\n", len(items))
	for _, item := range items {
		age := time.Since(item.CreatedAt).Round(time.Minute)
		fmt.Fprintf(&sb, "• %s — %s (%s, hace %s)", item.ID, item.Text, item.ContactName, age)
		if item.FailureReason != "" {
			fmt.Fprintf(&sb, " [%s]", item.FailureReason)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (service *serviceAdmin) handleStatus() string {
	status := service.conn.Status()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Estado: %s", status.State)
	if status.Name != "" {
		fmt.Fprintf(&sb, " (%s)", status.Name)
	}
	fmt.Fprintf(&sb, "\nTriggers: %d", len(service.triggers.GetAll()))
	fmt.Fprintf(&sb, "\nPendientes: %d", len(service.pendings.List()))
	if status.RetryCount > 0 {
		fmt.Fprintf(&sb, "\nReintentos de conexión: %d", status.RetryCount)
	}
	if status.LastError != "" {
		fmt.Fprintf(&sb, "\nÚltimo error: %s", status.LastError)
	}
	return sb.String()
}
