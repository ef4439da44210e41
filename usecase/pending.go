package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainBot "github.com/AzielCF/az-reply/domains/bot"
	domainPending "github.com/AzielCF/az-reply/domains/pending"
	domainSession "github.com/AzielCF/az-reply/domains/session"
	domainTrigger "github.com/AzielCF/az-reply/domains/trigger"
	"github.com/sirupsen/logrus"
)

// servicePending keeps the operator escalation queue. Items live in memory
// only; an unanswered message that outlives the process is acceptable to
// lose (the contact will write again).
type servicePending struct {
	mu    sync.Mutex
	items []domainPending.PendingItem

	triggers      domainTrigger.ITriggerUsecase
	sender        domainBot.ISender
	observer      domainSession.IObserver
	maxAge        time.Duration
	sweepInterval time.Duration

	now func() time.Time
}

func NewPendingService(
	triggers domainTrigger.ITriggerUsecase,
	sender domainBot.ISender,
	observer domainSession.IObserver,
	maxAge, sweepInterval time.Duration,
) domainPending.IPendingUsecase {
	return &servicePending{
		triggers:      triggers,
		sender:        sender,
		observer:      observer,
		maxAge:        maxAge,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

func (service *servicePending) Add(chatJID, text, contactName string) string {
	return service.AddWithFailure(chatJID, text, contactName, "")
}

func (service *servicePending) AddWithFailure(chatJID, text, contactName, reason string) string {
	service.mu.Lock()

	createdAt := service.now()
	item := domainPending.PendingItem{
		// Deterministic id: origin chat plus creation timestamp. Messages
		// from one chat are processed in order, so the pair is unique.
		ID:            fmt.Sprintf("%s_%d", chatJID, createdAt.UnixMilli()),
		ChatJID:       chatJID,
		Text:          text,
		ContactName:   contactName,
		CreatedAt:     createdAt,
		FailureReason: reason,
	}
	service.items = append(service.items, item)
	total := len(service.items)
	service.mu.Unlock()

	logrus.Infof("[PENDING] Escalated message from %s (%s), %d pending", contactName, chatJID, total)
	if service.observer != nil {
		service.observer.Notify("PENDING_ADDED", "Message escalated to operators", item)
	}
	return item.ID
}

func (service *servicePending) Resolve(ctx context.Context, id, response string) (bool, error) {
	service.mu.Lock()
	idx := -1
	for i, item := range service.items {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		service.mu.Unlock()
		// Resolving a stale or already-resolved id is expected, not an
		// error: sweeps and double submissions race with operators.
		logrus.Debugf("[PENDING] Resolve for unknown id %s ignored", id)
		return false, nil
	}
	// El item se reclama bajo el lock: dos resolves concurrentes del mismo
	// id (REST y !answer compitiendo) no deben despachar dos veces.
	item := service.items[idx]
	service.items = append(service.items[:idx], service.items[idx+1:]...)
	service.mu.Unlock()

	if err := service.sender.SendMessage(ctx, item.ChatJID, response); err != nil {
		// Re-queue so the operator can retry once the connection is back.
		logrus.WithError(err).Errorf("[PENDING] Failed to dispatch resolution for %s", id)
		service.requeue(item)
		return true, err
	}

	if err := service.triggers.Upsert(item.Text, response); err != nil {
		logrus.WithError(err).Errorf("[PENDING] Resolution sent but teaching %q failed", item.Text)
	}

	service.mu.Lock()
	remaining := len(service.items)
	service.mu.Unlock()

	logrus.Infof("[PENDING] Resolved %s, %d pending", id, remaining)
	if service.observer != nil {
		service.observer.Notify("PENDING_RESOLVED", "Pending message resolved", map[string]any{
			"id":        id,
			"remaining": remaining,
		})
	}
	return true, nil
}

// requeue devuelve un item reclamado cuyo envío falló, conservando el orden
// de creación de la cola.
func (service *servicePending) requeue(item domainPending.PendingItem) {
	service.mu.Lock()
	service.items = append(service.items, item)
	sort.SliceStable(service.items, func(i, j int) bool {
		return service.items[i].CreatedAt.Before(service.items[j].CreatedAt)
	})
	service.mu.Unlock()
}

func (service *servicePending) SweepExpired(maxAge time.Duration) int {
	cutoff := service.now().Add(-maxAge)

	service.mu.Lock()
	defer service.mu.Unlock()

	kept := service.items[:0]
	removed := 0
	for _, item := range service.items {
		if item.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	service.items = kept

	if removed > 0 {
		logrus.Infof("[PENDING] Sweep removed %d expired items, %d remain", removed, len(service.items))
	}
	return removed
}

func (service *servicePending) List() []domainPending.PendingItem {
	service.mu.Lock()
	defer service.mu.Unlock()

	out := make([]domainPending.PendingItem, len(service.items))
	copy(out, service.items)
	return out
}

func (service *servicePending) StartBackgroundSweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(service.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				service.SweepExpired(service.maxAge)
			}
		}
	}()
}
