package usecase

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	domainTrigger "github.com/AzielCF/az-reply/domains/trigger"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// serviceTrigger is the single source of truth for known answers. Every
// mutation rewrites the whole backing document; the table is expected to
// stay small.
type serviceTrigger struct {
	mu   sync.RWMutex
	path string
	doc  domainTrigger.Document
}

func NewTriggerService(path string) domainTrigger.ITriggerUsecase {
	service := &serviceTrigger{
		path: path,
		doc:  domainTrigger.NewDocument(),
	}
	if err := service.Reload(); err != nil {
		logrus.WithError(err).Warn("[TRIGGER] Initial load failed, starting with empty table")
	}
	return service
}

func (service *serviceTrigger) GetAll() map[string]string {
	service.mu.RLock()
	defer service.mu.RUnlock()

	snapshot := make(map[string]string, len(service.doc.Responses))
	for k, v := range service.doc.Responses {
		snapshot[k] = v
	}
	return snapshot
}

func (service *serviceTrigger) MediaHandlers() map[string]string {
	service.mu.RLock()
	defer service.mu.RUnlock()

	snapshot := make(map[string]string, len(service.doc.MediaHandlers))
	for k, v := range service.doc.MediaHandlers {
		snapshot[k] = v
	}
	return snapshot
}

func (service *serviceTrigger) Upsert(trigger, response string) error {
	key := domainTrigger.Normalize(trigger)

	service.mu.Lock()
	defer service.mu.Unlock()

	service.doc.Responses[key] = response
	if err := service.persistLocked(); err != nil {
		// Memory stays authoritative until the next successful write, but
		// the caller must know the document is stale on disk.
		logrus.WithError(err).Errorf("[TRIGGER] Failed to persist upsert of %q", key)
		return err
	}
	logrus.Infof("[TRIGGER] Learned %q (%d triggers total)", key, len(service.doc.Responses))
	return nil
}

func (service *serviceTrigger) Remove(trigger string) (bool, error) {
	key := domainTrigger.Normalize(trigger)

	service.mu.Lock()
	defer service.mu.Unlock()

	if _, ok := service.doc.Responses[key]; !ok {
		return false, nil
	}
	delete(service.doc.Responses, key)
	if err := service.persistLocked(); err != nil {
		logrus.WithError(err).Errorf("[TRIGGER] Failed to persist removal of %q", key)
		return true, err
	}
	logrus.Infof("[TRIGGER] Forgot %q", key)
	return true, nil
}

func (service *serviceTrigger) Reload() error {
	doc := domainTrigger.NewDocument()

	data, err := os.ReadFile(service.path)
	switch {
	case os.IsNotExist(err):
		logrus.Warnf("[TRIGGER] %s does not exist, starting with empty table", service.path)
	case err != nil:
		logrus.WithError(err).Errorf("[TRIGGER] Failed to read %s, keeping empty table", service.path)
	case len(data) == 0:
		logrus.Warnf("[TRIGGER] %s is empty, starting with empty table", service.path)
	default:
		if jsonErr := json.Unmarshal(data, &doc); jsonErr != nil {
			logrus.WithError(jsonErr).Errorf("[TRIGGER] Malformed document at %s, falling back to empty table", service.path)
			doc = domainTrigger.NewDocument()
		}
	}

	// Tolerate documents missing either map.
	if doc.Responses == nil {
		doc.Responses = make(map[string]string)
	}
	if doc.MediaHandlers == nil {
		doc.MediaHandlers = make(map[string]string)
	}

	// Normalize keys on the way in so hand-edited documents behave the same
	// as taught ones.
	normalized := domainTrigger.NewDocument()
	for k, v := range doc.Responses {
		normalized.Responses[domainTrigger.Normalize(k)] = v
	}
	for k, v := range doc.MediaHandlers {
		normalized.MediaHandlers[domainTrigger.Normalize(k)] = v
	}

	service.mu.Lock()
	service.doc = normalized
	service.mu.Unlock()

	logrus.Infof("[TRIGGER] Loaded %d responses, %d media handlers", len(normalized.Responses), len(normalized.MediaHandlers))
	return nil
}

func (service *serviceTrigger) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(service.path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != service.path || !event.Op.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				// Editors fire several events per save; coalesce them.
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(200*time.Millisecond, func() {
					logrus.Infof("[TRIGGER] Document changed on disk, reloading")
					if err := service.Reload(); err != nil {
						logrus.WithError(err).Error("[TRIGGER] Hot reload failed")
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.WithError(err).Error("[TRIGGER] Watcher error")
			}
		}
	}()
	return nil
}

// persistLocked rewrites the whole document. Callers hold the write lock;
// single-writer is assumed, there is no partial-write protection.
func (service *serviceTrigger) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(service.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(service.doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(service.path, data, 0644)
}
