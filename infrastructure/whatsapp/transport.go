// Package whatsapp adapts the whatsmeow client to the session transport
// contract. It owns the socket, the credential store and the QR pairing; the
// connection supervisor decides when any of it runs.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/AzielCF/az-reply/config"
	domainSession "github.com/AzielCF/az-reply/domains/session"
	pkgError "github.com/AzielCF/az-reply/pkg/error"
	"github.com/AzielCF/az-reply/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type Transport struct {
	mu        sync.Mutex
	cli       *whatsmeow.Client
	db        *sqlstore.Container
	handlerID uint32

	dbURI  string
	events chan domainSession.Event
}

func NewTransport(dbURI string) *Transport {
	return &Transport{
		dbURI:  dbURI,
		events: make(chan domainSession.Event, 64),
	}
}

func (t *Transport) Events() <-chan domainSession.Event {
	return t.events
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	cli := t.cli
	t.mu.Unlock()
	return cli != nil && cli.IsConnected()
}

// Initialize connects the existing client or builds a fresh one from the
// credential store. With no stored device it starts a QR pairing and pumps
// the codes out as events. Auto-reconnect stays off: retries belong to the
// supervisor, never to the socket layer.
func (t *Transport) Initialize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cli != nil {
		if t.cli.IsConnected() {
			return nil
		}
		if err := t.cli.Connect(); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
		return nil
	}

	container, err := t.openContainer(ctx)
	if err != nil {
		return err
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("get device: %w", err)
	}
	if device == nil {
		device = container.NewDevice()
	}
	configureDeviceProps()

	client := whatsmeow.NewClient(device, waLog.Stdout("Client", config.WhatsappLogLevel, true))
	client.EnableAutoReconnect = false
	client.AutoTrustIdentity = true
	t.handlerID = client.AddEventHandler(t.handleEvent)

	if device.ID == nil {
		qrChan, qrErr := client.GetQRChannel(ctx)
		switch {
		case qrErr == nil:
			go t.pumpQR(qrChan)
		case errors.Is(qrErr, whatsmeow.ErrQRStoreContainsID):
			// Credentials landed between GetFirstDevice and here; a plain
			// connect is enough.
		default:
			return pkgError.ErrQrChannel
		}
	}

	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	t.cli = client
	t.db = container
	return nil
}

func (t *Transport) openContainer(ctx context.Context) (*sqlstore.Container, error) {
	if t.db != nil {
		return t.db, nil
	}
	dbLog := waLog.Stdout("Database", config.WhatsappLogLevel, true)
	driver := "sqlite3"
	if strings.HasPrefix(t.dbURI, "postgres:") {
		driver = "postgres"
	}
	container, err := sqlstore.New(ctx, driver, t.dbURI, dbLog)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return container, nil
}

func (t *Transport) Logout(ctx context.Context) error {
	t.mu.Lock()
	cli := t.cli
	t.mu.Unlock()
	if cli == nil {
		return pkgError.ErrWaCLI
	}
	return cli.Logout(ctx)
}

// WipeSession tears the client down and removes the durable credentials, so
// the next Initialize produces a fresh QR pairing.
func (t *Transport) WipeSession(ctx context.Context) error {
	t.mu.Lock()
	cli, container, handlerID := t.cli, t.db, t.handlerID
	t.cli = nil
	t.db = nil
	t.handlerID = 0
	t.mu.Unlock()

	if cli != nil {
		if handlerID != 0 {
			cli.RemoveEventHandler(handlerID)
		}
		cli.Disconnect()
	}

	if strings.HasPrefix(t.dbURI, "postgres:") {
		if container != nil {
			devices, _ := container.GetAllDevices(ctx)
			for _, device := range devices {
				if err := container.DeleteDevice(ctx, device); err != nil {
					return fmt.Errorf("delete device: %w", err)
				}
			}
		}
	} else {
		if container != nil {
			container.Close()
		}
		removeFileIfExists(t.dbURI)
		removeFileIfExists(t.dbURI + "-wal")
		removeFileIfExists(t.dbURI + "-shm")
	}

	// Stale pairing images are useless after a wipe.
	files, _ := filepath.Glob(fmt.Sprintf("%s/scan-qr-*.png", config.PathQrCode))
	for _, f := range files {
		os.Remove(f)
	}

	logrus.Info("[TRANSPORT] Session credentials wiped")
	return nil
}

func (t *Transport) SendMessage(ctx context.Context, chatJID, text string) error {
	t.mu.Lock()
	cli := t.cli
	t.mu.Unlock()
	if cli == nil || !cli.IsConnected() {
		return pkgError.ErrNotConnected
	}

	jid := utils.FormatJID(chatJID)
	msg := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
		},
	}
	if _, err := cli.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (t *Transport) SendMedia(ctx context.Context, chatJID, path, caption string) error {
	t.mu.Lock()
	cli := t.cli
	t.mu.Unlock()
	if cli == nil || !cli.IsConnected() {
		return pkgError.ErrNotConnected
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read media file: %w", err)
	}
	mimeType := http.DetectContentType(data)

	var mediaType whatsmeow.MediaType
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		mediaType = whatsmeow.MediaImage
	case strings.HasPrefix(mimeType, "video/"):
		mediaType = whatsmeow.MediaVideo
	case strings.HasPrefix(mimeType, "audio/"):
		mediaType = whatsmeow.MediaAudio
	default:
		mediaType = whatsmeow.MediaDocument
	}

	uploaded, err := cli.Upload(ctx, data, mediaType)
	if err != nil {
		return fmt.Errorf("upload media: %w", err)
	}

	msg := &waE2E.Message{}
	switch mediaType {
	case whatsmeow.MediaImage:
		msg.ImageMessage = &waE2E.ImageMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(mimeType),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
			Caption:       proto.String(caption),
		}
	case whatsmeow.MediaVideo:
		msg.VideoMessage = &waE2E.VideoMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(mimeType),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
			Caption:       proto.String(caption),
		}
	case whatsmeow.MediaAudio:
		msg.AudioMessage = &waE2E.AudioMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(mimeType),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
		}
	default:
		msg.DocumentMessage = &waE2E.DocumentMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(mimeType),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
			FileName:      proto.String(filepath.Base(path)),
			Title:         proto.String(filepath.Base(path)),
			Caption:       proto.String(caption),
		}
	}

	if _, err := cli.SendMessage(ctx, utils.FormatJID(chatJID), msg); err != nil {
		return fmt.Errorf("send media: %w", err)
	}
	return nil
}

func (t *Transport) handleEvent(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		t.handleInboundMessage(evt)
	case *events.PairSuccess:
		logrus.Infof("[TRANSPORT] Paired with %s", evt.ID.String())
		t.emit(domainSession.Event{Type: domainSession.EventAuthenticated})
	case *events.Connected, *events.PushNameSetting:
		t.handleConnected()
	case *events.LoggedOut:
		t.emit(domainSession.Event{
			Type:   domainSession.EventDisconnected,
			Reason: fmt.Sprintf("logged out: %s", evt.Reason.String()),
		})
	case *events.StreamReplaced:
		// Otra sesión tomó el socket; el supervisor decide si reintentar.
		t.emit(domainSession.Event{Type: domainSession.EventDisconnected, Reason: "stream replaced"})
	case *events.Disconnected:
		t.emit(domainSession.Event{Type: domainSession.EventDisconnected, Reason: "socket disconnected"})
	}
}

func (t *Transport) handleInboundMessage(evt *events.Message) {
	text := utils.ExtractMessageTextFromProto(evt.Message)
	chatJID := evt.Info.Chat.String()
	if strings.HasPrefix(chatJID, "status@") || strings.HasSuffix(chatJID, "@broadcast") {
		return
	}

	t.emit(domainSession.Event{
		Type: domainSession.EventMessage,
		Message: &domainSession.InboundMessage{
			ChatJID:   chatJID,
			SenderJID: evt.Info.Sender.String(),
			PushName:  evt.Info.PushName,
			Text:      text,
			IsGroup:   utils.IsGroupJID(chatJID),
			IsFromMe:  evt.Info.IsFromMe,
			Timestamp: evt.Info.Timestamp,
		},
	})
}

func (t *Transport) handleConnected() {
	t.mu.Lock()
	cli := t.cli
	t.mu.Unlock()

	pushName := ""
	if cli != nil && cli.Store != nil {
		pushName = cli.Store.PushName
		if pushName != "" {
			cli.SendPresence(context.Background(), types.PresenceAvailable)
		}
	}

	// Ya emparejado: cualquier imagen de QR que quede es de un pairing viejo.
	files, _ := filepath.Glob(fmt.Sprintf("%s/scan-qr-*.png", config.PathQrCode))
	for _, f := range files {
		os.Remove(f)
	}

	t.emit(domainSession.Event{Type: domainSession.EventReady, Reason: pushName})
}

// pumpQR escribe cada código como PNG y lo emite; la imagen se borra sola al
// expirar el código.
func (t *Transport) pumpQR(ch <-chan whatsmeow.QRChannelItem) {
	for evt := range ch {
		if evt.Event != "code" {
			logrus.Infof("[TRANSPORT] QR channel closed with %s", evt.Event)
			continue
		}

		utils.CreateFolder(config.PathQrCode)
		qrPath := fmt.Sprintf("%s/scan-qr-%s.png", config.PathQrCode, uuid.NewString())
		if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 512, qrPath); err != nil {
			logrus.WithError(err).Error("[TRANSPORT] Failed to write QR image")
			qrPath = ""
		} else {
			expiry := evt.Timeout
			go func(path string) {
				time.Sleep(expiry)
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					logrus.WithError(err).Error("[TRANSPORT] Failed to remove expired QR image")
				}
			}(qrPath)
		}

		t.emit(domainSession.Event{
			Type:        domainSession.EventQR,
			QRCode:      evt.Code,
			QRImagePath: qrPath,
		})
	}
}

// emit never blocks: whatsmeow's event loop must not stall because the
// supervisor is busy. A full channel drops the oldest kind of signal a
// health check will rediscover anyway.
func (t *Transport) emit(event domainSession.Event) {
	select {
	case t.events <- event:
	default:
		logrus.Warnf("[TRANSPORT] Event channel full, dropping %s", event.Type)
	}
}

func configureDeviceProps() {
	osName := fmt.Sprintf("%s %s", config.AppOs, config.AppVersion)
	store.DeviceProps.PlatformType = &config.AppPlatform
	store.DeviceProps.Os = &osName
}

func removeFileIfExists(uri string) {
	uri = strings.TrimPrefix(uri, "file:")
	path := strings.Split(uri, "?")[0]
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.Errorf("[TRANSPORT] Failed to remove %s: %v", path, err)
	}
}
