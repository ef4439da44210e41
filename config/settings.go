package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.mau.fi/whatsmeow/proto/waCompanionReg"
)

var (
	AppVersion             = "v1.2.0"
	AppPort                = "3000"
	AppDebug               = false
	AppOs                  = "AzielCf"
	AppPlatform            = waCompanionReg.DeviceProps_PlatformType(1)
	AppBasicAuthCredential []string
	AppBasePath            = ""

	PathQrCode   = "statics/qrcode"
	PathStorages = "storages"

	DBURI = "file:storages/whatsapp.db?_foreign_keys=on"

	WhatsappLogLevel  = "ERROR"
	WhatsappTypeUser  = "@s.whatsapp.net"
	WhatsappTypeGroup = "@g.us"

	// Trigger store
	TriggerStorePath = "storages/responses.json"
	FuzzyThreshold   = 0.7

	// Bot behavior
	AdminJID        string
	RedirectMessage = "Este canal es solo para grupos. Escríbenos por el canal de atención privada."
	AIProvider      = "gemini" // gemini | openai | none
	AIAPIKey        string
	AIModel         string
	AISystemPrompt  string
	AITimeout       = 30 * time.Second
	// Prefijo visible en toda respuesta generada; vacío lo desactiva.
	AIReplyTag = "🤖 "

	// Pending escalation queue
	PendingExpiryHours   = 24
	PendingSweepInterval = 1 * time.Hour

	// Connection supervisor
	ReconnectBackoffBase    = 10 * time.Second
	ReconnectBackoffCeiling = 60 * time.Second
	HealthCheckInterval     = 30 * time.Second
	ReconnectCooldown       = 60 * time.Second

	// Message worker pool
	MessageWorkerPoolSize  = 20
	MessageWorkerQueueSize = 1000
)

func init() {
	if v := strings.TrimSpace(os.Getenv("ADMIN_JID")); v != "" {
		AdminJID = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIRECT_MESSAGE")); v != "" {
		RedirectMessage = v
	}
	if v := strings.TrimSpace(os.Getenv("AI_PROVIDER")); v != "" {
		AIProvider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("AI_API_KEY")); v != "" {
		AIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("AI_MODEL")); v != "" {
		AIModel = v
	}
	if v := strings.TrimSpace(os.Getenv("AI_SYSTEM_PROMPT")); v != "" {
		AISystemPrompt = v
	}
	if v, ok := os.LookupEnv("AI_REPLY_TAG"); ok {
		AIReplyTag = v
	}
	if v := strings.TrimSpace(os.Getenv("FUZZY_THRESHOLD")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f < 1 {
			FuzzyThreshold = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("PENDING_EXPIRY_HOURS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			PendingExpiryHours = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGE_WORKER_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			MessageWorkerPoolSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGE_WORKER_QUEUE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			MessageWorkerQueueSize = n
		}
	}
}
