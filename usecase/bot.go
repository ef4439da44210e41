package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	domainAdmin "github.com/AzielCF/az-reply/domains/admin"
	domainBot "github.com/AzielCF/az-reply/domains/bot"
	domainPending "github.com/AzielCF/az-reply/domains/pending"
	domainSession "github.com/AzielCF/az-reply/domains/session"
	domainTrigger "github.com/AzielCF/az-reply/domains/trigger"
	"github.com/AzielCF/az-reply/pkg/similarity"
	"github.com/AzielCF/az-reply/pkg/utils"
	"github.com/sirupsen/logrus"
)

// BotConfig groups the scalar knobs of the reply pipeline so the constructor
// does not take a wall of positional strings.
type BotConfig struct {
	AdminJID        string
	RedirectMessage string
	FuzzyThreshold  float64
	AITimeout       time.Duration
	// AITag antecede toda respuesta generada para que el contacto sepa que
	// no la escribió una persona; vacío la manda sin marca.
	AITag string
	// Ready gates the pipeline on the connection supervisor; a nil Ready
	// means always ready (tests, dry runs).
	Ready func() bool
}

type serviceBot struct {
	triggers  domainTrigger.ITriggerUsecase
	pendings  domainPending.IPendingUsecase
	sender    domainBot.ISender
	altSender domainBot.ISender
	ai        domainBot.IAIProvider
	admin     domainAdmin.IAdminUsecase
	observer  domainSession.IObserver
	cfg       BotConfig
}

func NewBotService(
	triggers domainTrigger.ITriggerUsecase,
	pendings domainPending.IPendingUsecase,
	sender domainBot.ISender,
	altSender domainBot.ISender,
	ai domainBot.IAIProvider,
	admin domainAdmin.IAdminUsecase,
	observer domainSession.IObserver,
	cfg BotConfig,
) domainBot.IBotUsecase {
	return &serviceBot{
		triggers:  triggers,
		pendings:  pendings,
		sender:    sender,
		altSender: altSender,
		ai:        ai,
		admin:     admin,
		observer:  observer,
		cfg:       cfg,
	}
}

// Classify runs the deterministic part of the pipeline: exact response,
// exact media handler, substring, then word-level fuzzy. First stage that
// produces an answer wins.
func (service *serviceBot) Classify(text string) domainBot.Classification {
	normalized := domainTrigger.Normalize(text)
	responses := service.triggers.GetAll()

	if response, ok := responses[normalized]; ok {
		return domainBot.Classification{Matched: true, MatchType: domainBot.MatchExact, Trigger: normalized, Response: response}
	}

	if path, ok := service.triggers.MediaHandlers()[normalized]; ok {
		return domainBot.Classification{Matched: true, MatchType: domainBot.MatchMedia, Trigger: normalized, MediaPath: path}
	}

	// Substring pass in lexicographic order so a text containing two known
	// triggers always resolves to the same one.
	keys := make([]string, 0, len(responses))
	for key := range responses {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.Contains(normalized, key) {
			return domainBot.Classification{Matched: true, MatchType: domainBot.MatchPartial, Trigger: key, Response: responses[key]}
		}
	}

	if trigger, ok := similarity.FindBestTriggerMatch(normalized, keys, service.cfg.FuzzyThreshold); ok {
		return domainBot.Classification{Matched: true, MatchType: domainBot.MatchSimilar, Trigger: trigger, Response: responses[trigger]}
	}

	return domainBot.Classification{MatchType: domainBot.MatchNone}
}

func (service *serviceBot) HandleInbound(ctx context.Context, msg domainSession.InboundMessage) {
	if msg.IsFromMe {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	// El admin manda comandos desde su chat directo; se atienden incluso
	// cuando la sesión todavía no está lista del todo.
	if service.admin != nil && service.isAdmin(msg.SenderJID) && service.admin.IsCommand(text) {
		reply := service.admin.Handle(ctx, text)
		if err := service.dispatchText(ctx, msg.ChatJID, reply); err != nil {
			logrus.WithError(err).Error("[BOT] Failed to reply to admin command")
		}
		return
	}

	if service.cfg.Ready != nil && !service.cfg.Ready() {
		logrus.Debugf("[BOT] Session not ready, dropping message from %s", msg.ChatJID)
		return
	}

	// Direct chats are not served by the bot: fixed redirect, no pipeline.
	if !msg.IsGroup {
		if err := service.dispatchText(ctx, msg.ChatJID, service.cfg.RedirectMessage); err != nil {
			logrus.WithError(err).Errorf("[BOT] Failed to redirect %s", msg.ChatJID)
		}
		return
	}

	classification := service.Classify(text)
	if classification.Matched {
		service.replyClassified(ctx, msg, classification)
		return
	}

	service.fallbackToAI(ctx, msg, text)
}

func (service *serviceBot) replyClassified(ctx context.Context, msg domainSession.InboundMessage, c domainBot.Classification) {
	var err error
	if c.MatchType == domainBot.MatchMedia {
		err = service.dispatchMedia(ctx, msg.ChatJID, c.MediaPath, "")
	} else {
		err = service.dispatchText(ctx, msg.ChatJID, c.Response)
	}
	if err != nil {
		logrus.WithError(err).Errorf("[BOT] Reply to %s failed after retry, escalating", msg.ChatJID)
		service.pendings.AddWithFailure(msg.ChatJID, msg.Text, msg.PushName, "send failed: "+err.Error())
		return
	}

	logrus.Infof("[BOT] Replied to %s via %s match on %q", msg.ChatJID, c.MatchType, c.Trigger)
	if service.observer != nil {
		service.observer.Notify("BOT_REPLY", "Automated reply sent", map[string]any{
			"chat_jid":   msg.ChatJID,
			"match_type": c.MatchType,
			"trigger":    c.Trigger,
		})
	}
}

// fallbackToAI consults the generative provider. A generated answer is both
// sent and escalated so an operator can review it and teach the store; any
// provider failure escalates without replying.
func (service *serviceBot) fallbackToAI(ctx context.Context, msg domainSession.InboundMessage, text string) {
	if service.ai == nil {
		service.pendings.Add(msg.ChatJID, msg.Text, msg.PushName)
		return
	}

	aiCtx := ctx
	if service.cfg.AITimeout > 0 {
		var cancel context.CancelFunc
		aiCtx, cancel = context.WithTimeout(ctx, service.cfg.AITimeout)
		defer cancel()
	}

	response, err := service.ai.GenerateResponse(aiCtx, text)
	if err != nil || strings.TrimSpace(response) == "" {
		reason := "ai returned empty response"
		if err != nil {
			reason = "ai failed: " + err.Error()
		}
		logrus.Warnf("[BOT] AI fallback for %s failed: %s", msg.ChatJID, reason)
		service.pendings.AddWithFailure(msg.ChatJID, msg.Text, msg.PushName, reason)
		return
	}

	outbound := response
	if service.cfg.AITag != "" {
		outbound = service.cfg.AITag + response
	}
	if err := service.dispatchText(ctx, msg.ChatJID, outbound); err != nil {
		logrus.WithError(err).Errorf("[BOT] AI reply to %s failed after retry, escalating", msg.ChatJID)
		service.pendings.AddWithFailure(msg.ChatJID, msg.Text, msg.PushName, "send failed: "+err.Error())
		return
	}

	logrus.Infof("[BOT] AI answered %s, queued for operator review", msg.ChatJID)
	// La respuesta generada también pasa por un operador: si la aprueba con
	// !answer, queda aprendida.
	service.pendings.Add(msg.ChatJID, msg.Text, msg.PushName)
	if service.observer != nil {
		service.observer.Notify("BOT_AI_REPLY", "AI-generated reply sent, pending review", map[string]any{
			"chat_jid": msg.ChatJID,
		})
	}
}

// dispatchText tries the primary sender and, on failure, retries once through
// the alternate handle when one is wired.
func (service *serviceBot) dispatchText(ctx context.Context, chatJID, text string) error {
	err := service.sender.SendMessage(ctx, chatJID, text)
	if err == nil {
		return nil
	}
	if service.altSender != nil {
		logrus.WithError(err).Warnf("[BOT] Primary send to %s failed, retrying via alternate sender", chatJID)
		if retryErr := service.altSender.SendMessage(ctx, chatJID, text); retryErr == nil {
			return nil
		}
	}
	return err
}

func (service *serviceBot) dispatchMedia(ctx context.Context, chatJID, path, caption string) error {
	err := service.sender.SendMedia(ctx, chatJID, path, caption)
	if err == nil {
		return nil
	}
	if service.altSender != nil {
		logrus.WithError(err).Warnf("[BOT] Primary media send to %s failed, retrying via alternate sender", chatJID)
		if retryErr := service.altSender.SendMedia(ctx, chatJID, path, caption); retryErr == nil {
			return nil
		}
	}
	return err
}

func (service *serviceBot) isAdmin(senderJID string) bool {
	if service.cfg.AdminJID == "" {
		return false
	}
	// FormatJID descarta el sufijo de dispositivo, así cualquier dispositivo
	// vinculado del admin cuenta.
	return utils.FormatJID(senderJID).String() == utils.FormatJID(service.cfg.AdminJID).String()
}
