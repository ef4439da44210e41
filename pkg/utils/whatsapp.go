package utils

import (
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
)

func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, "@g.us")
}

// FormatJID normalizes a JID string into a types.JID, stripping any device
// part (user:agent@server -> user@server).
func FormatJID(jid string) types.JID {
	if !strings.ContainsRune(jid, '@') {
		jid += "@s.whatsapp.net"
	}
	parts := strings.SplitN(jid, "@", 2)
	user := strings.Split(parts[0], ":")[0]
	parsed, _ := types.ParseJID(user + "@" + parts[1])
	return parsed
}

// ExtractMessageTextFromProto pulls the plain text out of a message proto,
// unwrapping ephemeral/view-once envelopes.
func ExtractMessageTextFromProto(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	for i := 0; i < 3; i++ {
		if v := msg.GetEphemeralMessage(); v != nil && v.GetMessage() != nil {
			msg = v.GetMessage()
			continue
		}
		if v := msg.GetViewOnceMessage(); v != nil && v.GetMessage() != nil {
			msg = v.GetMessage()
			continue
		}
		if v := msg.GetViewOnceMessageV2(); v != nil && v.GetMessage() != nil {
			msg = v.GetMessage()
			continue
		}
		break
	}
	if text := msg.GetConversation(); text != "" {
		return text
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return vid.GetCaption()
	}
	return ""
}
