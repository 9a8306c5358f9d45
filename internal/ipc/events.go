package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned when an event tag is not one of the known kinds.
var ErrUnknownEvent = errors.New("unknown event")

// Event names a server-pushed event. The set is closed: decoding an
// unrecognized tag fails instead of producing a new value.
type Event string

// Known events.
const (
	EventCurrentUserUpdate     Event = "CURRENT_USER_UPDATE"
	EventGuildStatus           Event = "GUILD_STATUS"
	EventGuildCreate           Event = "GUILD_CREATE"
	EventChannelCreate         Event = "CHANNEL_CREATE"
	EventRelationshipUpdate    Event = "RELATIONSHIP_UPDATE"
	EventVoiceChannelSelect    Event = "VOICE_CHANNEL_SELECT"
	EventVoiceStateCreate      Event = "VOICE_STATE_CREATE"
	EventVoiceStateDelete      Event = "VOICE_STATE_DELETE"
	EventVoiceStateUpdate      Event = "VOICE_STATE_UPDATE"
	EventVoiceSettingsUpdate   Event = "VOICE_SETTINGS_UPDATE"
	EventVoiceSettingsUpdate2  Event = "VOICE_SETTINGS_UPDATE_2"
	EventVoiceConnectionStatus Event = "VOICE_CONNECTION_STATUS"
	EventSpeakingStart         Event = "SPEAKING_START"
	EventSpeakingStop          Event = "SPEAKING_STOP"
	EventGameJoin              Event = "GAME_JOIN"
	EventGameSpectate          Event = "GAME_SPECTATE"
	EventActivityJoin          Event = "ACTIVITY_JOIN"
	EventActivityJoinRequest   Event = "ACTIVITY_JOIN_REQUEST"
	EventActivitySpectate      Event = "ACTIVITY_SPECTATE"
	EventActivityInvite        Event = "ACTIVITY_INVITE"
	EventNotificationCreate    Event = "NOTIFICATION_CREATE"
	EventMessageCreate         Event = "MESSAGE_CREATE"
	EventMessageUpdate         Event = "MESSAGE_UPDATE"
	EventMessageDelete         Event = "MESSAGE_DELETE"
	EventLobbyDelete           Event = "LOBBY_DELETE"
	EventLobbyUpdate           Event = "LOBBY_UPDATE"
	EventLobbyMemberConnect    Event = "LOBBY_MEMBER_CONNECT"
	EventLobbyMemberDisconnect Event = "LOBBY_MEMBER_DISCONNECT"
	EventLobbyMemberUpdate     Event = "LOBBY_MEMBER_UPDATE"
	EventLobbyMessage          Event = "LOBBY_MESSAGE"
	EventCaptureShortcutChange Event = "CAPTURE_SHORTCUT_CHANGE"
	EventOverlay               Event = "OVERLAY"
	EventOverlayUpdate         Event = "OVERLAY_UPDATE"
	EventEntitlementCreate     Event = "ENTITLEMENT_CREATE"
	EventEntitlementDelete     Event = "ENTITLEMENT_DELETE"
	EventUserAchievementUpdate Event = "USER_ACHIEVEMENT_UPDATE"
	EventReady                 Event = "READY"
	EventError                 Event = "ERROR"
)

var allEvents = []Event{
	EventCurrentUserUpdate,
	EventGuildStatus,
	EventGuildCreate,
	EventChannelCreate,
	EventRelationshipUpdate,
	EventVoiceChannelSelect,
	EventVoiceStateCreate,
	EventVoiceStateDelete,
	EventVoiceStateUpdate,
	EventVoiceSettingsUpdate,
	EventVoiceSettingsUpdate2,
	EventVoiceConnectionStatus,
	EventSpeakingStart,
	EventSpeakingStop,
	EventGameJoin,
	EventGameSpectate,
	EventActivityJoin,
	EventActivityJoinRequest,
	EventActivitySpectate,
	EventActivityInvite,
	EventNotificationCreate,
	EventMessageCreate,
	EventMessageUpdate,
	EventMessageDelete,
	EventLobbyDelete,
	EventLobbyUpdate,
	EventLobbyMemberConnect,
	EventLobbyMemberDisconnect,
	EventLobbyMemberUpdate,
	EventLobbyMessage,
	EventCaptureShortcutChange,
	EventOverlay,
	EventOverlayUpdate,
	EventEntitlementCreate,
	EventEntitlementDelete,
	EventUserAchievementUpdate,
	EventReady,
	EventError,
}

var knownEvents = func() map[Event]struct{} {
	m := make(map[Event]struct{}, len(allEvents))
	for _, ev := range allEvents {
		m[ev] = struct{}{}
	}
	return m
}()

// Events returns every known event in declaration order.
func Events() []Event {
	return append([]Event(nil), allEvents...)
}

// ParseEvent maps a wire tag to its Event.
func ParseEvent(s string) (Event, error) {
	ev := Event(s)
	if !ev.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
	}
	return ev, nil
}

// Valid reports whether e is a known event.
func (e Event) Valid() bool {
	_, ok := knownEvents[e]
	return ok
}

func (e Event) String() string {
	return string(e)
}

// UnmarshalJSON rejects tags outside the known set.
func (e *Event) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("event tag: %w", err)
	}
	ev, err := ParseEvent(s)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}
