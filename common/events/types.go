package events

const (
	// Streams
	ChatEventsStream = "CHAT_EVENTS"

	// Events
	MessagePosted      = "events.chat.messagePosted"
	MembershipChanged  = "events.chat.membershipChanged"
	AnnouncementPosted = "events.chat.announcementPosted"
	WatermarkAdvanced  = "events.chat.watermarkAdvanced"

	// Event Wildcards
	ChatEventsWildcard = "events.chat.*"
)
