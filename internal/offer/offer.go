package offer

import "time"

type Channel string

const (
	ChannelChat    Channel = "chat"
	ChannelSocial  Channel = "social"
	ChannelGateway Channel = "gateway"
	ChannelSite    Channel = "site"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelChat, ChannelSocial, ChannelGateway, ChannelSite:
		return true
	}
	return false
}

// ErrorType returns the error-log tag recorded when delivery to this
// channel exhausts its retry budget, e.g. "SOCIAL_DELIVERY_FAILED".
func (c Channel) ErrorType() string {
	switch c {
	case ChannelChat:
		return "CHAT_DELIVERY_FAILED"
	case ChannelSocial:
		return "SOCIAL_DELIVERY_FAILED"
	case ChannelGateway:
		return "GATEWAY_DELIVERY_FAILED"
	case ChannelSite:
		return "SITE_DELIVERY_FAILED"
	}
	return "DELIVERY_FAILED"
}

type Urgency string

const (
	UrgencyToday     Urgency = "HOJE"
	UrgencyLastUnits Urgency = "ULTIMAS_UNIDADES"
	UrgencyLimited   Urgency = "LIMITADO"
	UrgencyNormal    Urgency = "NORMAL"
)

// Emoji maps an urgency tag to the marker prepended to outgoing copy.
// Unknown tags fall back to the NORMAL marker.
func (u Urgency) Emoji() string {
	switch u {
	case UrgencyToday:
		return "🔥"
	case UrgencyLastUnits:
		return "⚡"
	case UrgencyLimited:
		return "⏰"
	}
	return "💰"
}

// Post is a published promotional content unit. Immutable once created;
// the dispatch subsystem only ever reads it.
type Post struct {
	ID              string
	DraftID         string
	BatchID         string
	Title           string
	Copy            string
	Price           float64
	DiscountPercent int
	Urgency         Urgency
	StoreName       string
	AffiliateURL    string
	CreatedAt       time.Time
}

// Batch aggregates the posts of one daily slot. Workers mutate only the
// dispatched/error counters, and only through atomic store increments.
type Batch struct {
	ID              string
	Slot            int
	PendingCount    int
	ApprovedCount   int
	DispatchedCount int
	ErrorCount      int
	CreatedAt       time.Time
}
