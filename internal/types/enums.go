package types

// Colour is a card accent palette value. The values are emitted verbatim as
// the card's TextBlock color, so casing is part of the wire contract.
type Colour string

const (
	ColourGood      Colour = "Good"
	ColourAttention Colour = "Attention"
	ColourWarning   Colour = "Warning"
	ColourDefault   Colour = "Default"
)

// Valid reports whether c is one of the recognized palette values.
func (c Colour) Valid() bool {
	switch c {
	case ColourGood, ColourAttention, ColourWarning, ColourDefault:
		return true
	}
	return false
}

// MessageKind identifies the classification branch selected for an inbound
// record. Exactly one branch is chosen per record.
type MessageKind string

const (
	KindAlarm   MessageKind = "alarm"
	KindAudit   MessageKind = "audit"
	KindGeneric MessageKind = "generic"
)

// DeliveryStatus enumerates all valid outcomes of a webhook delivery attempt.
// Delivery is best-effort: "failed" is a terminal, acknowledged state, never
// a signal for the event source to redeliver.
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)
