// Package card turns classified notifications into Microsoft Teams Adaptive
// Card documents.
//
// The formatter decides colour, title, and text per message family; the
// document builder wraps that card data in the fixed Teams attachment
// envelope. Formatting is deterministic: the same input always yields the
// same document, byte for byte.
package card

import (
	"encoding/json"

	"cardcast/internal/types"
)

const (
	// cardContentType is the attachment content type Teams requires for
	// Adaptive Cards.
	cardContentType = "application/vnd.microsoft.card.adaptive"

	// cardSchema is the Adaptive Card JSON schema URL.
	cardSchema = "http://adaptivecards.io/schemas/adaptive-card.json"

	// cardVersion is the Adaptive Card schema version the documents target.
	cardVersion = "1.5"
)

// Message is the top-level Teams webhook payload.
type Message struct {
	Type        string       `json:"type"` // "message"
	Attachments []Attachment `json:"attachments"`
}

// Attachment wraps an Adaptive Card for Teams delivery.
type Attachment struct {
	ContentType string       `json:"contentType"`
	Content     AdaptiveCard `json:"content"`
}

// AdaptiveCard is the Microsoft Adaptive Card structure.
type AdaptiveCard struct {
	Schema  string      `json:"$schema"`
	Type    string      `json:"type"`    // "AdaptiveCard"
	Version string      `json:"version"` // "1.5"
	Body    []TextBlock `json:"body"`
}

// TextBlock is an Adaptive Card text element. The title block sets Weight,
// Size, and Color; the body block sets only Wrap. One struct covers both
// shapes via omitempty.
type TextBlock struct {
	Type   string       `json:"type"` // "TextBlock"
	Text   string       `json:"text"`
	Weight string       `json:"weight,omitempty"` // "Bolder"
	Size   string       `json:"size,omitempty"`   // "Medium"
	Color  types.Colour `json:"color,omitempty"`
	Wrap   bool         `json:"wrap,omitempty"`
}

// BuildDocument wraps card data in the Teams attachment envelope: a single
// Adaptive Card with a coloured title block and a wrapped text block. An
// empty colour renders as Default.
func BuildDocument(data types.CardData) Message {
	colour := data.Colour
	if colour == "" {
		colour = types.ColourDefault
	}

	return Message{
		Type: "message",
		Attachments: []Attachment{
			{
				ContentType: cardContentType,
				Content: AdaptiveCard{
					Schema:  cardSchema,
					Type:    "AdaptiveCard",
					Version: cardVersion,
					Body: []TextBlock{
						{
							Type:   "TextBlock",
							Text:   data.Title,
							Weight: "Bolder",
							Size:   "Medium",
							Color:  colour,
						},
						{
							Type: "TextBlock",
							Text: data.Text,
							Wrap: true,
						},
					},
				},
			},
		},
	}
}

// Encode serializes the document for the webhook POST body.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
