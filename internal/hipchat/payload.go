package hipchat

// RoomNotification is the body posted to the room notification endpoint.
type RoomNotification struct {
	Color         string `json:"color"`
	Message       string `json:"message"`
	MessageFormat string `json:"message_format"`
	Card          *Card  `json:"card,omitempty"`
}

// Card is the rich attachment rendered below a notification message.
// Description intentionally has no omitempty: an empty card text must
// serialize as an empty string.
type Card struct {
	Style       string        `json:"style"`
	URL         string        `json:"url,omitempty"`
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Thumbnail   CardThumbnail `json:"thumbnail"`
}

type CardThumbnail struct {
	URL string `json:"url"`
}
