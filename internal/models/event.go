package models

// TextEvent is an already decoded and verified text message from a channel.
type TextEvent struct {
	UserID     string `json:"user_id"`
	ReplyToken string `json:"reply_token"`
	Text       string `json:"text"`
}

// AudioEvent is a voice message; the content itself is fetched by the channel adapter.
type AudioEvent struct {
	UserID     string `json:"user_id"`
	ReplyToken string `json:"reply_token"`
	MessageID  string `json:"message_id"`
	// FileName carries the extension the transcription service uses to detect the format.
	FileName string `json:"file_name"`
}
