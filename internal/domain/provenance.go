package domain

// Inbound — происхождение входящего сообщения: обычный текст или пересылка из канала.
type Inbound interface {
	isInbound()
}

// PlainMessage — сообщение без признаков пересылки из канала (копия, пересылка от пользователя или из группы).
type PlainMessage struct{}

// ChannelForward описывает подлинную пересылку поста канала.
type ChannelForward struct {
	ChannelID       int64
	ChannelUsername string
	MessageID       int64
}

func (PlainMessage) isInbound()   {}
func (ChannelForward) isInbound() {}
