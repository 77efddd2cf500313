package dispatch

// ChatType is the kind of chat a request came from.
type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// IsShared reports whether the chat has more members than the bot and one
// user.
func (t ChatType) IsShared() bool {
	return t == ChatGroup || t == ChatSupergroup || t == ChatChannel
}

// Operator identifies the user pressing a button or sending a command.
type Operator struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Handle      string `json:"handle,omitempty"`
}

// Chat identifies where a request came from.
type Chat struct {
	ID   int64    `json:"id"`
	Type ChatType `json:"type,omitempty"`
}

// Notice classifies the outcome of a request for the transport.
type Notice string

const (
	NoticeNone            Notice = ""
	NoticeUnauthorized    Notice = "unauthorized"
	NoticeNoActiveProcess Notice = "no_active_process"
	NoticeNotFound        Notice = "not_found"
	NoticeInvalidChoice   Notice = "invalid_choice"
	NoticeFailure         Notice = "failure"
)

// Button is one inline keyboard button.
type Button struct {
	Label string `json:"label"`
	Route string `json:"route"`
}

// Delivery is a message to send to a chat other than the current screen.
type Delivery struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// Render tells the transport what to show. An empty Text with an Alert means
// the current screen stays as it is.
type Render struct {
	Text       string     `json:"text,omitempty"`
	Menu       [][]Button `json:"menu,omitempty"`
	Alert      string     `json:"alert,omitempty"`
	Notice     Notice     `json:"notice,omitempty"`
	Deliveries []Delivery `json:"deliveries,omitempty"`
}

func screen(text string, menu [][]Button) Render {
	return Render{Text: text, Menu: menu}
}

func reply(text string) Render {
	return Render{Text: text}
}

func alert(notice Notice, text string) Render {
	return Render{Alert: text, Notice: notice}
}
