package events

type Type string

const (
	TypeImportItem    Type = "import.item"
	TypeImportPage    Type = "import.page"
	TypeBacklogUpdate Type = "backlog.update"
	TypeBacklogDelete Type = "backlog.delete"
)

// Event is the single wire shape both transports broadcast, one JSON object
// per line on TCP and one text message per event on WebSocket.
type Event struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload,omitempty"`
}
