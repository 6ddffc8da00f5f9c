package ws

// Event types on the session channel.
const (
	TypeMessage          = "message"
	TypeLocationResponse = "location_response"
	TypeReply            = "reply"
	TypeResults          = "results"
	TypeLocationRequest  = "location_request"
	TypeNotice           = "notice"
)

// inbound is any client event.
type inbound struct {
	Type      string   `json:"type"`
	Content   string   `json:"content,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
}

// outbound is any server event. Only the fields of its type are set.
type outbound struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}
