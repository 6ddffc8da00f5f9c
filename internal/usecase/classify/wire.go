package classify

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Discriminator values of the "function" field.
const (
	FunctionReply  = "reply_to_user"
	FunctionSearch = "search_entities"
	FunctionLegacy = "search_query"
)

// envelope is the raw model output. Only "function" is mandatory; the rest
// depends on which function was chosen.
type envelope struct {
	Function *string `json:"function"`

	// reply_to_user
	Message string `json:"message"`

	// search_entities
	SearchType       string                `json:"search_type"`
	SearchText       string                `json:"search_text"`
	LocationRequired flexBool              `json:"location_required"`
	Entities         map[string]wireEntity `json:"entities"`

	// search_query
	Query string  `json:"query"`
	City  string  `json:"city"`
	Limit flexInt `json:"limit"`
}

type wireEntity struct {
	Enabled    flexBool `json:"enabled"`
	Query      string   `json:"query"`
	RoleFilter string   `json:"role_filter"`
}

// flexBool accepts true/false or the strings "true"/"false".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err //nolint:wrapcheck // decoder adds context
	}
	*b = flexBool(strings.EqualFold(strings.TrimSpace(s), "true"))
	return nil
}

// flexInt accepts a number or a numeric string. Zero means absent.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = flexInt(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err //nolint:wrapcheck // decoder adds context
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err //nolint:wrapcheck // decoder adds context
	}
	*n = flexInt(v)
	return nil
}
