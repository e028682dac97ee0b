package pkg

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexibleID id accepted as JSON string or JSON number, always kept as its decimal/string form
type FlexibleID string

// UnmarshalJSON accept "12", 12 and null
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}

// String plain id
func (f FlexibleID) String() string {
	return string(f)
}

// Ptr nil when empty
func (f FlexibleID) Ptr() *string {
	if f == "" {
		return nil
	}
	s := string(f)
	return &s
}
