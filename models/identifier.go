package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Summary is the embedded form some payloads use in place of a bare id.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Identifier is a reference that arrives either as a bare string id or as an
// embedded Summary object. ID is always set after decoding; Summary only
// when the payload carried the object form.
type Identifier struct {
	ID      string
	Summary *Summary
}

// Ref wraps a bare id.
func Ref(id string) Identifier {
	return Identifier{ID: id}
}

func (i Identifier) MarshalJSON() ([]byte, error) {
	if i.Summary != nil {
		return json.Marshal(i.Summary)
	}
	return json.Marshal(i.ID)
}

func (i *Identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*i = Identifier{}
		return nil
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*i = Identifier{ID: id}
		return nil
	case data[0] == '{':
		var obj struct {
			ID    string `json:"id"`
			OID   string `json:"_id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		id := obj.ID
		if id == "" {
			id = obj.OID
		}
		if id == "" {
			return fmt.Errorf("identifier object without id: %s", data)
		}
		*i = Identifier{ID: id, Summary: &Summary{ID: id, Name: obj.Name, Email: obj.Email}}
		return nil
	default:
		return fmt.Errorf("identifier must be a string or an object, got %s", data)
	}
}
