package search

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCursor marks a cursor that cannot be decoded at all. A cursor
// that decodes but belongs to a different sort mode is not an error; it is
// silently dropped and the query restarts from the first page.
var ErrInvalidCursor = errors.New("search: invalid cursor")

// cursor pins the position after the last row of a page. The tuple layout
// depends on the sort mode, so the mode travels inside the cursor and is
// checked on the way back in.
type cursor struct {
	Sort  string    `json:"s"`
	Tuple []float64 `json:"t"`
	ID    string    `json:"id"`
}

func encodeCursor(c cursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

func decodeCursor(raw string) (cursor, error) {
	var c cursor
	data, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.Sort == "" || c.ID == "" {
		return c, fmt.Errorf("%w: missing fields", ErrInvalidCursor)
	}
	return c, nil
}
