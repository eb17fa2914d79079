package anthropic

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteEvent serializes one SSE event in the Messages streaming format:
// a named "event:" line followed by a "data:" line carrying the JSON
// payload, per the protocol's named-event convention (distinct from the
// flat chunked JSON OpenAI's dialect uses).
func WriteEvent(w io.Writer, ev Event) error {
	body, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, body)
	return err
}
