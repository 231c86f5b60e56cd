package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Data stream protocol (v1) part codes
const (
	DataStreamHeader  = "X-Vercel-AI-Data-Stream"
	DataStreamVersion = "v1"

	partText   = "0"
	partError  = "3"
	partFinish = "d"
	partStart  = "f"
)

// StreamWriter receives the parts of one assistant turn in order:
// Start once, Text zero or more times, at most one Error, then Finish.
type StreamWriter interface {
	Start(messageID string) error
	Text(delta string) error
	Error(message string) error
	Finish(reason string) error
}

// DataStreamWriter writes the AI SDK data stream format to an HTTP response.
// Nothing is written to the response before Start.
type DataStreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewDataStreamWriter wraps w
func NewDataStreamWriter(w http.ResponseWriter) *DataStreamWriter {
	flusher, _ := w.(http.Flusher)
	return &DataStreamWriter{w: w, flusher: flusher}
}

// Start sends the headers and the message start part
func (d *DataStreamWriter) Start(messageID string) error {
	h := d.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	h.Set(DataStreamHeader, DataStreamVersion)
	d.w.WriteHeader(http.StatusOK)

	return d.part(partStart, map[string]string{"messageId": messageID})
}

// Text sends one text delta
func (d *DataStreamWriter) Text(delta string) error {
	return d.part(partText, delta)
}

// Error sends an error part
func (d *DataStreamWriter) Error(message string) error {
	return d.part(partError, message)
}

// Finish sends the finish message part
func (d *DataStreamWriter) Finish(reason string) error {
	return d.part(partFinish, map[string]string{"finishReason": reason})
}

func (d *DataStreamWriter) part(code string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(d.w, "%s:%s\n", code, payload); err != nil {
		return err
	}
	if d.flusher != nil {
		d.flusher.Flush()
	}
	return nil
}
