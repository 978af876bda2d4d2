package event

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/BurntSushi/toml"
)

// wireEvent is the on-the-wire/on-disk shape of a single event: an
// `[[events]]` TOML block, or the equivalent JSON object for POST /logs
// (spec §6). event_type carries the raw string so legacy "Modify(Any)"
// round-trips without Kind ever needing to know about it. Time is encoded
// as milliseconds since the Unix epoch (spec §3, §6; original_source's
// `Event.time: i64`), not a TOML/JSON datetime — a bare integer is what
// both the spec's documented log format and the original renderer emit.
type wireEvent struct {
	EventType string `toml:"event_type" json:"event_type"`
	Path      string `toml:"path" json:"path"`
	Time      int64  `toml:"time" json:"time"`
}

// wireDoc is the top-level document: a single `events` array of tables,
// matching spec.md §6's example byte for byte.
type wireDoc struct {
	Events []wireEvent `toml:"events" json:"events"`
}

func toWire(b Batch) wireDoc {
	doc := wireDoc{Events: make([]wireEvent, 0, len(b))}
	for _, e := range b {
		doc.Events = append(doc.Events, wireEvent{
			EventType: e.Kind.String(),
			Path:      e.Path,
			Time:      e.Time.UnixMilli(),
		})
	}

	return doc
}

func fromWire(doc wireDoc) (Batch, error) {
	batch := make(Batch, 0, len(doc.Events))
	for _, we := range doc.Events {
		kind, err := ParseKind(we.EventType)
		if err != nil {
			return nil, err
		}

		batch = append(batch, Event{Kind: kind, Path: we.Path, Time: time.UnixMilli(we.Time).UTC()})
	}

	return batch, nil
}

// EncodeTOML renders a batch as a TOML document of `[[events]]` blocks,
// the format ChangeLog, HistoryLog, and AuthoritativeLog are persisted in
// and GET /logs responds with (spec.md §6).
func EncodeTOML(b Batch) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(toWire(b)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeTOML parses a TOML events document. Per spec.md §7 ("Malformed log
// file"), input that fails to parse yields an empty batch and a nil error
// rather than propagating the decode error — a corrupt log is treated as
// an empty one, not a fatal condition.
func DecodeTOML(data []byte) (Batch, error) {
	var doc wireDoc
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return Batch{}, nil
	}

	batch, err := fromWire(doc)
	if err != nil {
		return Batch{}, nil
	}

	return batch, nil
}

// EncodeJSON renders a batch as the JSON body POST /logs sends (spec §6).
func EncodeJSON(b Batch) ([]byte, error) {
	return json.Marshal(toWire(b))
}

// DecodeJSON parses a POST /logs JSON body. Malformed input is treated the
// same as DecodeTOML: empty batch, nil error.
func DecodeJSON(data []byte) (Batch, error) {
	var doc wireDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Batch{}, nil
	}

	batch, err := fromWire(doc)
	if err != nil {
		return Batch{}, nil
	}

	return batch, nil
}
