package schema

// EventType defines the category of an event delivered to the engine.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventTick
	EventResponse
)

// EventHeader is the common metadata attached to every event.
type EventHeader struct {
	Type    EventType
	Seq     uint64
	TsEvent int64
	TsRecv  int64
}

// NewHeader builds a header for an event.
func NewHeader(eventType EventType, seq uint64, tsEvent, tsRecv int64) EventHeader {
	return EventHeader{
		Type:    eventType,
		Seq:     seq,
		TsEvent: tsEvent,
		TsRecv:  tsRecv,
	}
}
