package events

import (
	"encoding/json"
	"fmt"
	"sync"
)

// EventCodec decodes a JSON payload into a concrete Event instance.
type EventCodec func([]byte) (Event, error)

var (
	registryMu sync.RWMutex
	decoders   = map[string]EventCodec{}
)

// RegisterEventCodec registers a decoder for an event type name. Renderers that publish their own
// events through the same router use it to make them decodable by NewEventFromJson.
func RegisterEventCodec(typeName string, dec EventCodec) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := decoders[typeName]; exists {
		return fmt.Errorf("decoder already registered for type %q", typeName)
	}
	decoders[typeName] = dec
	return nil
}

// RegisterEventFactory registers a decoder based on json.Unmarshal. The factory returns a pointer to
// a zero-value event struct.
func RegisterEventFactory(typeName string, factory func() Event) error {
	return RegisterEventCodec(typeName, func(b []byte) (Event, error) {
		ev := factory()
		if err := json.Unmarshal(b, ev); err != nil {
			return nil, err
		}
		return ev, nil
	})
}

func lookupDecoder(typeName string) EventCodec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return decoders[typeName]
}
