package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
)

// Envelope is the wire form of a published event
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventSerializer converts domain events to and from JSON envelopes
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewEventSerializer creates a serializer that knows the ledger event types
func NewEventSerializer() *EventSerializer {
	s := &EventSerializer{registry: make(map[string]reflect.Type)}
	s.Register(ledger.EventTypeTransactionCommitted, &ledger.TransactionCommittedEvent{})
	s.Register(ledger.EventTypeTransactionVoided, &ledger.TransactionVoidedEvent{})
	s.Register(ledger.EventTypeStockLevelChanged, &ledger.StockLevelChangedEvent{})
	s.Register(ledger.EventTypeBalanceChanged, &ledger.BalanceChangedEvent{})
	return s
}

// Register registers an event type for deserialization
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[eventType] = t
}

// Serialize wraps event in an Envelope and encodes it
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return json.Marshal(Envelope{Type: event.EventType(), Data: data})
}

// Deserialize decodes an Envelope back into its registered event type
func (s *EventSerializer) Deserialize(payload []byte) (shared.DomainEvent, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	s.mu.RLock()
	t, ok := s.registry[env.Type]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", env.Type)
	}

	eventPtr := reflect.New(t).Interface()
	if err := json.Unmarshal(env.Data, eventPtr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event %s: %w", env.Type, err)
	}
	event, ok := eventPtr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("type %s does not implement DomainEvent", t)
	}
	return event, nil
}

// RegisteredTypes returns all registered event types, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
