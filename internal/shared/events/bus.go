package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
	"github.com/social-security/patient-office/internal/shared/config"
	"github.com/social-security/patient-office/internal/shared/types"
)

// SessionStream is the KurrentDB stream holding session events.
const SessionStream = "office-session"

// Session event types.
const (
	TypeLoginSucceeded = "session.login.succeeded"
	TypeLoginFailed    = "session.login.failed"
	TypeLogout         = "session.logout"
	TypeRestored       = "session.restored"
	TypeDiscarded      = "session.discarded"
)

// Event represents a session event
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	// Actor information
	ActorID   types.ID `json:"actor_id,omitempty"`
	ActorRole string   `json:"actor_role,omitempty"`

	Data map[string]any `json:"data,omitempty"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, data map[string]any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// WithActor sets the actor information on the event
func (e Event) WithActor(actorID types.ID, role string) Event {
	e.ActorID = actorID
	e.ActorRole = role
	return e
}

// WithCorrelation sets the correlation ID for request tracing
func (e Event) WithCorrelation(correlationID string) Event {
	e.CorrelationID = correlationID
	return e
}

// Bus publishes session events to KurrentDB
type Bus struct {
	client *esdb.Client
	stream string
}

// NewBus creates a new event bus connected to KurrentDB
func NewBus(ctx context.Context, cfg config.KurrentDBConfig) (*Bus, error) {
	settings, err := esdb.ParseConnectionString(buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create KurrentDB client: %w", err)
	}

	return &Bus{client: client, stream: SessionStream}, nil
}

// buildConnectionString creates the esdb:// connection string
func buildConnectionString(cfg config.KurrentDBConfig) string {
	var auth string
	if cfg.Username != "" && cfg.Password != "" {
		auth = fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
	}

	params := ""
	if cfg.Insecure {
		params = "?tls=false&tlsVerifyCert=false&keepAliveInterval=10000&keepAliveTimeout=10000"
	}

	return fmt.Sprintf("esdb://%s%s:%d%s", auth, cfg.Host, cfg.Port, params)
}

// Publish appends an event to the session stream
func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}

	_, err = b.client.AppendToStream(ctx, b.stream, esdb.AppendToStreamOptions{
		ExpectedRevision: esdb.Any{},
	}, esdb.EventData{
		EventType:   event.Type,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		EventID:     eventID,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Recent reads the session stream backwards.
func (b *Bus) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		return []Event{}, nil
	}

	stream, err := b.client.ReadStream(ctx, b.stream, esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}, uint64(limit))
	if err != nil {
		if isStreamNotFound(err) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("failed to read session stream: %w", err)
	}
	defer stream.Close()

	return collectEvents(stream, limit)
}

type eventReceiver interface {
	Recv() (*esdb.ResolvedEvent, error)
}

// collectEvents drains stream until io.EOF. Events that do not decode are
// skipped; any other receive error aborts the read.
func collectEvents(stream eventReceiver, limit int) ([]Event, error) {
	result := make([]Event, 0, limit)
	for {
		resolved, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			if len(result) == 0 && isStreamNotFound(err) {
				return []Event{}, nil
			}
			return nil, fmt.Errorf("failed to read session stream: %w", err)
		}
		if resolved == nil || resolved.Event == nil {
			continue
		}

		event, err := recordedEventToEvent(resolved.Event)
		if err != nil {
			continue
		}
		result = append(result, event)
	}
}

func isStreamNotFound(err error) bool {
	esdbErr, _ := esdb.FromError(err)
	return esdbErr != nil && esdbErr.Code() == esdb.ErrorCodeResourceNotFound
}

// recordedEventToEvent converts a KurrentDB event to our Event type
func recordedEventToEvent(recorded *esdb.RecordedEvent) (Event, error) {
	var event Event
	if err := json.Unmarshal(recorded.Data, &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.ID == "" {
		event.ID = recorded.EventID.String()
	}

	return event, nil
}

// Close closes the event bus connection
func (b *Bus) Close() {
	if b.client != nil {
		b.client.Close()
	}
}

// Health checks the KurrentDB connection
func (b *Bus) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := b.client.ReadStream(ctx, "$streams", esdb.ReadStreamOptions{
		From:      esdb.Start{},
		Direction: esdb.Forwards,
	}, 1)
	if err != nil {
		return fmt.Errorf("KurrentDB health check failed: %w", err)
	}
	defer stream.Close()

	return nil
}
