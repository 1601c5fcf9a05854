package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxyz/agentworld/pkg/database"
	"github.com/voxyz/agentworld/pkg/models"
)

// EventService records significant state transitions and serves the
// announcement queue consumed by the ingress adapter.
type EventService struct {
	client *database.Client
}

// NewEventService creates a new EventService.
func NewEventService(client *database.Client) *EventService {
	return &EventService{client: client}
}

// Emit appends one event row.
func (s *EventService) Emit(ctx context.Context, eventType string, severity models.EventSeverity, description, data string) (*models.Event, error) {
	if eventType == "" {
		return nil, NewValidationError("event_type", "required")
	}
	if severity == "" {
		severity = models.SeverityInfo
	}

	var e models.Event
	err := s.client.DB().QueryRowContext(ctx, `
		INSERT INTO events (id, event_type, severity, description, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, event_type, severity, description, data, processed, created_at`,
		uuid.New().String(), eventType, severity, description, data).
		Scan(&e.ID, &e.EventType, &e.Severity, &e.Description, &e.Data, &e.Processed, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to emit event: %w", err)
	}
	return &e, nil
}

// ListUnprocessed returns unprocessed events oldest first.
func (s *EventService) ListUnprocessed(ctx context.Context, limit int) ([]*models.Event, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT id, event_type, severity, description, data, processed, created_at
		FROM events
		WHERE processed = FALSE
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.EventType, &e.Severity, &e.Description, &e.Data, &e.Processed, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// MarkProcessed flags an event as announced.
func (s *EventService) MarkProcessed(ctx context.Context, eventID string) error {
	_, err := s.client.DB().ExecContext(ctx,
		`UPDATE events SET processed = TRUE WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// CountSince returns event counts by severity since the cutoff. Input to
// the daily summary.
func (s *EventService) CountSince(ctx context.Context, since time.Time) (map[models.EventSeverity]int, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT severity, COUNT(*)
		FROM events
		WHERE created_at >= $1
		GROUP BY severity`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	out := make(map[models.EventSeverity]int)
	for rows.Next() {
		var sev models.EventSeverity
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		out[sev] = n
	}
	return out, rows.Err()
}

// CountTypeSince returns how many events of a type occurred since the
// cutoff. Guards once-per-day jobs like the cost alert.
func (s *EventService) CountTypeSince(ctx context.Context, eventType string, since time.Time) (int, error) {
	var n int
	err := s.client.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events
		WHERE event_type = $1 AND created_at >= $2`, eventType, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count events by type: %w", err)
	}
	return n, nil
}
