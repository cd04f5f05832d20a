package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/hookrelay/pkg/pg"
)

// PgRepository implements Repository on a pgx connection pool.
type PgRepository struct {
	db *pgxpool.Pool
}

// NewPgRepository wraps an established pool.
func NewPgRepository(db *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) MessageByID(ctx context.Context, msgID string) (*Message, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, app_id, org_id, uid, event_type, channels, payload, created_at
		FROM message
		WHERE id = $1`, msgID)

	var m Message
	err := row.Scan(&m.ID, &m.AppID, &m.OrgID, &m.UID, &m.EventType, &m.Channels, &m.Payload, &m.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, msgID)
	}
	if err != nil {
		return nil, fmt.Errorf("load message %s: %w", msgID, err)
	}
	return &m, nil
}

func (r *PgRepository) ApplicationByID(ctx context.Context, appID, orgID string) (*Application, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, org_id, uid
		FROM application
		WHERE id = $1 AND org_id = $2`, appID, orgID)

	var a Application
	err := row.Scan(&a.ID, &a.OrgID, &a.UID)
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, appID)
	}
	if err != nil {
		return nil, fmt.Errorf("load application %s: %w", appID, err)
	}
	return &a, nil
}

func (r *PgRepository) EndpointsByApp(ctx context.Context, appID string) ([]Endpoint, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, app_id, uid, url, headers, key, old_signing_keys,
		       filter_types, channels, disabled, first_failure_at
		FROM endpoint
		WHERE app_id = $1 AND deleted = false
		ORDER BY id`, appID)
	if err != nil {
		return nil, fmt.Errorf("list endpoints of %s: %w", appID, err)
	}
	defer rows.Close()

	var endpoints []Endpoint
	for rows.Next() {
		var e Endpoint
		if err := rows.Scan(&e.ID, &e.AppID, &e.UID, &e.URL, &e.Headers, &e.Key,
			&e.OldSigningKeys, &e.FilterTypes, &e.Channels, &e.Disabled, &e.FirstFailureAt); err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

func (r *PgRepository) DestinationByMsgAndEndpoint(ctx context.Context, msgID, endpointID string) (*MessageDestination, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, msg_id, endp_id, status, next_attempt, created_at
		FROM messagedestination
		WHERE msg_id = $1 AND endp_id = $2`, msgID, endpointID)

	var d MessageDestination
	err := row.Scan(&d.ID, &d.MsgID, &d.EndpointID, &d.Status, &d.NextAttempt, &d.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s %s", ErrDestinationNotFound, msgID, endpointID)
	}
	if err != nil {
		return nil, fmt.Errorf("load destination %s %s: %w", msgID, endpointID, err)
	}
	return &d, nil
}

func (r *PgRepository) InsertDestinations(ctx context.Context, dests []MessageDestination) error {
	if len(dests) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range dests {
		batch.Queue(`
			INSERT INTO messagedestination (id, msg_id, endp_id, status, next_attempt, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, d.MsgID, d.EndpointID, d.Status, d.NextAttempt, d.CreatedAt)
	}

	results := r.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range dests {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert destinations: %w", err)
		}
	}
	return nil
}

func (r *PgRepository) UpdateDestination(ctx context.Context, destID string, status MessageStatus, nextAttempt *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE messagedestination
		SET status = $2, next_attempt = $3
		WHERE id = $1`, destID, status, nextAttempt)
	if err != nil {
		return fmt.Errorf("update destination %s: %w", destID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDestinationNotFound, destID)
	}
	return nil
}

func (r *PgRepository) InsertAttempt(ctx context.Context, attempt *MessageAttempt) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO messageattempt
			(id, created_at, ended_at, msg_id, endp_id, msg_dest_id, url,
			 response_status_code, response, status, trigger_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		attempt.ID, attempt.CreatedAt, attempt.EndedAt, attempt.MsgID, attempt.EndpointID,
		attempt.MsgDestID, attempt.URL, attempt.ResponseStatusCode, attempt.Response,
		attempt.Status, attempt.Trigger)
	if err != nil {
		return fmt.Errorf("insert attempt %s: %w", attempt.ID, err)
	}
	return nil
}

func (r *PgRepository) DisableEndpoint(ctx context.Context, appID, endpointID string, firstFailureAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE endpoint
		SET disabled = true, first_failure_at = $3
		WHERE app_id = $1 AND id = $2`, appID, endpointID, firstFailureAt)
	if err != nil {
		return fmt.Errorf("disable endpoint %s: %w", endpointID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s", ErrEndpointNotFound, appID, endpointID)
	}
	return nil
}

var _ Repository = (*PgRepository)(nil)
