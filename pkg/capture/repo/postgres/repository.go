// Package postgres implements capture.Repository on PostgreSQL via pgx.
// Conditional state and visibility changes are single guarded UPDATE
// statements so concurrent moderators cannot double-apply a transition.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/incridea/capture-pipeline/pkg/capture"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements capture.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) capture.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) capture.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", capture.ErrConflict, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: referenced record not found", capture.ErrCaptureNotFound)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: required field %s is missing", capture.ErrValidation, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// qualify prefixes each column in a comma-separated list, for joined queries.
func qualify(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return " " + strings.Join(parts, ", ") + " "
}

const captureColumns = `
	id, event_name, event_category, original_path, compressed_path,
	thumbnail_path, upload_type, state, visibility, author_id,
	created_at, updated_at`

func scanCapture(row pgx.Row) (*capture.Capture, error) {
	var c capture.Capture
	err := row.Scan(
		&c.ID, &c.EventName, &c.EventCategory, &c.OriginalPath, &c.CompressedPath,
		&c.ThumbnailPath, &c.UploadType, &c.State, &c.Visibility, &c.AuthorID,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Capture operations

func (r *Repository) CreateCapture(ctx context.Context, c *capture.Capture) error {
	query := `
		INSERT INTO captures (
			id, event_name, event_category, original_path, compressed_path,
			thumbnail_path, upload_type, state, visibility, author_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.EventName, c.EventCategory, c.OriginalPath, c.CompressedPath,
		c.ThumbnailPath, c.UploadType, c.State, c.Visibility, c.AuthorID,
		c.CreatedAt, c.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create capture", err)
	}

	return nil
}

func (r *Repository) GetCapture(ctx context.Context, id uuid.UUID) (*capture.Capture, error) {
	query := `SELECT` + captureColumns + `FROM captures WHERE id = $1`

	c, err := scanCapture(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, capture.ErrCaptureNotFound
		}
		return nil, r.handlePostgresError("get capture", err)
	}

	return c, nil
}

func (r *Repository) ListCaptures(ctx context.Context, filter capture.CaptureFilter) ([]*capture.Capture, error) {
	query := `SELECT` + qualify(captureColumns, "c.") + `FROM captures c`
	var args []interface{}
	var conds []string

	if filter.Day != "" {
		query += ` JOIN events e ON lower(e.name) = lower(c.event_name)`
		args = append(args, filter.Day)
		conds = append(conds, fmt.Sprintf("e.day = $%d", len(args)))
	}
	if !filter.AdminScope {
		conds = append(conds, "c.state = 'approved'", "c.visibility = 'active'")
	}
	if filter.EventName != "" {
		args = append(args, "%"+filter.EventName+"%")
		conds = append(conds, fmt.Sprintf("c.event_name ILIKE $%d", len(args)))
	}
	if filter.EventCategory != "" {
		args = append(args, filter.EventCategory)
		conds = append(conds, fmt.Sprintf("c.event_category = $%d", len(args)))
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY c.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list captures", err)
	}
	defer rows.Close()

	var out []*capture.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) SetCaptureState(ctx context.Context, id uuid.UUID, from, to capture.CaptureState) (*capture.Capture, error) {
	// The state guard lives in the WHERE clause so a lost race surfaces as
	// zero rows instead of a double transition. Rejection forces the
	// visibility flag off in the same statement.
	query := `
		UPDATE captures
		SET state = $3,
		    visibility = CASE WHEN $3 = 'rejected' THEN 'inactive' ELSE visibility END,
		    updated_at = NOW()
		WHERE id = $1 AND state = $2
		RETURNING` + captureColumns

	c, err := scanCapture(r.db.QueryRow(ctx, query, id, from, to))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.explainStateFailure(ctx, id, from)
		}
		return nil, r.handlePostgresError("set capture state", err)
	}

	return c, nil
}

// explainStateFailure distinguishes a missing row from a lost transition race.
func (r *Repository) explainStateFailure(ctx context.Context, id uuid.UUID, from capture.CaptureState) error {
	var state capture.CaptureState
	err := r.db.QueryRow(ctx, `SELECT state FROM captures WHERE id = $1`, id).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return capture.ErrCaptureNotFound
	}
	if err != nil {
		return r.handlePostgresError("get capture state", err)
	}
	return fmt.Errorf("%w: capture %s is %s, expected %s",
		capture.ErrInvalidStateTransition, id, state, from)
}

func (r *Repository) ToggleCaptureVisibility(ctx context.Context, id uuid.UUID) (*capture.Capture, error) {
	// Single guarded flip: only approved captures can change visibility, and
	// the toggle applies exactly once per statement no matter how many
	// moderators race.
	query := `
		UPDATE captures
		SET visibility = CASE visibility WHEN 'active' THEN 'inactive' ELSE 'active' END,
		    updated_at = NOW()
		WHERE id = $1 AND state = 'approved'
		RETURNING` + captureColumns

	c, err := scanCapture(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.explainVisibilityFailure(ctx, id)
		}
		return nil, r.handlePostgresError("toggle capture visibility", err)
	}

	return c, nil
}

func (r *Repository) explainVisibilityFailure(ctx context.Context, id uuid.UUID) error {
	var state capture.CaptureState
	err := r.db.QueryRow(ctx, `SELECT state FROM captures WHERE id = $1`, id).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return capture.ErrCaptureNotFound
	}
	if err != nil {
		return r.handlePostgresError("get capture state", err)
	}
	return fmt.Errorf("%w: capture %s is %s", capture.ErrCaptureNotApproved, id, state)
}

// Event operations

const eventColumns = `
	id, name, description, type, day, visibility, image_path,
	created_at, updated_at`

func scanEvent(row pgx.Row) (*capture.Event, error) {
	var e capture.Event
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Type, &e.Day, &e.Visibility,
		&e.ImagePath, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) CreateEvent(ctx context.Context, e *capture.Event) error {
	query := `
		INSERT INTO events (
			id, name, description, type, day, visibility, image_path,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		e.ID, e.Name, e.Description, e.Type, e.Day, e.Visibility,
		e.ImagePath, e.CreatedAt, e.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create event", err)
	}

	return nil
}

func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (*capture.Event, error) {
	query := `SELECT` + eventColumns + `FROM events WHERE id = $1`

	e, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, capture.ErrEventNotFound
		}
		return nil, r.handlePostgresError("get event", err)
	}

	return e, nil
}

func (r *Repository) GetEventByName(ctx context.Context, name string) (*capture.Event, error) {
	query := `SELECT` + eventColumns + `FROM events WHERE lower(name) = lower($1)`

	e, err := scanEvent(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, capture.ErrEventNotFound
		}
		return nil, r.handlePostgresError("get event by name", err)
	}

	return e, nil
}

func (r *Repository) ListEvents(ctx context.Context, filter capture.EventFilter) ([]*capture.Event, error) {
	query := `SELECT` + eventColumns + `FROM events`
	var args []interface{}
	var conds []string

	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Day != "" {
		args = append(args, filter.Day)
		conds = append(conds, fmt.Sprintf("day = $%d", len(args)))
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY name"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list events", err)
	}
	defer rows.Close()

	var out []*capture.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) ToggleEventVisibility(ctx context.Context, id uuid.UUID) (*capture.Event, error) {
	query := `
		UPDATE events
		SET visibility = CASE visibility WHEN 'active' THEN 'inactive' ELSE 'active' END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING` + eventColumns

	e, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, capture.ErrEventNotFound
		}
		return nil, r.handlePostgresError("toggle event visibility", err)
	}

	return e, nil
}

// Like operations

func (r *Repository) ToggleLike(ctx context.Context, captureID uuid.UUID, identity string) (bool, error) {
	// Insert-first toggle on the unique (capture_id, identity) pair. When the
	// insert is a no-op the pair already existed, so the same statement pair
	// resolves to a delete. Concurrent duplicate requests collapse onto the
	// unique constraint instead of producing extra rows.
	insert := `
		INSERT INTO capture_likes (capture_id, identity, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (capture_id, identity) DO NOTHING`

	tag, err := r.db.Exec(ctx, insert, captureID, identity)
	if err != nil {
		return false, r.handlePostgresError("toggle like", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	del := `DELETE FROM capture_likes WHERE capture_id = $1 AND identity = $2`
	if _, err := r.db.Exec(ctx, del, captureID, identity); err != nil {
		return false, r.handlePostgresError("toggle like", err)
	}
	return false, nil
}

func (r *Repository) HasLiked(ctx context.Context, captureID uuid.UUID, identity string) (bool, error) {
	var liked bool
	query := `SELECT EXISTS(SELECT 1 FROM capture_likes WHERE capture_id = $1 AND identity = $2)`
	if err := r.db.QueryRow(ctx, query, captureID, identity).Scan(&liked); err != nil {
		return false, r.handlePostgresError("has liked", err)
	}
	return liked, nil
}

func (r *Repository) CountLikes(ctx context.Context, captureID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM capture_likes WHERE capture_id = $1`
	if err := r.db.QueryRow(ctx, query, captureID).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count likes", err)
	}
	return count, nil
}

// Removal request operations

const removalColumns = `
	id, asset_path, name, email, description, idcard_path, status,
	created_at, updated_at`

func scanRemovalRequest(row pgx.Row) (*capture.RemovalRequest, error) {
	var req capture.RemovalRequest
	err := row.Scan(
		&req.ID, &req.AssetPath, &req.Name, &req.Email, &req.Description,
		&req.IDCardPath, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *Repository) UpsertRemovalRequest(ctx context.Context, req *capture.RemovalRequest) (*capture.RemovalRequest, error) {
	// A partial unique index on (asset_path, lower(email), description) WHERE
	// status = 'pending' makes identical resubmission a no-op; the existing
	// pending row is returned unchanged.
	insert := `
		INSERT INTO removal_requests (
			id, asset_path, name, email, description, idcard_path, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (asset_path, lower(email), description) WHERE status = 'pending'
		DO NOTHING
		RETURNING` + removalColumns

	stored, err := scanRemovalRequest(r.db.QueryRow(ctx, insert,
		req.ID, req.AssetPath, req.Name, req.Email, req.Description,
		req.IDCardPath, req.Status, req.CreatedAt, req.UpdatedAt))
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, r.handlePostgresError("upsert removal request", err)
	}

	// Conflict path: fetch the pending row this submission duplicates.
	query := `
		SELECT` + removalColumns + `
		FROM removal_requests
		WHERE asset_path = $1 AND lower(email) = lower($2) AND description = $3
		  AND status = 'pending'`

	stored, err = scanRemovalRequest(r.db.QueryRow(ctx, query,
		req.AssetPath, req.Email, req.Description))
	if err != nil {
		return nil, r.handlePostgresError("get removal request", err)
	}
	return stored, nil
}

func (r *Repository) GetRemovalRequest(ctx context.Context, id uuid.UUID) (*capture.RemovalRequest, error) {
	query := `SELECT` + removalColumns + `FROM removal_requests WHERE id = $1`

	req, err := scanRemovalRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, capture.ErrRemovalRequestNotFound
		}
		return nil, r.handlePostgresError("get removal request", err)
	}

	return req, nil
}

func (r *Repository) ListRemovalRequests(ctx context.Context, status capture.RemovalStatus) ([]*capture.RemovalRequest, error) {
	query := `SELECT` + removalColumns + `FROM removal_requests`
	var args []interface{}
	if status != "" {
		args = append(args, status)
		query += " WHERE status = $1"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list removal requests", err)
	}
	defer rows.Close()

	var out []*capture.RemovalRequest
	for rows.Next() {
		req, err := scanRemovalRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *Repository) CountPendingRemovalRequests(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM removal_requests WHERE status = 'pending'`
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count pending removal requests", err)
	}
	return count, nil
}

func (r *Repository) ResolveRemovalRequest(ctx context.Context, id uuid.UUID) (*capture.RemovalRequest, error) {
	query := `
		UPDATE removal_requests
		SET status = 'resolved', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING` + removalColumns

	req, err := scanRemovalRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.explainRemovalFailure(ctx, id)
		}
		return nil, r.handlePostgresError("resolve removal request", err)
	}

	return req, nil
}

func (r *Repository) explainRemovalFailure(ctx context.Context, id uuid.UUID) error {
	var status capture.RemovalStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM removal_requests WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return capture.ErrRemovalRequestNotFound
	}
	if err != nil {
		return r.handlePostgresError("get removal request status", err)
	}
	return fmt.Errorf("%w: removal request %s is already %s",
		capture.ErrInvalidStateTransition, id, status)
}

// Download log operations

func (r *Repository) LogDownload(ctx context.Context, l *capture.DownloadLog) error {
	query := `
		INSERT INTO download_logs (id, asset_path, identity, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, l.ID, l.AssetPath, l.Identity, l.CreatedAt)
	if err != nil {
		return r.handlePostgresError("log download", err)
	}
	return nil
}
