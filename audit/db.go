package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/carlavmott/jersey/dispatch"
)

// Querier is the subset of pgx behaviour DBRecorder needs. It is satisfied by
// *pgx.Conn, *pgxpool.Pool, and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DBRecorder persists invocation lifecycle events to Postgres (invocation
// table) so in-flight and completed invocations can be monitored. See the
// with-db example for the table schema.
type DBRecorder struct {
	db Querier
}

// NewDBRecorder returns a recorder that writes to the given connection or
// pool.
func NewDBRecorder(db Querier) *DBRecorder {
	return &DBRecorder{db: db}
}

// Ensure DBRecorder implements dispatch.Recorder.
var _ dispatch.Recorder = (*DBRecorder)(nil)

// InvocationStarted implements dispatch.Recorder. Inserts or resets the
// invocation row with status 'running'.
func (r *DBRecorder) InvocationStarted(ctx context.Context, id string, req any) error {
	reqJSON, err := marshalOptional(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO invocation (id, status, request, started_at)
		VALUES ($1, 'running', $2, now())
		ON CONFLICT (id) DO UPDATE
		SET status = 'running', request = EXCLUDED.request, started_at = now()`,
		id, reqJSON)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// InvocationSuspended implements dispatch.Recorder. Marks the row 'suspended'
// with the effective timeout (NULL when the invocation waits indefinitely).
func (r *DBRecorder) InvocationSuspended(ctx context.Context, id string, timeout time.Duration) error {
	timeoutMs := pgtype.Int8{}
	if timeout > 0 {
		timeoutMs.Int64 = timeout.Milliseconds()
		timeoutMs.Valid = true
	}
	_, err := r.db.Exec(ctx, `
		UPDATE invocation
		SET status = 'suspended', suspend_timeout_ms = $2, suspended_at = now()
		WHERE id = $1`,
		id, timeoutMs)
	if err != nil {
		return fmt.Errorf("update invocation suspended: %w", err)
	}
	return nil
}

// InvocationResumed implements dispatch.Recorder. Marks the row 'resumed' (or
// 'failed') with the result or error.
func (r *DBRecorder) InvocationResumed(ctx context.Context, id string, result any, resErr error) error {
	status := "resumed"
	errText := pgtype.Text{}
	if resErr != nil {
		status = "failed"
		errText.String = resErr.Error()
		errText.Valid = true
	}
	resultJSON, err := marshalOptional(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		UPDATE invocation
		SET status = $2, result = $3, error = $4, finished_at = now()
		WHERE id = $1`,
		id, status, resultJSON, errText)
	if err != nil {
		return fmt.Errorf("update invocation resumed: %w", err)
	}
	return nil
}

// InvocationCancelled implements dispatch.Recorder.
func (r *DBRecorder) InvocationCancelled(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE invocation
		SET status = 'cancelled', finished_at = now()
		WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("update invocation cancelled: %w", err)
	}
	return nil
}

func marshalOptional(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
