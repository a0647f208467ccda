package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AlfilAlex/taller-upy/internal/domain"
)

var (
	// ErrDuplicateKey is returned by Create when a lot with the same
	// primary key already exists.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNotFound is returned when no live record exists for the key.
	ErrNotFound = errors.New("lot not found")
	// ErrPreconditionFailed is returned by ConditionalUpdate when the
	// predicate did not hold against the stored record. The record is
	// left unchanged.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// LotStore persists lots in a single table keyed by (pk, sk), with
// secondary indexes on (material, status), (owner_id, created_at),
// (receiver_id, status) and (created_day, status).
type LotStore struct {
	db *sql.DB
}

func NewLotStore(db *sql.DB) *LotStore {
	return &LotStore{db: db}
}

const lotColumns = `id, material, condition, weight_kg, scheme, price, status, owner_id, receiver_id,
	address_line1, address_city, address_lat, address_lng, images, created_at, updated_at, created_day, expires_at`

// notExpired hides records whose TTL has passed. Expired rows stay on
// disk until PurgeExpired removes them, mirroring lazy TTL deletion.
const notExpired = "(expires_at IS NULL OR expires_at > ?)"

// Create persists a new lot record.
func (s *LotStore) Create(ctx context.Context, lot *domain.Lot) error {
	images, err := json.Marshal(lot.Images)
	if err != nil {
		return fmt.Errorf("failed to encode images: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lots (pk, sk, `+lotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		lot.PartitionKey(), domain.SortKeyMeta,
		lot.ID, string(lot.Material), string(lot.Condition), lot.WeightKg,
		string(lot.Scheme), lot.Price, string(lot.Status), lot.OwnerID,
		nullString(lot.ReceiverID),
		lot.Address.Line1, lot.Address.City, lot.Address.Lat, lot.Address.Lng,
		string(images), lot.CreatedAt.UTC(), lot.UpdatedAt.UTC(), lot.CreatedDay,
		nullInt64(lot.ExpiresAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("lot %s: %w", lot.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create lot: %w", err)
	}
	return nil
}

// GetByID fetches the lot with the given id, treating expired records as
// absent.
func (s *LotStore) GetByID(ctx context.Context, id string) (*domain.Lot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+lotColumns+` FROM lots
		WHERE pk = ? AND sk = ? AND `+notExpired,
		"lot#"+id, domain.SortKeyMeta, time.Now().Unix())

	lot, err := scanLot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}
	return lot, nil
}

// List returns lots filtered by status, created-day bucket and/or
// material. Day-scoped queries run against the (created_day, status)
// index and material queries against (material, status); with neither,
// the query degrades to a status-filtered table scan, which is
// acceptable only at small table sizes.
func (s *LotStore) List(ctx context.Context, status domain.Status, day string, material domain.Material) ([]*domain.Lot, error) {
	where := []string{notExpired}
	args := []any{time.Now().Unix()}
	if day != "" {
		where = append(where, "created_day = ?")
		args = append(args, day)
	}
	if material != "" {
		where = append(where, "material = ?")
		args = append(args, string(material))
	}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, string(status))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+lotColumns+` FROM lots WHERE `+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	return collectLots(rows)
}

// ListByOwner returns the lots published by ownerID, newest first.
func (s *LotStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Lot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+lotColumns+` FROM lots
		WHERE owner_id = ? AND `+notExpired+`
		ORDER BY created_at DESC`,
		ownerID, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list lots by owner: %w", err)
	}
	return collectLots(rows)
}

// ListByReceiver returns the lots reserved by receiverID, optionally
// narrowed to one status.
func (s *LotStore) ListByReceiver(ctx context.Context, receiverID string, status domain.Status) ([]*domain.Lot, error) {
	where := []string{"receiver_id = ?", notExpired}
	args := []any{receiverID, time.Now().Unix()}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, string(status))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+lotColumns+` FROM lots WHERE `+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots by receiver: %w", err)
	}
	return collectLots(rows)
}

// ConditionalUpdate atomically applies patch to the lot with the given id,
// but only where pred holds against the current stored record. The check
// and the write are a single UPDATE statement, so concurrent callers can
// never both see the precondition pass; at most one wins. On failure the
// record is unchanged and ErrPreconditionFailed is returned, whether the
// predicate failed or the record does not exist.
func (s *LotStore) ConditionalUpdate(ctx context.Context, id string, patch domain.Patch, pred domain.Predicate) (*domain.Lot, error) {
	now := time.Now().UTC()

	sets := []string{"updated_at = ?"}
	args := []any{now}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.ReceiverID != nil {
		sets = append(sets, "receiver_id = ?")
		args = append(args, *patch.ReceiverID)
	}

	where := []string{"pk = ?", "sk = ?", notExpired}
	args = append(args, "lot#"+id, domain.SortKeyMeta, now.Unix())
	if pred.StatusEquals != nil {
		where = append(where, "status = ?")
		args = append(args, string(*pred.StatusEquals))
	}
	if pred.OwnerNot != nil {
		where = append(where, "owner_id <> ?")
		args = append(args, *pred.OwnerNot)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE lots SET `+strings.Join(sets, ", ")+`
		WHERE `+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update lot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("lot %s: %w", id, ErrPreconditionFailed)
	}

	return s.GetByID(ctx, id)
}

// PurgeExpired deletes records whose TTL passed before now and reports
// how many were removed.
func (s *LotStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM lots WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired lots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (*domain.Lot, error) {
	var (
		lot       domain.Lot
		material  string
		condition string
		scheme    string
		status    string
		receiver  sql.NullString
		lat, lng  sql.NullFloat64
		images    string
		expiresAt sql.NullInt64
	)
	err := row.Scan(
		&lot.ID, &material, &condition, &lot.WeightKg, &scheme, &lot.Price,
		&status, &lot.OwnerID, &receiver,
		&lot.Address.Line1, &lot.Address.City, &lat, &lng,
		&images, &lot.CreatedAt, &lot.UpdatedAt, &lot.CreatedDay, &expiresAt,
	)
	if err != nil {
		return nil, err
	}

	lot.Material = domain.Material(material)
	lot.Condition = domain.Condition(condition)
	lot.Scheme = domain.Scheme(scheme)
	lot.Status = domain.Status(status)
	if receiver.Valid {
		lot.ReceiverID = receiver.String
	}
	if lat.Valid {
		lot.Address.Lat = &lat.Float64
	}
	if lng.Valid {
		lot.Address.Lng = &lng.Float64
	}
	if expiresAt.Valid {
		lot.ExpiresAt = expiresAt.Int64
	}
	if err := json.Unmarshal([]byte(images), &lot.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	return &lot, nil
}

func collectLots(rows *sql.Rows) ([]*domain.Lot, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var lots []*domain.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}
	return lots, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
