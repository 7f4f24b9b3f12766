package relational

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nicetalk/chatservice"
	"nicetalk/database"
	"nicetalk/models"
)

const (
	roomColumns    = "room_id, password, participants, status, created_at, expires_at"
	messageColumns = "id::text, room_id, text, sender, created_at"

	uniqueViolation = "23505"
)

// PostgresStore 以 pgxpool 實作 Store 與 Accounts
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema *database.Schema
}

// NewPostgresStore 的 schema 在每次存取前確認資料表已建立，可為 nil
func NewPostgresStore(pool *pgxpool.Pool, schema *database.Schema) *PostgresStore {
	return &PostgresStore{pool: pool, schema: schema}
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var (
		room   models.Room
		status string
	)
	err := row.Scan(&room.RoomID, &room.Password, &room.Participants, &status, &room.CreatedAt, &room.ExpiresAt)
	if err != nil {
		return nil, err
	}
	room.Status = models.RoomStatus(status)
	return &room, nil
}

func (s *PostgresStore) FindRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	query := "SELECT " + roomColumns + " FROM rooms WHERE room_id = $1"
	return scanRoom(s.pool.QueryRow(ctx, query, roomID))
}

func (s *PostgresStore) InsertRoom(ctx context.Context, room *models.Room) (*models.Room, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	query := `INSERT INTO rooms (room_id, password, participants, status, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + roomColumns

	inserted, err := scanRoom(s.pool.QueryRow(ctx, query,
		room.RoomID, room.Password, room.Participants, string(room.Status), room.ExpiresAt))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, fmt.Errorf("insert room %s: %w", room.RoomID, chatservice.ErrConflict)
	}
	return inserted, err
}

func (s *PostgresStore) UpdateParticipants(ctx context.Context, room *models.Room, next []string) (*models.Room, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	query := `UPDATE rooms SET participants = $5, status = $6
        WHERE room_id = $1 AND participants = $2 AND created_at = $3 AND password = $4
        RETURNING ` + roomColumns

	updated, err := scanRoom(s.pool.QueryRow(ctx, query,
		room.RoomID, room.Participants, room.CreatedAt, room.Password, next, string(models.StatusFor(next))))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update participants of %s: %w", room.RoomID, chatservice.ErrConflict)
	}
	return updated, err
}

func (s *PostgresStore) DeleteRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	query := "DELETE FROM rooms WHERE room_id = $1 RETURNING " + roomColumns
	deleted, err := scanRoom(s.pool.QueryRow(ctx, query, roomID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return deleted, err
}

func (s *PostgresStore) InsertMessage(ctx context.Context, roomID, text, sender string) (*models.Message, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	query := `INSERT INTO messages (room_id, text, sender) VALUES ($1, $2, $3)
        RETURNING ` + messageColumns

	rows, err := s.pool.Query(ctx, query, roomID, text, sender)
	if err != nil {
		return nil, err
	}
	msg, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[models.Message])
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	query := "SELECT " + messageColumns + " FROM messages WHERE room_id = $1 ORDER BY created_at, id"
	rows, err := s.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[models.Message])
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	u := &models.User{}
	query := "SELECT id, email, COALESCE(password_hash, ''), is_anonymous FROM users WHERE email = $1"

	err := s.pool.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Anonymous)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PostgresStore) CreateAnonymousUser(ctx context.Context) (*models.User, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	u := &models.User{ID: uuid.NewString(), Anonymous: true}
	_, err := s.pool.Exec(ctx, "INSERT INTO users (id, is_anonymous) VALUES ($1, true)", u.ID)
	if err != nil {
		return nil, fmt.Errorf("create anonymous user: %w", err)
	}
	return u, nil
}
