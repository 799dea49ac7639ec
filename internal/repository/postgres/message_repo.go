package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

const messageColumns = `id, conversation_id, sender_id, content_type, content_data, reactions, created_at, updated_at`

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) CreateWithPreview(ctx context.Context, msg *domain.Message, preview string) error {
	reactions, err := encodeReactions(msg.Reactions)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, content_type, content_data, reactions, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			msg.ID, msg.ConversationID, msg.SenderID, msg.Content.Type, msg.Content.Data,
			reactions, msg.CreatedAt, msg.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				return repository.ErrNotFound
			}
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE conversations SET last_message = $1, last_message_at = $2, updated_at = $2 WHERE id = $3`,
			preview, msg.CreatedAt, msg.ConversationID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = $1", id)
	return scanMessageRow(row)
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	var query string
	var args []any

	if before != nil {
		query = "SELECT " + messageColumns + `
			FROM messages
			WHERE conversation_id = $1
				AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3`
		args = []any{conversationID, *before, limit}
	} else {
		query = "SELECT " + messageColumns + `
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`
		args = []any{conversationID, limit}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}

	// newest first from the query, callers want chronological
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, rows.Err()
}

func (r *MessageRepo) UpdateContent(ctx context.Context, id uuid.UUID, content domain.Content, at time.Time) (*domain.Message, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE messages SET content_type = $1, content_data = $2, updated_at = $3
		WHERE id = $4
		RETURNING `+messageColumns,
		content.Type, content.Data, at, id)
	return scanMessageRow(row)
}

// ToggleReaction locks the row, applies the toggle and writes it back in one
// transaction so concurrent reactions on the same message are serialized.
func (r *MessageRepo) ToggleReaction(ctx context.Context, id, sender uuid.UUID, t domain.ReactionType, at time.Time) (*domain.Message, error) {
	var updated *domain.Message
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var raw []byte
		err := tx.QueryRow(ctx, `SELECT reactions FROM messages WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		var current []domain.Reaction
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("decoding reactions of %s: %w", id, err)
			}
		}
		encoded, err := encodeReactions(domain.ToggleReaction(current, sender, t))
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			UPDATE messages SET reactions = $1, updated_at = $2
			WHERE id = $3
			RETURNING `+messageColumns,
			encoded, at, id)
		updated, err = scanMessage(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *MessageRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanMessageRow(row pgx.Row) (*domain.Message, error) {
	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	var reactions []byte
	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID,
		&msg.Content.Type, &msg.Content.Data, &reactions,
		&msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &msg.Reactions); err != nil {
			return nil, fmt.Errorf("decoding reactions of %s: %w", msg.ID, err)
		}
	}
	if msg.Reactions == nil {
		msg.Reactions = []domain.Reaction{}
	}
	return &msg, nil
}

func encodeReactions(reactions []domain.Reaction) ([]byte, error) {
	if reactions == nil {
		reactions = []domain.Reaction{}
	}
	return json.Marshal(reactions)
}
