package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yaca-chat/yaca/internal/domain"
)

const conversationColumns = `id, participants, name, avatar_url, last_message, last_message_at, pinned_by, created_at, updated_at`

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, participants, name, avatar_url, pinned_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	pinned := conv.PinnedBy
	if pinned == nil {
		pinned = []uuid.UUID{}
	}
	_, err := r.pool.Exec(ctx, query,
		conv.ID, conv.Participants, conv.Name, conv.AvatarURL, pinned, conv.CreatedAt, conv.UpdatedAt,
	)
	return err
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+conversationColumns+" FROM conversations WHERE id = $1", id)
	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

func (r *ConversationRepo) GetParticipants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var participants []uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT participants FROM conversations WHERE id = $1`, id).Scan(&participants)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// FindByParticipants matches on set equality. Participants are stored
// deduplicated, so containment plus equal cardinality is enough.
func (r *ConversationRepo) FindByParticipants(ctx context.Context, participants []uuid.UUID) (*domain.Conversation, error) {
	ids := domain.UniqueIDs(participants)
	query := "SELECT " + conversationColumns + `
		FROM conversations
		WHERE participants @> $1 AND cardinality(participants) = $2
		ORDER BY created_at
		LIMIT 1`
	conv, err := scanConversation(r.pool.QueryRow(ctx, query, ids, len(ids)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error) {
	query := "SELECT " + conversationColumns + `
		FROM conversations
		WHERE $1 = ANY(participants)
		ORDER BY COALESCE(last_message_at, created_at) DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

// TogglePin flips userID's membership of pinned_by in a single statement.
func (r *ConversationRepo) TogglePin(ctx context.Context, id, userID uuid.UUID) (*domain.Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE conversations SET
			pinned_by = CASE WHEN $2 = ANY(pinned_by)
				THEN array_remove(pinned_by, $2)
				ELSE array_append(pinned_by, $2) END,
			updated_at = $3
		WHERE id = $1
		RETURNING `+conversationColumns,
		id, userID, time.Now().UTC())
	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

func (r *ConversationRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE conversations SET name = $1, updated_at = $2 WHERE id = $3`,
		name, time.Now().UTC(), id)
	return err
}

func (r *ConversationRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	// messages go with it through ON DELETE CASCADE
	tag, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(
		&c.ID, &c.Participants, &c.Name, &c.AvatarURL,
		&c.LastMessage, &c.LastMessageAt, &c.PinnedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
