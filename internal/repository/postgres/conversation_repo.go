package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/chronofeed/internal/domain"
)

const conversationSelect = `
	SELECT c.id, c.user1_id, c.user2_id, c.last_message_id, c.created_at, c.updated_at,
		u1.username, u1.display_name, u1.avatar_url,
		u2.username, u2.display_name, u2.avatar_url,
		m.sender_id, m.body, m.attachments, m.created_at,
		mu.username, mu.display_name
	FROM dm_conversations c
	JOIN users u1 ON c.user1_id = u1.id
	JOIN users u2 ON c.user2_id = u2.id
	LEFT JOIN messages m ON m.id = c.last_message_id
	LEFT JOIN users mu ON mu.id = m.sender_id`

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

// FindOrCreate relies on the (user1_id, user2_id) unique key so concurrent
// callers for the same pair converge on one row.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error) {
	query := `
		INSERT INTO dm_conversations (id, user1_id, user2_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user1_id, user2_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, query, conv.ID, conv.User1ID, conv.User2ID, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return nil, false, err
	}
	created := tag.RowsAffected() == 1

	found, err := r.scanOne(ctx, conversationSelect+` WHERE c.user1_id = $1 AND c.user2_id = $2`, conv.User1ID, conv.User2ID)
	if err != nil {
		return nil, false, err
	}
	if found == nil {
		return nil, false, errors.New("conversation vanished after upsert")
	}
	return found, created, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	return r.scanOne(ctx, conversationSelect+` WHERE c.id = $1`, id)
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, conversationSelect+`
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY c.updated_at DESC, c.created_at DESC`, userID)
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

func (r *ConversationRepo) scanOne(ctx context.Context, query string, args ...any) (*domain.Conversation, error) {
	conv, err := scanConversation(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var (
		c               domain.Conversation
		p1, p2          domain.UserSummary
		lastSender      *uuid.UUID
		lastBody        *string
		lastAttach      []byte
		lastCreatedAt   *time.Time
		lastUsername    *string
		lastDisplayName *string
	)
	err := row.Scan(
		&c.ID, &c.User1ID, &c.User2ID, &c.LastMessageID, &c.CreatedAt, &c.UpdatedAt,
		&p1.Username, &p1.DisplayName, &p1.AvatarURL,
		&p2.Username, &p2.DisplayName, &p2.AvatarURL,
		&lastSender, &lastBody, &lastAttach, &lastCreatedAt,
		&lastUsername, &lastDisplayName,
	)
	if err != nil {
		return nil, err
	}
	p1.ID, p2.ID = c.User1ID, c.User2ID
	c.Participants = []domain.UserSummary{p1, p2}

	if c.LastMessageID != nil && lastSender != nil {
		attachments, err := decodeAttachments(lastAttach)
		if err != nil {
			return nil, err
		}
		last := &domain.Message{
			ID:             *c.LastMessageID,
			ConversationID: c.ID,
			SenderID:       *lastSender,
			Content:        domain.Content{Attachments: attachments},
		}
		if lastBody != nil {
			last.Content.Text = *lastBody
		}
		if lastCreatedAt != nil {
			last.CreatedAt = *lastCreatedAt
		}
		if lastUsername != nil {
			last.SenderUsername = *lastUsername
		}
		if lastDisplayName != nil {
			last.SenderDisplayName = *lastDisplayName
		}
		c.LastMessage = last
	}
	return &c, nil
}
