package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/chronofeed/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Append(ctx context.Context, msg *domain.Message) error {
	attachments, err := encodeAttachments(msg.Content.Attachments)
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, attachments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content.Text, attachments, msg.CreatedAt,
	)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE dm_conversations SET last_message_id = $1, updated_at = $2 WHERE id = $3`,
		msg.ID, msg.CreatedAt, msg.ConversationID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s does not exist", msg.ConversationID)
	}

	return tx.Commit(ctx)
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query, args, err := messageQuery().Where(sq.Eq{"m.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	msg, err := scanMessage(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	q := messageQuery().
		Where(sq.Eq{"m.conversation_id": conversationID}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(uint64(limit))

	if before != nil {
		// Cursor: everything strictly older than the "before" message
		q = q.Where(sq.Expr(
			"(m.created_at, m.id) < (SELECT created_at, id FROM messages WHERE id = ?)", *before,
		))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
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

	// Reverse da budu chronological (query ih daje DESC)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, rows.Err()
}

func messageQuery() sq.SelectBuilder {
	return psql.Select(
		"m.id", "m.conversation_id", "m.sender_id", "m.body", "m.attachments", "m.created_at",
		"u.username", "u.display_name", "u.avatar_url",
	).
		From("messages m").
		Join("users u ON m.sender_id = u.id")
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		msg domain.Message
		raw []byte
	)
	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content.Text, &raw, &msg.CreatedAt,
		&msg.SenderUsername, &msg.SenderDisplayName, &msg.SenderAvatarURL,
	)
	if err != nil {
		return nil, err
	}
	if msg.Content.Attachments, err = decodeAttachments(raw); err != nil {
		return nil, err
	}
	return &msg, nil
}
