package postgres

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/repository"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	var refID *uuid.UUID
	var refKind *string
	if n.Reference != nil {
		id, kind := n.Reference.ID, string(n.Reference.Kind)
		refID, refKind = &id, &kind
	}

	query, args, err := psql.Insert("notifications").
		Columns("id", "recipient_id", "sender_id", "type", "reference_id", "reference_kind", "content", "is_read", "created_at").
		Values(n.ID, n.RecipientID, n.SenderID, string(n.Type), refID, refKind, n.Content, n.IsRead, n.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, args...)
	return err
}

func (r *NotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query, args, err := notificationQuery().Where(sq.Eq{"n.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	n, err := scanNotification(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

func (r *NotificationRepo) List(ctx context.Context, recipientID uuid.UUID, filter repository.NotificationFilter) ([]domain.Notification, error) {
	q := notificationQuery().
		Where(sq.Eq{"n.recipient_id": recipientID}).
		OrderBy("n.is_read ASC", "n.created_at DESC", "n.id DESC")
	if filter.UnreadOnly {
		q = q.Where(sq.Eq{"n.is_read": false})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
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

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	return err
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE recipient_id = $1 AND NOT is_read`, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`, recipientID,
	).Scan(&count)
	return count, err
}

func notificationQuery() sq.SelectBuilder {
	return psql.Select(
		"n.id", "n.recipient_id", "n.sender_id", "n.type", "n.reference_id", "n.reference_kind",
		"n.content", "n.is_read", "n.created_at",
		"u.username", "u.display_name", "u.avatar_url",
	).
		From("notifications n").
		Join("users u ON n.sender_id = u.id")
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		n       domain.Notification
		typ     string
		refID   *uuid.UUID
		refKind *string
	)
	err := row.Scan(
		&n.ID, &n.RecipientID, &n.SenderID, &typ, &refID, &refKind,
		&n.Content, &n.IsRead, &n.CreatedAt,
		&n.SenderUsername, &n.SenderDisplayName, &n.SenderAvatarURL,
	)
	if err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(typ)
	if refID != nil && refKind != nil {
		n.Reference = &domain.Reference{ID: *refID, Kind: domain.ReferenceKind(*refKind)}
	}
	return &n, nil
}
