package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository creates the comment repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.TicketComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO ticket_comments (id, ticket_id, author_id, body, is_internal)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		comment.ID, comment.TicketID, comment.AuthorID, comment.Body, comment.IsInternal,
	).Scan(&comment.CreatedAt)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error) {
	const query = `
        SELECT id, ticket_id, author_id, body, is_internal, created_at
        FROM ticket_comments
        WHERE ticket_id=$1 AND ($2 OR NOT is_internal)
        ORDER BY created_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.TicketComment
	for rows.Next() {
		var c domain.TicketComment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Body, &c.IsInternal, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository creates the attachment metadata repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.TicketAttachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO ticket_attachments (id, ticket_id, uploaded_by, file_name, content_type, size_bytes, storage_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		attachment.ID,
		attachment.TicketID,
		attachment.UploadedBy,
		attachment.FileName,
		attachment.ContentType,
		attachment.SizeBytes,
		attachment.StorageKey,
	).Scan(&attachment.CreatedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error) {
	const query = `
        SELECT id, ticket_id, uploaded_by, file_name, content_type, size_bytes, storage_key, created_at
        FROM ticket_attachments WHERE ticket_id=$1
        ORDER BY created_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAttachment
	for rows.Next() {
		var a domain.TicketAttachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.UploadedBy, &a.FileName, &a.ContentType, &a.SizeBytes, &a.StorageKey, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
