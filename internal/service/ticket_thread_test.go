package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestCommentsVisibility(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(requester, TicketCreateInput{})
	f.notifier.Sent = nil

	own, err := f.tickets.AddComment(f.ctx, ticket.ID, &requester, "sigue fallando", true)
	require.NoError(t, err)
	assert.False(t, own.IsInternal, "requesters cannot write internal notes")

	_, err = f.tickets.AddComment(f.ctx, ticket.ID, &tech, "revisar el fusor", true)
	require.NoError(t, err)
	_, err = f.tickets.AddComment(f.ctx, ticket.ID, &tech, "vamos en camino", false)
	require.NoError(t, err)

	public, err := f.tickets.ListComments(f.ctx, ticket.ID, &requester)
	require.NoError(t, err)
	assert.Len(t, public, 2)
	all, err := f.tickets.ListComments(f.ctx, ticket.ID, &admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.Len(t, f.notifier.Sent, 1, "only the public staff comment reaches the requester")
	assert.Equal(t, requester.ID, f.notifier.Sent[0].UserID)
	assert.Equal(t, "Nuevo comentario en el ticket "+ticket.Code+": vamos en camino", f.notifier.Sent[0].Message)

	entries, err := f.store.Audit().ListByTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditComment, entries[0].Action)
	assert.Equal(t, false, entries[0].Meta["internal"])
	assert.Equal(t, "vamos en camino", entries[0].Meta["body_preview"])
	assert.Equal(t, 3, f.countAudit(ticket.ID, domain.AuditComment))
}

func TestCommentRejections(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(requester, TicketCreateInput{})

	_, err := f.tickets.AddComment(f.ctx, ticket.ID, &other, "hola", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.tickets.AddComment(f.ctx, ticket.ID, &requester, "<p> </p>", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.AddComment(f.ctx, "missing", &admin, "hola", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.tickets.ListComments(f.ctx, ticket.ID, &other)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestAddAttachment(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(requester, TicketCreateInput{})

	att, err := f.tickets.AddAttachment(f.ctx, ticket.ID, &requester, AttachmentInput{
		FileName: "captura.png", ContentType: "image/png", SizeBytes: 512,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(att.StorageKey, "tickets/"+ticket.ID+"/"))
	assert.True(t, strings.HasSuffix(att.StorageKey, "-captura.png"))

	list, err := f.tickets.ListAttachments(f.ctx, ticket.ID, &admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, requester.ID, list[0].UploadedBy)

	entries, err := f.store.Audit().ListByTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditAttach, entries[0].Action)
	assert.Equal(t, "captura.png", entries[0].Meta["filename"])
	assert.Equal(t, int64(512), entries[0].Meta["size"])
}

func TestAddAttachmentValidation(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(requester, TicketCreateInput{})
	_, err := f.assign.AssignTicket(f.ctx, ticket.ID, tech2.ID, &admin, "")
	require.NoError(t, err)

	cases := map[string]AttachmentInput{
		"path traversal": {FileName: "../etc/passwd", SizeBytes: 10},
		"nested path":    {FileName: "a/b.png", SizeBytes: 10},
		"empty":          {FileName: "a.png", SizeBytes: 0},
		"too large":      {FileName: "a.png", SizeBytes: 2048},
		"content type":   {FileName: "a.exe", ContentType: "application/x-msdownload", SizeBytes: 10},
	}
	for name, input := range cases {
		_, err := f.tickets.AddAttachment(f.ctx, ticket.ID, &requester, input)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), name)
	}

	_, err = f.tickets.AddAttachment(f.ctx, ticket.ID, &tech, AttachmentInput{FileName: "a.pdf", SizeBytes: 10})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "tech not assigned")
	_, err = f.tickets.AddAttachment(f.ctx, ticket.ID, &other, AttachmentInput{FileName: "a.pdf", SizeBytes: 10})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.tickets.AddAttachment(f.ctx, ticket.ID, &tech2, AttachmentInput{FileName: "informe.pdf", SizeBytes: 10})
	assert.NoError(t, err, "missing content type is accepted")
	assert.Equal(t, 1, f.countAudit(ticket.ID, domain.AuditAttach))
}
