package services

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/models"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/query"
)

// MaxMessageLength is the longest message content accepted, in characters.
const MaxMessageLength = 2000

// IMessageService defines the interface for messaging between users about listings.
type IMessageService interface {
	SendMessage(ctx context.Context, senderID, listingID, receiverID int64, content string) (*models.Message, error)
	ListingMessages(ctx context.Context, userID, listingID int64) ([]models.Message, error)
	ThreadsFor(ctx context.Context, userID int64) ([]models.Thread, error)
}

type messageService struct {
	provider *db.Provider
	now      func() time.Time
}

// NewMessageService creates a new MessageService.
func NewMessageService(provider *db.Provider) IMessageService {
	return &messageService{provider: provider, now: func() time.Time { return time.Now().UTC() }}
}

// SendMessage stores a message from senderID to receiverID about listingID.
func (s *messageService) SendMessage(ctx context.Context, senderID, listingID, receiverID int64, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperr.Validation("content must be at most %d characters", MaxMessageLength)
	}
	if receiverID == senderID {
		return nil, apperr.Validation("cannot send a message to yourself")
	}

	msg := &models.Message{
		ListingID:  listingID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.now(),
		IsMine:     true,
	}
	d := s.provider.Dialect()
	q, args, err := query.BuildInsertMessage(d, *msg)
	if err != nil {
		return nil, apperr.Backend(err, "failed to build message insert")
	}

	err = withConn(ctx, s.provider, func(conn *db.Conn) error {
		if err := requireRow(ctx, conn, "SELECT COUNT(*) FROM bikes WHERE id = ?", listingID, "listing %d not found"); err != nil {
			return err
		}
		if err := requireRow(ctx, conn, "SELECT COUNT(*) FROM users WHERE id = ?", senderID, "sender %d not found"); err != nil {
			return err
		}
		if err := requireRow(ctx, conn, "SELECT COUNT(*) FROM users WHERE id = ?", receiverID, "user %d not found"); err != nil {
			return err
		}
		msg.ID, err = conn.Insert(ctx, q, args...)
		return err
	})
	if err != nil {
		return nil, apperr.Backend(err, "failed to send message about listing %d", listingID)
	}
	log.Printf("Message %d sent by user %d to user %d about listing %d", msg.ID, senderID, receiverID, listingID)
	return msg, nil
}

// ListingMessages returns the messages userID sent or received about listingID, oldest first.
func (s *messageService) ListingMessages(ctx context.Context, userID, listingID int64) ([]models.Message, error) {
	q, args := query.BuildListingMessages(s.provider.Dialect(), userID, listingID)

	messages := []models.Message{}
	err := withConn(ctx, s.provider, func(conn *db.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := query.ScanMessage(rows, userID)
			if err != nil {
				return err
			}
			messages = append(messages, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperr.Backend(err, "failed to load messages for listing %d", listingID)
	}
	return messages, nil
}

// ThreadsFor returns one thread per (listing, counterpart) pair userID has exchanged
// messages about, most recently active first.
func (s *messageService) ThreadsFor(ctx context.Context, userID int64) ([]models.Thread, error) {
	q, args := query.BuildThreads(s.provider.Dialect(), userID)

	threads := []models.Thread{}
	err := withConn(ctx, s.provider, func(conn *db.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t, err := query.ScanThread(rows)
			if err != nil {
				return err
			}
			threads = append(threads, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperr.Backend(err, "failed to load conversations for user %d", userID)
	}
	return threads, nil
}

// requireRow fails with a not-found error naming id when the count query finds nothing.
func requireRow(ctx context.Context, conn *db.Conn, countSQL string, id int64, notFound string) error {
	n, err := conn.QueryInt(ctx, conn.Dialect().Rebind(countSQL), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(notFound, id)
	}
	return nil
}
