package query

import (
	"database/sql"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/models"
)

// threadsSQL lists one row per (listing, counterpart) pair the user has exchanged messages
// about. The derived table yields each pair once whichever side sent the message; the join
// on messages picks the latest message between exactly those two participants on that
// listing.
const threadsSQL = `SELECT t.bike_id, b.title, b.image_url, t.other_id, u.name, lm.content, lm.created_at
FROM (
  SELECT DISTINCT m.bike_id,
    CASE WHEN m.sender_id = ? THEN m.receiver_id ELSE m.sender_id END AS other_id
  FROM messages m
  WHERE m.sender_id = ? OR m.receiver_id = ?
) t
JOIN bikes b ON b.id = t.bike_id
JOIN messages lm ON lm.id = (
  SELECT m2.id FROM messages m2
  WHERE m2.bike_id = t.bike_id
    AND ((m2.sender_id = ? AND m2.receiver_id = t.other_id)
      OR (m2.sender_id = t.other_id AND m2.receiver_id = ?))
  ORDER BY m2.created_at DESC, m2.id DESC
  LIMIT 1
)
LEFT JOIN users u ON u.id = t.other_id
ORDER BY lm.created_at DESC, lm.id DESC`

// BuildThreads renders the conversation list for userID, most recent first.
func BuildThreads(d db.Dialect, userID int64) (string, []any) {
	return d.Rebind(threadsSQL), []any{userID, userID, userID, userID, userID}
}

// ScanThread reads one row produced by BuildThreads.
func ScanThread(row RowScanner) (models.Thread, error) {
	var t models.Thread
	var image, counterpart sql.NullString
	if err := row.Scan(&t.ListingID, &t.ListingTitle, &image, &t.CounterpartUserID, &counterpart,
		&t.LastMessageText, &t.LastMessageAt); err != nil {
		return t, err
	}
	t.ListingImage = stringPtr(image)
	t.CounterpartName = stringPtr(counterpart)
	return t, nil
}

const listingMessagesSQL = `SELECT m.id, m.bike_id, m.sender_id, m.receiver_id, m.content, m.created_at,
  s.name, r.name
FROM messages m
LEFT JOIN users s ON s.id = m.sender_id
LEFT JOIN users r ON r.id = m.receiver_id
WHERE m.bike_id = ? AND (m.sender_id = ? OR m.receiver_id = ?)
ORDER BY m.created_at ASC, m.id ASC`

// BuildListingMessages renders the messages userID sent or received about listingID,
// oldest first.
func BuildListingMessages(d db.Dialect, userID, listingID int64) (string, []any) {
	return d.Rebind(listingMessagesSQL), []any{listingID, userID, userID}
}

// ScanMessage reads one row produced by BuildListingMessages and marks it as the viewer's
// own when viewerID sent it.
func ScanMessage(row RowScanner, viewerID int64) (models.Message, error) {
	var m models.Message
	var sender, receiver sql.NullString
	if err := row.Scan(&m.ID, &m.ListingID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt,
		&sender, &receiver); err != nil {
		return m, err
	}
	m.SenderName = stringPtr(sender)
	m.ReceiverName = stringPtr(receiver)
	m.IsMine = m.SenderID == viewerID
	return m, nil
}

// BuildInsertMessage renders the INSERT for a new message. On Postgres the statement
// returns the new id.
func BuildInsertMessage(d db.Dialect, m models.Message) (string, []any, error) {
	b := d.Builder().
		Insert("messages").
		Columns("bike_id", "sender_id", "receiver_id", "content", "created_at").
		Values(m.ListingID, m.SenderID, m.ReceiverID, m.Content, m.CreatedAt)
	if d.SupportsReturning() {
		b = b.Suffix("RETURNING id")
	}
	return b.ToSql()
}
