package models

import (
	"time"
)

// Message is one directed note about a listing. Messages are never edited.
type Message struct {
	ID           int64     `json:"id"`
	ListingID    int64     `json:"bike_id"`
	SenderID     int64     `json:"sender_id"`
	ReceiverID   int64     `json:"receiver_id"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	SenderName   *string   `json:"sender_name,omitempty"`
	ReceiverName *string   `json:"receiver_name,omitempty"`
	IsMine       bool      `json:"is_mine"`
}

// Thread is a conversation about one listing with one counterpart, reduced to its latest
// message. It is computed on every read and never stored.
type Thread struct {
	ListingID         int64     `json:"listing_id"`
	ListingTitle      string    `json:"listing_title"`
	ListingImage      *string   `json:"listing_image"`
	CounterpartUserID int64     `json:"counterpart_user_id"`
	CounterpartName   *string   `json:"counterpart_name"`
	LastMessageText   string    `json:"last_message_text"`
	LastMessageAt     time.Time `json:"last_message_at"`
}
