// Package domain contains core concepts of the chat node.
// This file defines received chat messages.
// Messages are immutable once stored in the message log.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a message received from a peer.
// SenderID is the "ip:port" the sender claims, it is never verified.
// ReceivedAt is assigned by the receiver clock.
type ChatMessage struct {
	ID         uuid.UUID
	SenderID   PeerID
	TeamTag    string
	Body       string
	ReceivedAt time.Time
}

func NewChatMessage(sender PeerID, teamTag, body string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:         uuid.New(),
		SenderID:   sender,
		TeamTag:    teamTag,
		Body:       body,
		ReceivedAt: at,
	}
}
