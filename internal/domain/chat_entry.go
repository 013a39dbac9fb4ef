// Package domain contains core domain types for the chat relay.
package domain

import (
	"time"
)

// Author identifies who produced a chat entry.
type Author string

const (
	// AuthorUser marks an utterance typed by the connected client.
	AuthorUser Author = "User"
	// AuthorBot marks a reply produced by the relay.
	AuthorBot Author = "Bot"
)

// Valid reports whether a is one of the known authors.
func (a Author) Valid() bool {
	return a == AuthorUser || a == AuthorBot
}

// ChatEntry is one persisted unit of conversation.
// Entries are immutable once created.
type ChatEntry struct {
	Author    Author    `json:"user"`
	Text      string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewEntry builds an entry stamped with the current time.
func NewEntry(author Author, text string) *ChatEntry {
	return &ChatEntry{
		Author:    author,
		Text:      text,
		CreatedAt: time.Now(),
	}
}
