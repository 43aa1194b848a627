package domain

import (
	"crypto/sha256"
	"fmt"
)

// Link represents a point-to-point connection between two interfaces
type Link struct {
	ID string
	A  *Interface
	B  *Interface
}

// NewLink creates a link and generates its ID
func NewLink(a, b *Interface) *Link {
	l := &Link{A: a, B: b}
	l.ID = l.GenerateID()
	return l
}

// GenerateID creates a deterministic ID for the link based on endpoints
func (l *Link) GenerateID() string {
	// Normalize endpoints for consistent ID
	from, to := l.A.ID(), l.B.ID()
	if from > to {
		from, to = to, from
	}

	hash := sha256.Sum256([]byte(fmt.Sprintf("%s-%s", from, to)))
	return fmt.Sprintf("%x", hash[:8])
}

// Involves checks if this link ends on the given node
func (l *Link) Involves(node string) bool {
	return l.A.Node.Name == node || l.B.Node.Name == node
}

// OtherEnd returns the interface on the other end of the link
func (l *Link) OtherEnd(itf *Interface) *Interface {
	if l.A == itf {
		return l.B
	}
	return l.A
}
