// internal/respcache/cache.go
package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Entry is the cached, conversation-independent part of a response. The
// conversation identifier and processing time are stamped per request by the
// orchestrator and never stored.
type Entry struct {
	Answer    string    `json:"answer"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Store memoizes question-to-response for a bounded time window. A lookup race
// that recomputes a duplicate answer for the same key is acceptable; the
// implementations only guarantee their own structural integrity under
// concurrent mutation.
type Store interface {
	// Get returns the entry for a question, treating expired entries as absent.
	Get(ctx context.Context, question string) (*Entry, bool)
	// Put stores the entry, overwriting any previous value for the key.
	Put(ctx context.Context, question string, entry Entry)
}

// Key derives the cache key from the normalized question: lower-cased with
// whitespace collapsed, so trivially-reworded duplicates still hit.
func Key(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
