// Package keys defines the Redis key namespace for the chat data model.
//
// Every relationship in the store is encoded in key strings rather than
// joins: user hashes, per-user conversation sets, conversation hashes and
// per-conversation message timelines all live in one flat namespace.
package keys

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const (
	userPrefix         = "user:"
	conversationPrefix = "conversation:"
	messagePrefix      = "message:"
	membershipSuffix   = ":conversation"
	timelineSuffix     = ":messages"

	randomSuffixLen = 7
)

// SortPair returns the two ids in ascending order. It is the single
// canonicalization primitive shared by ConversationKey and ChannelName so
// the storage layer and the realtime layer can never disagree about which
// pair of users a key refers to.
func SortPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// UserKey addresses the profile hash for a user.
func UserKey(id string) string {
	return userPrefix + id
}

// MembershipKey addresses the set of conversation ids a user belongs to.
func MembershipKey(userID string) string {
	return userPrefix + userID + membershipSuffix
}

// ConversationKey addresses the conversation hash for an unordered pair of
// users. Commutative: ConversationKey(a, b) == ConversationKey(b, a).
func ConversationKey(a, b string) string {
	lo, hi := SortPair(a, b)
	return conversationPrefix + lo + ":" + hi
}

// TimelineKey addresses the sorted set of message ids for a conversation,
// scored by creation timestamp.
func TimelineKey(conversationKey string) string {
	return conversationKey + timelineSuffix
}

// ChannelName is the pub/sub channel for an unordered pair of users.
// Commutative, same ordering as ConversationKey but joined with "__" so a
// channel name is never mistaken for a storage key.
func ChannelName(a, b string) string {
	lo, hi := SortPair(a, b)
	return lo + "__" + hi
}

// MessageKey mints a new message id from the current wall clock in
// milliseconds plus a short random base36 suffix. The suffix avoids
// same-millisecond collisions in practice but is not a uniqueness
// guarantee; two calls colliding on both parts silently share an id.
func MessageKey() string {
	return MessageKeyAt(time.Now())
}

// MessageKeyAt is MessageKey with an explicit clock, for tests.
func MessageKeyAt(now time.Time) string {
	var sb strings.Builder
	sb.WriteString(messagePrefix)
	sb.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	for i := 0; i < randomSuffixLen; i++ {
		sb.WriteByte(base36Chars[rand.Intn(len(base36Chars))])
	}
	return sb.String()
}

const base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
