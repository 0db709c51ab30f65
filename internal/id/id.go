// Package id generates and validates the prefixed, K-sortable identifiers
// used for every entity. An id looks like "user_01hv2k7m9qchw3rfn8t2x4ygsb":
// a short kind prefix, an underscore, and a lowercased 26-character ULID
// whose leading bits encode the creation time, so later ids sort after
// earlier ones.
package id

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindUser         Kind = "user"
	KindItem         Kind = "item"
	KindSession      Kind = "session"
	KindOAuthAccount Kind = "oauth_account"
)

const suffixLen = 26

// Crockford base32, lowercased. No i, l, o, u.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

var prefixes = map[Kind]string{
	KindUser:         "user",
	KindItem:         "item",
	KindSession:      "sess",
	KindOAuthAccount: "oacct",
}

// New returns a fresh id for the given kind. It panics only on an unknown
// kind, which is a programming error rather than an input error.
func New(kind Kind) string {
	prefix, ok := prefixes[kind]
	if !ok {
		panic(fmt.Sprintf("id: unknown kind %q", kind))
	}
	return prefix + "_" + strings.ToLower(ulid.Make().String())
}

// IsValid reports whether s is a well-formed id of the given kind. It never
// panics on malformed input; unknown kinds are simply not valid.
func IsValid(kind Kind, s string) bool {
	prefix, ok := prefixes[kind]
	if !ok {
		return false
	}
	suffix, ok := strings.CutPrefix(s, prefix+"_")
	if !ok || len(suffix) != suffixLen {
		return false
	}
	for i := 0; i < len(suffix); i++ {
		if !strings.ContainsRune(alphabet, rune(suffix[i])) {
			return false
		}
	}
	return true
}

// Tagged id types. Construction goes through New* or Parse*, so a value of
// one of these types always carries the right prefix.

type UserID string

type ItemID string

type SessionID string

type OAuthAccountID string

func NewUserID() UserID                 { return UserID(New(KindUser)) }
func NewItemID() ItemID                 { return ItemID(New(KindItem)) }
func NewSessionID() SessionID           { return SessionID(New(KindSession)) }
func NewOAuthAccountID() OAuthAccountID { return OAuthAccountID(New(KindOAuthAccount)) }

func ParseUserID(s string) (UserID, error) {
	if !IsValid(KindUser, s) {
		return "", fmt.Errorf("invalid user id %q", s)
	}
	return UserID(s), nil
}

func ParseItemID(s string) (ItemID, error) {
	if !IsValid(KindItem, s) {
		return "", fmt.Errorf("invalid item id %q", s)
	}
	return ItemID(s), nil
}

func ParseSessionID(s string) (SessionID, error) {
	if !IsValid(KindSession, s) {
		return "", fmt.Errorf("invalid session id %q", s)
	}
	return SessionID(s), nil
}

func (v UserID) String() string         { return string(v) }
func (v ItemID) String() string         { return string(v) }
func (v SessionID) String() string      { return string(v) }
func (v OAuthAccountID) String() string { return string(v) }
