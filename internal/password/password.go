// Package password wraps bcrypt hashing with the strength and deny-list
// checks applied at registration time.
package password

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Cost is fixed; the bcrypt output self-describes it, so raising it later
// keeps old hashes verifiable.
const Cost = 12

const (
	MinLength = 8
	MaxLength = 128
)

// ErrMalformedHash reports a stored hash bcrypt cannot parse, as opposed to
// a plain mismatch.
var ErrMalformedHash = errors.New("malformed password hash")

// dummyHash is a bcrypt hash of a throwaway value, compared against when no
// real hash exists so that login timing does not reveal whether an email is
// registered.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("timing-equalization-decoy"), Cost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"123456":      {},
	"12345678":    {},
	"123456789":   {},
	"qwerty":      {},
	"qwerty123":   {},
	"abc123":      {},
	"letmein":     {},
	"welcome":     {},
	"monkey":      {},
	"iloveyou":    {},
	"admin":       {},
	"dragon":      {},
	"sunshine":    {},
	"princess":    {},
	"football":    {},
}

func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plaintext matches hash. Any bcrypt failure other
// than a mismatch surfaces as ErrMalformedHash; callers treating the error
// as "not authenticated" is the intended behavior.
func Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, ErrMalformedHash
}

// DummyCompare burns the same work as a real verification. Called on login
// when the account does not exist or has no password set.
func DummyCompare(plaintext string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plaintext))
}

// StrengthResult reports every violated rule, not just the first.
type StrengthResult struct {
	Valid  bool
	Errors []string
}

func ValidateStrength(plaintext string) StrengthResult {
	var errs []string
	if len(plaintext) < MinLength {
		errs = append(errs, "password must be at least 8 characters")
	}
	if len(plaintext) > MaxLength {
		errs = append(errs, "password must be at most 128 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		errs = append(errs, "password must contain an uppercase letter")
	}
	if !hasLower {
		errs = append(errs, "password must contain a lowercase letter")
	}
	if !hasDigit {
		errs = append(errs, "password must contain a digit")
	}
	return StrengthResult{Valid: len(errs) == 0, Errors: errs}
}

// IsCommon is a defense-in-depth deny list, not a replacement for
// ValidateStrength.
func IsCommon(plaintext string) bool {
	_, ok := commonPasswords[strings.ToLower(plaintext)]
	return ok
}
