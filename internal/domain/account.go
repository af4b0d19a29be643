package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address length bounds for base58-encoded 32-byte public keys.
const (
	MinAccountLength = 32
	MaxAccountLength = 44
	publicKeyBytes   = 32
)

// DomainSuffix marks identifiers that must be resolved through the name service.
const DomainSuffix = ".sol"

// MaxDomainLength bounds a .sol name without its suffix.
const MaxDomainLength = 253

// Account is a validated base58 Solana public key.
// The string is kept exactly as supplied; equality is byte-exact.
type Account string

// ParseAccount validates s as a base58-encoded 32-byte public key.
func ParseAccount(s string) (Account, error) {
	if len(s) < MinAccountLength || len(s) > MaxAccountLength {
		return "", &AccountError{Account: s, Err: fmt.Errorf("%w: length %d outside [%d, %d]",
			ErrInvalidIdentifier, len(s), MinAccountLength, MaxAccountLength)}
	}

	decoded, err := base58.Decode(s)
	if err != nil {
		return "", &AccountError{Account: s, Err: fmt.Errorf("%w: %w", ErrInvalidIdentifier, err)}
	}
	if len(decoded) != publicKeyBytes {
		return "", &AccountError{Account: s, Err: fmt.Errorf("%w: decodes to %d bytes",
			ErrInvalidIdentifier, len(decoded))}
	}

	return Account(s), nil
}

// String returns the address as supplied.
func (a Account) String() string {
	return string(a)
}

// Short returns the first 8 characters, used in alert text.
func (a Account) Short() string {
	if len(a) <= 8 {
		return string(a)
	}
	return string(a[:8])
}

// OnCurve reports whether the key is a valid ed25519 point.
// Keypair wallets are on the curve; program-derived addresses are not.
func (a Account) OnCurve() bool {
	decoded, err := base58.Decode(string(a))
	if err != nil || len(decoded) != publicKeyBytes {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}

// Kind returns "wallet" for on-curve keys and "program-derived" otherwise.
func (a Account) Kind() string {
	if a.OnCurve() {
		return "wallet"
	}
	return "program-derived"
}

// IsDomainName reports whether the identifier carries the .sol suffix.
func IsDomainName(s string) bool {
	return len(s) > len(DomainSuffix) && strings.EqualFold(s[len(s)-len(DomainSuffix):], DomainSuffix)
}

// ValidDomainLabel reports whether label, a .sol name without its suffix,
// is well formed: dot-separated non-empty parts of letters, digits, '-',
// '_' or emoji.
func ValidDomainLabel(label string) bool {
	if label == "" || len(label) > MaxDomainLength || !utf8.ValidString(label) {
		return false
	}
	for _, part := range strings.Split(label, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			switch {
			case r == '-' || r == '_':
			case unicode.IsLetter(r) || unicode.IsDigit(r):
			case unicode.Is(unicode.So, r) || unicode.Is(unicode.Mn, r) || r == '\u200d':
			default:
				return false
			}
		}
	}
	return true
}

// ParseDomainName checks that s is a well-formed .sol name.
// The name is returned unchanged.
func ParseDomainName(s string) (string, error) {
	if !IsDomainName(s) {
		return "", &AccountError{Account: s, Err: fmt.Errorf("%w: missing %s suffix", ErrInvalidIdentifier, DomainSuffix)}
	}
	if !ValidDomainLabel(s[:len(s)-len(DomainSuffix)]) {
		return "", &AccountError{Account: s, Err: fmt.Errorf("%w: malformed domain name", ErrInvalidIdentifier)}
	}
	return s, nil
}
