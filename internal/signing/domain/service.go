// Package domain defines the signing token ledger.
package domain

import (
	"context"

	contractdomain "github.com/accordly/accordly/internal/contract/domain"
	"gorm.io/gorm"
)

// Service issues and redeems signing tokens. Tokens are opaque
// capability strings: whoever holds one may act on exactly one field.
type Service interface {
	// IssueToken mints a fresh token and stores it on the field through
	// the given handle, so issuance can join the caller's transaction.
	// Any previous token is overwritten.
	IssueToken(ctx context.Context, db *gorm.DB, field *contractdomain.Field) (string, error)

	// Redeem resolves a token to its field and contract. A miss is
	// ErrTokenNotFound; redemption itself never consumes the token —
	// write-once signed data is the replay guard.
	Redeem(ctx context.Context, token string) (*contractdomain.Field, *contractdomain.Contract, error)
}
