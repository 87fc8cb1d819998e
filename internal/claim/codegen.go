package claim

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// CodeGenerator produces candidate claim codes.  Candidates need not be
// unique; uniqueness is enforced by mintUnique against the store.
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCodes generates 16 upper-case hex characters from 8 bytes of
// crypto/rand.
type RandomCodes struct{}

// Generate implements CodeGenerator.
func (RandomCodes) Generate() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// codeChecker is the subset of store.Tx used while minting.
type codeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// mintUnique draws candidates until one is not yet in use.  The loop has
// no attempt limit; it ends on success, a generator or store error, or
// context cancellation.
func mintUnique(ctx context.Context, gen CodeGenerator, c codeChecker) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := gen.Generate()
		if err != nil {
			return "", err
		}
		exists, err := c.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}
