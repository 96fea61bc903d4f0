package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/server/models"
)

// resetTokenBytes is the entropy of a reset token before hex encoding.
const resetTokenBytes = 32

// ResetToken is a freshly generated token. Plain goes to the user and is
// never stored; Digest and ExpiresAt are persisted.
type ResetToken struct {
	Plain     string
	Digest    string
	ExpiresAt time.Time
}

type ResetTokenGenerator struct {
	validity time.Duration
	now      func() time.Time
}

func NewResetTokenGenerator(validity time.Duration, now func() time.Time) *ResetTokenGenerator {
	if now == nil {
		now = time.Now
	}
	return &ResetTokenGenerator{validity: validity, now: now}
}

func (g *ResetTokenGenerator) Validity() time.Duration {
	return g.validity
}

func (g *ResetTokenGenerator) Generate() (*ResetToken, error) {
	plain, err := common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return nil, err
	}
	return &ResetToken{
		Plain:     plain,
		Digest:    DigestResetToken(plain),
		ExpiresAt: g.now().Add(g.validity),
	}, nil
}

// Redeem reports whether candidate matches the pending token of user and
// that token has not expired.
func (g *ResetTokenGenerator) Redeem(candidate string, user *models.User) bool {
	if user == nil || !user.HasActiveResetToken(g.now()) {
		return false
	}
	digest := DigestResetToken(candidate)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(*user.ResetTokenHash)) == 1
}

// DigestResetToken is the stored form of a reset token: hex SHA-256.
func DigestResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
