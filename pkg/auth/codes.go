package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
)

const (
	nonceBytes     = 16
	codeHashLength = 20
)

// CodeGenerator makes confirmation codes of the form "<ts36>-<mac>", where mac
// is an HMAC over the user's identity, its current nonce and the issue time.
// A code only verifies while the user's nonce and identity are unchanged and
// the issue time is within the TTL.
type CodeGenerator struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewCodeGenerator(key []byte, ttl time.Duration) *CodeGenerator {
	return &CodeGenerator{key: key, ttl: ttl, now: time.Now}
}

// Issue rotates user's nonce, makes a fresh code and stores it in the user's
// single code slot. Any previously issued code stops verifying.
func (g *CodeGenerator) Issue(user *models.User) (string, error) {
	nonce, err := NewNonce()
	if err != nil {
		return "", err
	}
	user.CodeNonce = nonce

	code := g.make(user, g.now())
	user.ConfirmationCode = code
	return code, nil
}

// Check reports whether code is the user's current, unexpired code.
func (g *CodeGenerator) Check(user *models.User, code string) bool {
	if user == nil || code == "" || user.ConfirmationCode == "" || user.CodeNonce == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(user.ConfirmationCode)) != 1 {
		return false
	}

	tsPart, _, ok := strings.Cut(code, "-")
	if !ok {
		return false
	}
	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil {
		return false
	}
	issued := time.Unix(ts, 0)

	expected := g.make(user, issued)
	if !hmac.Equal([]byte(expected), []byte(code)) {
		return false
	}

	age := g.now().Sub(issued)
	return age >= 0 && age <= g.ttl
}

// Consume invalidates user's current code after a successful exchange.
func (g *CodeGenerator) Consume(user *models.User) error {
	nonce, err := NewNonce()
	if err != nil {
		return err
	}
	user.CodeNonce = nonce
	user.ConfirmationCode = ""
	return nil
}

func (g *CodeGenerator) make(user *models.User, issued time.Time) string {
	ts := strconv.FormatInt(issued.Unix(), 36)

	mac := hmac.New(sha256.New, g.key)
	fmt.Fprintf(mac, "%d\x00%s\x00%s\x00%s\x00%s", user.ID, user.Username, user.Email, user.CodeNonce, ts)
	sum := mac.Sum(nil)[:codeHashLength]

	return ts + "-" + hex.EncodeToString(sum)
}

func NewNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate code nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
