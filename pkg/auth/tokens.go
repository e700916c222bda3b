package auth

import (
	"fmt"
	"strconv"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"

	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
)

const (
	tokenIssuer   = "yamdb-api"
	tokenAudience = "yamdb-client"

	claimUsername = "username"
)

// Claims are the verified contents of an access token. Role is
// absent: it is re-read from the store on every request.
type Claims struct {
	UserID   uint
	Username string
}

// TokenService issues stateless PASETO v4.local access tokens.
type TokenService struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
	now func() time.Time
}

func NewTokenService(key []byte, ttl time.Duration) (*TokenService, error) {
	symmetric, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("create PASETO symmetric key: %w", err)
	}
	return &TokenService{key: symmetric, ttl: ttl, now: time.Now}, nil
}

func (s *TokenService) Issue(user *models.User) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(strconv.FormatUint(uint64(user.ID), 10))
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.ttl))
	token.SetJti(uuid.NewString())
	token.SetString(claimUsername, user.Username)

	return token.V4Encrypt(s.key, nil), nil
}

func (s *TokenService) Verify(raw string) (*Claims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	sub, err := token.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("token subject %q is not a user id", sub)
	}

	username, err := token.GetString(claimUsername)
	if err != nil {
		return nil, fmt.Errorf("token username: %w", err)
	}

	return &Claims{UserID: uint(id), Username: username}, nil
}
