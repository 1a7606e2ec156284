// Package auth authorizes request envelopes by server key or by player session token.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/envelope"
	"github.com/xiaonanln/saganet/engine/kvdb"
)

// Gate checks credentials carried by request envelopes
type Gate struct {
	enabled   bool
	serverKey string
	cache     kvdb.Engine
}

// NewGate creates a gate. When enabled is false every check succeeds.
func NewGate(enabled bool, serverKey string, cache kvdb.Engine) *Gate {
	return &Gate{
		enabled:   enabled,
		serverKey: serverKey,
		cache:     cache,
	}
}

// Enabled reports whether authorization is switched on
func (g *Gate) Enabled() bool {
	return g.enabled
}

// CheckAuth authorizes the envelope.
//
// A matching ServerAuthKey always succeeds. With requireServerAuth set nothing else is
// accepted; otherwise PlayerId and SessionToken must match the cached session token.
func (g *Gate) CheckAuth(ctx context.Context, req *envelope.Request, requireServerAuth bool) (bool, error) {
	if !g.enabled {
		return true, nil
	}

	if g.IsServer(req) {
		return true, nil
	} else if requireServerAuth {
		return false, nil
	}

	playerID := req.String(envelope.FieldPlayerId)
	token := req.String(envelope.FieldSessionToken)
	if playerID == "" || token == "" {
		return false, nil
	}

	cached, ok, err := g.cache.Get(ctx, sessionKey(playerID))
	if err != nil {
		return false, errors.Wrapf(err, "get session of %s", playerID)
	}
	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(cached), []byte(token)) == 1, nil
}

// IsServer reports whether the envelope carries the configured server key
func (g *Gate) IsServer(req *envelope.Request) bool {
	if g.serverKey == "" {
		return false
	}
	key := req.String(envelope.FieldServerAuthKey)
	return subtle.ConstantTimeCompare([]byte(key), []byte(g.serverKey)) == 1
}

// IssueToken creates a new session token for the player, replacing any previous one
func (g *Gate) IssueToken(ctx context.Context, playerID string) (string, error) {
	token := NewSessionToken()
	if err := g.cache.SetEx(ctx, sessionKey(playerID), token, consts.SESSION_TOKEN_TTL); err != nil {
		return "", errors.Wrapf(err, "store session of %s", playerID)
	}
	return token, nil
}

// RevokeToken drops the player's session token
func (g *Gate) RevokeToken(ctx context.Context, playerID string) error {
	return g.cache.Del(ctx, sessionKey(playerID))
}

// NewSessionToken returns a random 32-digit hex token
func NewSessionToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func sessionKey(playerID string) string {
	return consts.SESSION_KEY_PREFIX + playerID
}
