package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const apiKeysTable = "api_keys"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// KeyStore is the subset of a pgx pool the API key verifier needs.
type KeyStore interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// APIKeyVerifier authenticates opaque API keys stored as keyed hashes.
type APIKeyVerifier struct {
	db     KeyStore
	pepper []byte
}

// NewAPIKeyVerifier returns a verifier that hashes keys with pepper.
func NewAPIKeyVerifier(db KeyStore, pepper string) *APIKeyVerifier {
	return &APIKeyVerifier{db: db, pepper: []byte(pepper)}
}

// HashAPIKey returns hex(HMAC-SHA256(pepper, key)).
func HashAPIKey(pepper, key string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify looks the key up by hash and stamps last_used_at in one statement.
func (v *APIKeyVerifier) Verify(ctx context.Context, key string) (*Principal, error) {
	if key == "" {
		return nil, ErrNoToken
	}
	query, args, err := psql.Update(apiKeysTable).
		Set("last_used_at", sq.Expr("now()")).
		Where(sq.Eq{"key_hash": HashAPIKey(string(v.pepper), key)}).
		Suffix("RETURNING owner_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build api key query: %w", err)
	}

	var ownerID string
	if err := v.db.QueryRow(ctx, query, args...).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Principal{OwnerID: ownerID, Method: MethodAPIKey}, nil
}

// Issue creates a new random key for ownerID and returns the raw key. Only
// the hash is stored; the raw key cannot be recovered later.
func (v *APIKeyVerifier) Issue(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" {
		return "", errors.New("owner id is required")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	key := "dpk_" + base64.RawURLEncoding.EncodeToString(buf)

	query, args, err := psql.Insert(apiKeysTable).
		Columns("id", "owner_id", "key_hash").
		Values(uuid.NewString(), ownerID, HashAPIKey(string(v.pepper), key)).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build insert query: %w", err)
	}
	if _, err := v.db.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("storing api key: %w", err)
	}
	return key, nil
}

var _ Verifier = (*APIKeyVerifier)(nil)
