package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrEmailTaken = errors.New("email registered to another identity")

// Querier is the subset of pgxpool.Pool the directory needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Directory is a Postgres-backed registry of identities seen through verified
// tokens.
type Directory struct {
	db Querier
}

func NewDirectory(db Querier) *Directory {
	return &Directory{db: db}
}

// Register records the identity carried by a verified token. A nil display
// name keeps the stored one.
func (d *Directory) Register(ctx context.Context, id Identity) error {
	email := normalizeEmail(id.Email)
	if id.UID == "" || email == "" {
		return fmt.Errorf("register identity: uid and email are required")
	}
	_, err := d.db.Exec(ctx,
		`INSERT INTO identities (uid, email, display_name, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (uid) DO UPDATE
		 SET email = EXCLUDED.email,
		     display_name = COALESCE(EXCLUDED.display_name, identities.display_name),
		     updated_at = NOW()`,
		id.UID, email, id.DisplayName,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("register identity: %w", err)
	}
	return nil
}

func (d *Directory) ResolveEmail(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", ErrNotFound
	}
	var uid string
	err := d.db.QueryRow(ctx,
		`SELECT uid FROM identities WHERE LOWER(email) = $1`,
		email,
	).Scan(&uid)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve email: %w", err)
	}
	return uid, nil
}

func (d *Directory) Lookup(ctx context.Context, uid string) (*Identity, error) {
	id := &Identity{}
	err := d.db.QueryRow(ctx,
		`SELECT uid, email, display_name FROM identities WHERE uid = $1`,
		uid,
	).Scan(&id.UID, &id.Email, &id.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	return id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
