package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/domain/ports/repository"
	"telegram-tempmail-relay/internal/infra/security"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo persists relay sessions. Mailbox credentials and provider
// tokens are encrypted before they hit the table.
type SessionRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService
}

func NewSessionRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *SessionRepo {
	return &SessionRepo{pool: pool, enc: enc}
}

const sessionColumns = `id, user_id, chat_id, mailbox_address, credential_secret, auth_token, observed_ids, last_access, created_at`

func (r *SessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Session) error {
	const q = `
INSERT INTO sessions (
  id, user_id, chat_id, mailbox_address, credential_secret, auth_token, observed_ids, last_access, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (mailbox_address) DO UPDATE SET
  user_id=$2, chat_id=$3, credential_secret=$5, auth_token=$6, observed_ids=$7, last_access=$8;
`
	observed := s.ObservedIDs
	if observed == nil {
		observed = []string{}
	}
	secret, err := r.seal(s.CredentialSecret)
	if err != nil {
		return err
	}
	token, err := r.seal(s.AuthToken)
	if err != nil {
		return err
	}
	_, err = execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.ChatID, s.MailboxAddress, secret, token, observed, s.LastAccess, s.CreatedAt)
	return err
}

func (r *SessionRepo) FindByMailbox(ctx context.Context, tx repository.Tx, address string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE mailbox_address=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, address)
	if err != nil {
		return nil, err
	}
	return r.scanSession(row)
}

func (r *SessionRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id=$1 ORDER BY last_access DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return r.scanSession(row)
}

func (r *SessionRepo) FindActive(ctx context.Context, tx repository.Tx, window time.Duration) ([]*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE last_access >= $1 ORDER BY last_access DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, time.Now().Add(-window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SessionRepo) UpdateAuthToken(ctx context.Context, tx repository.Tx, address, token string) error {
	const q = `UPDATE sessions SET auth_token=$2 WHERE mailbox_address=$1;`
	sealed, err := r.seal(token)
	if err != nil {
		return err
	}
	tag, err := execSQL(ctx, r.pool, tx, q, address, sealed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) UpdateObserved(ctx context.Context, tx repository.Tx, address string, observed []string, lastAccess time.Time) error {
	const q = `UPDATE sessions SET observed_ids=$2, last_access=$3 WHERE mailbox_address=$1;`
	if observed == nil {
		observed = []string{}
	}
	tag, err := execSQL(ctx, r.pool, tx, q, address, observed, lastAccess)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) TouchLastAccess(ctx context.Context, tx repository.Tx, address string, at time.Time) error {
	const q = `UPDATE sessions SET last_access=$2 WHERE mailbox_address=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, address, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) CountSessions(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM sessions;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SessionRepo) scanSession(row pgx.Row) (*model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.UserID, &s.ChatID, &s.MailboxAddress, &s.CredentialSecret, &s.AuthToken, &s.ObservedIDs, &s.LastAccess, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if s.CredentialSecret, err = r.open(s.CredentialSecret); err != nil {
		return nil, err
	}
	if s.AuthToken, err = r.open(s.AuthToken); err != nil {
		return nil, err
	}
	return &s, nil
}

// seal encrypts a column value; empty stays empty so an unset token is
// distinguishable in the table.
func (r *SessionRepo) seal(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	return r.enc.Encrypt(v)
}

func (r *SessionRepo) open(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	return r.enc.Decrypt(v)
}
