package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"portraitbot/internal/domain"
	"portraitbot/internal/infra"
	"portraitbot/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// Ensure inserts the user in status new unless it already exists.
func (r *UserRepositoryPG) Ensure(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QUpsertBotUser, id))
}

// GetByID fetches a user by Telegram id.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectBotUser, id))
}

// Transition performs a compare-and-set on the status column. A miss is
// resolved into ErrNotFound or a conflict carrying the current status.
func (r *UserRepositoryPG) Transition(ctx context.Context, id int64, t domain.Transition) (*domain.User, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%s -> %s: %w", t.From, t.To, err)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QTransitionBotUser,
		id,
		string(t.From),
		string(t.To),
		t.DatasetRef,
		t.ClearRefs,
		t.ModelRef,
	)
	user, err := scanUser(row)
	if !errors.Is(err, domain.ErrNotFound) {
		return user, err
	}
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, domain.Conflict("transition to "+string(t.To), current.Status)
}

// ResetStatus moves every user in from to to.
func (r *UserRepositoryPG) ResetStatus(ctx context.Context, from, to domain.Status) ([]int64, error) {
	if err := (domain.Transition{From: from, To: to}).Validate(); err != nil {
		return nil, fmt.Errorf("%s -> %s: %w", from, to, err)
	}
	rows, err := r.sql.Query(ctx, sqlinline.QResetBotUsersByStatus, string(from), string(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u      domain.User
		status string
	)
	if err := row.Scan(&u.ID, &status, &u.DatasetRef, &u.ModelRef, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.Status = domain.Status(status)
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
