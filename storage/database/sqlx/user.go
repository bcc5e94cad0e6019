package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) ext(svcExec []core.DBExecutor) sqlx.ExtContext {
	// service-provided executors are *sqlx.DB or *sqlx.Tx
	if len(svcExec) > 0 {
		if e, ok := svcExec[0].(sqlx.ExtContext); ok {
			return e
		}
	}
	return repo.db
}

type userRow struct {
	ID           string         `db:"id"`
	Name         null.String    `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     null.Bool      `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash null.Bytes     `db:"password_hash"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name.String,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive.Ptr(),
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

const userColumns = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	query := `SELECT username = $1 AS username_taken, email = $2 AS email_taken FROM "user" WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND NOT (id = ANY($3))`
		args = append(args, pq.Array(ids))
	}

	rows, err := repo.ext(exec).QueryxContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	defer func() { _ = rows.Close() }()

	var unameTaken, emailTaken bool
	for rows.Next() {
		var ut, et null.Bool
		if err = rows.Scan(&ut, &et); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		unameTaken = unameTaken || ut.Bool
		emailTaken = emailTaken || et.Bool
	}
	if err = rows.Err(); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}

	switch {
	case unameTaken && emailTaken:
		return user.ErrUserExists
	case unameTaken:
		return user.ErrUsernameExists
	case emailTaken:
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	query := `
		INSERT INTO "user" (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.ext(exec).ExecContext(ctx, query,
		usr.ID,
		null.NewString(usr.Name, usr.Name != ""),
		null.NewString(usr.Username, usr.Username != ""),
		null.NewString(usr.Email, usr.Email != ""),
		null.BoolFromPtr(usr.IsActive),
		pq.Array(usr.Roles),
		null.BytesFrom(usr.PasswordHash),
		null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s)", p))
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roleConds := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roleConds = append(roleConds, fmt.Sprintf("EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE %s)", arg(role+"%")))
			}
			conds = append(conds, "("+strings.Join(roleConds, " OR ")+")")
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}

	query := `SELECT ` + userColumns + ` FROM "user"`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []userRow
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		cond string
		args []interface{}
	)

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		cond, args = "id = $1", []interface{}{filter.ID}
	case filter.Username != "":
		cond, args = "username = $1", []interface{}{filter.Username}
	case filter.Email != "":
		cond, args = "email = $1", []interface{}{filter.Email}
	case filter.UsernameOrEmail != nil:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		cond, args = "(username = $1 OR email = $2)", []interface{}{uname, email}
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	query := `SELECT ` + userColumns + ` FROM "user" WHERE ` + cond
	if err := sqlx.GetContext(ctx, repo.ext(exec), &row, query, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return row.toUser(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	// unset fields keep their stored values
	query := `
		UPDATE "user" SET
			name          = COALESCE($2, name),
			username      = COALESCE($3, username),
			email         = COALESCE($4, email),
			is_active     = COALESCE($5, is_active),
			roles         = COALESCE($6, roles),
			password_hash = COALESCE($7, password_hash),
			updated_at    = COALESCE($8, updated_at),
			last_login    = COALESCE($9, last_login)
		WHERE id = $1
		RETURNING ` + userColumns
	var roles interface{}
	if usr.Roles != nil {
		roles = pq.Array(usr.Roles)
	}

	var row userRow
	err := sqlx.GetContext(ctx, repo.ext(exec), &row, query,
		usr.ID,
		null.NewString(usr.Name, usr.Name != ""),
		null.NewString(usr.Username, usr.Username != ""),
		null.NewString(usr.Email, usr.Email != ""),
		null.BoolFromPtr(usr.IsActive),
		roles,
		null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "updating user")
	}
	return row.toUser(), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.ext(exec).ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
