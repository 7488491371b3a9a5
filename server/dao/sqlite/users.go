package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/google/uuid"
)

type usersDB struct {
	db *sql.DB
}

func (repo *usersDB) init() error {
	_, err := repo.db.Exec(`CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL,
		email TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL,
		last_logout_time INTEGER NOT NULL,
		last_login_time INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (repo *usersDB) Create(ctx context.Context, user dao.User) (dao.User, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return dao.User{}, fmt.Errorf("could not generate ID: %w", err)
	}

	now := time.Now()
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password, role, email, created, modified, last_logout_time, last_login_time) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		convertToDB_UUID(newUUID),
		user.Username,
		user.Password,
		convertToDB_Role(user.Role),
		convertToDB_Email(user.Email),
		convertToDB_Time(now),
		convertToDB_Time(now),
		convertToDB_Time(now),
		convertToDB_Time(time.Time{}),
	)
	if err != nil {
		return dao.User{}, wrapDBError(err)
	}

	return repo.GetByID(ctx, newUUID)
}

func (repo *usersDB) GetAll(ctx context.Context) ([]dao.User, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT id, username, password, role, email, created, modified, last_logout_time, last_login_time FROM users ORDER BY username;`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var all []dao.User
	for rows.Next() {
		var user dao.User
		var id, role, email string
		var created, modified, logout, login int64

		if err := rows.Scan(&id, &user.Username, &user.Password, &role, &email, &created, &modified, &logout, &login); err != nil {
			return nil, wrapDBError(err)
		}
		if err := scanUser(&user, id, role, email, created, modified, logout, login); err != nil {
			return all, err
		}
		all = append(all, user)
	}
	if err := rows.Err(); err != nil {
		return all, wrapDBError(err)
	}

	return all, nil
}

func (repo *usersDB) Update(ctx context.Context, id uuid.UUID, user dao.User) (dao.User, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE users SET id=?, username=?, password=?, role=?, email=?, last_logout_time=?, last_login_time=?, modified=? WHERE id=?;`,
		convertToDB_UUID(user.ID),
		user.Username,
		user.Password,
		convertToDB_Role(user.Role),
		convertToDB_Email(user.Email),
		convertToDB_Time(user.LastLogoutTime),
		convertToDB_Time(user.LastLoginTime),
		convertToDB_Time(time.Now()),
		convertToDB_UUID(id),
	)
	if err != nil {
		return dao.User{}, wrapDBError(err)
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return dao.User{}, wrapDBError(err)
	}
	if rowsAff < 1 {
		return dao.User{}, dao.ErrNotFound
	}

	return repo.GetByID(ctx, user.ID)
}

func (repo *usersDB) GetByUsername(ctx context.Context, username string) (dao.User, error) {
	user := dao.User{Username: username}
	var id, role, email string
	var created, modified, logout, login int64

	row := repo.db.QueryRowContext(ctx, `SELECT id, password, role, email, created, modified, last_logout_time, last_login_time FROM users WHERE username = ?;`, username)
	if err := row.Scan(&id, &user.Password, &role, &email, &created, &modified, &logout, &login); err != nil {
		return user, wrapDBError(err)
	}
	if err := scanUser(&user, id, role, email, created, modified, logout, login); err != nil {
		return user, err
	}
	return user, nil
}

func (repo *usersDB) GetByID(ctx context.Context, id uuid.UUID) (dao.User, error) {
	user := dao.User{ID: id}
	var role, email string
	var created, modified, logout, login int64

	row := repo.db.QueryRowContext(ctx, `SELECT username, password, role, email, created, modified, last_logout_time, last_login_time FROM users WHERE id = ?;`, convertToDB_UUID(id))
	if err := row.Scan(&user.Username, &user.Password, &role, &email, &created, &modified, &logout, &login); err != nil {
		return user, wrapDBError(err)
	}
	if err := scanUser(&user, id.String(), role, email, created, modified, logout, login); err != nil {
		return user, err
	}
	return user, nil
}

func (repo *usersDB) Delete(ctx context.Context, id uuid.UUID) (dao.User, error) {
	curVal, err := repo.GetByID(ctx, id)
	if err != nil {
		return curVal, err
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, convertToDB_UUID(id))
	if err != nil {
		return curVal, wrapDBError(err)
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return curVal, wrapDBError(err)
	}
	if rowsAff < 1 {
		return curVal, dao.ErrNotFound
	}

	return curVal, nil
}

// scanUser fills in the fields of user that were read as raw DB types by the
// caller's row.Scan, converting each into its Go representation.
func scanUser(user *dao.User, id, role, email string, created, modified, logout, login int64) error {
	if err := convertFromDB_UUID(id, &user.ID); err != nil {
		return fmt.Errorf("stored UUID %q is invalid: %w", id, err)
	}
	if err := convertFromDB_Email(email, &user.Email); err != nil {
		return fmt.Errorf("stored email %q is invalid: %w", email, err)
	}
	if err := convertFromDB_Time(logout, &user.LastLogoutTime); err != nil {
		return fmt.Errorf("stored last_logout_time %d is invalid: %w", logout, err)
	}
	if err := convertFromDB_Time(login, &user.LastLoginTime); err != nil {
		return fmt.Errorf("stored last_login_time %d is invalid: %w", login, err)
	}
	if err := convertFromDB_Time(created, &user.Created); err != nil {
		return fmt.Errorf("stored created time %d is invalid: %w", created, err)
	}
	if err := convertFromDB_Time(modified, &user.Modified); err != nil {
		return fmt.Errorf("stored modified time %d is invalid: %w", modified, err)
	}
	if err := convertFromDB_Role(role, &user.Role); err != nil {
		return fmt.Errorf("stored role %q is invalid: %w", role, err)
	}
	return nil
}
