package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/google/uuid"
)

type syntaxesDB struct {
	db *sql.DB
}

func (repo *syntaxesDB) init() error {
	_, err := repo.db.Exec(`CREATE TABLE IF NOT EXISTS syntaxes (
		id TEXT NOT NULL PRIMARY KEY,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		source TEXT NOT NULL,
		start TEXT NOT NULL,
		combinations INTEGER NOT NULL,
		weight REAL NOT NULL,
		created INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (repo *syntaxesDB) Create(ctx context.Context, s dao.SyntaxRecord) (dao.SyntaxRecord, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return dao.SyntaxRecord{}, fmt.Errorf("could not generate ID: %w", err)
	}

	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO syntaxes (id, owner, name, source, start, combinations, weight, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		convertToDB_UUID(newUUID),
		convertToDB_UUID(s.Owner),
		s.Name,
		s.Source,
		s.Start,
		int64(s.Combinations),
		s.Weight,
		convertToDB_Time(s.Created),
	)
	if err != nil {
		return dao.SyntaxRecord{}, wrapDBError(err)
	}

	return repo.GetByID(ctx, newUUID)
}

func (repo *syntaxesDB) GetByID(ctx context.Context, id uuid.UUID) (dao.SyntaxRecord, error) {
	rec := dao.SyntaxRecord{ID: id}
	var owner string
	var combinations int64
	var created int64

	row := repo.db.QueryRowContext(ctx, `SELECT owner, name, source, start, combinations, weight, created FROM syntaxes WHERE id = ?;`, convertToDB_UUID(id))
	if err := row.Scan(&owner, &rec.Name, &rec.Source, &rec.Start, &combinations, &rec.Weight, &created); err != nil {
		return rec, wrapDBError(err)
	}
	if err := convertFromDB_UUID(owner, &rec.Owner); err != nil {
		return rec, fmt.Errorf("stored owner UUID %q is invalid: %w", owner, err)
	}
	if err := convertFromDB_Time(created, &rec.Created); err != nil {
		return rec, fmt.Errorf("stored created time %d is invalid: %w", created, err)
	}
	rec.Combinations = uint64(combinations)

	return rec, nil
}

func (repo *syntaxesDB) GetAllByOwner(ctx context.Context, owner uuid.UUID) ([]dao.SyntaxRecord, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT id, name, source, start, combinations, weight, created FROM syntaxes WHERE owner = ? ORDER BY created;`, convertToDB_UUID(owner))
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var all []dao.SyntaxRecord
	for rows.Next() {
		rec := dao.SyntaxRecord{Owner: owner}
		var id string
		var combinations int64
		var created int64

		if err := rows.Scan(&id, &rec.Name, &rec.Source, &rec.Start, &combinations, &rec.Weight, &created); err != nil {
			return nil, wrapDBError(err)
		}
		if err := convertFromDB_UUID(id, &rec.ID); err != nil {
			return all, fmt.Errorf("stored UUID %q is invalid: %w", id, err)
		}
		if err := convertFromDB_Time(created, &rec.Created); err != nil {
			return all, fmt.Errorf("stored created time %d is invalid: %w", created, err)
		}
		rec.Combinations = uint64(combinations)
		all = append(all, rec)
	}
	if err := rows.Err(); err != nil {
		return all, wrapDBError(err)
	}

	return all, nil
}

func (repo *syntaxesDB) Delete(ctx context.Context, id uuid.UUID) (dao.SyntaxRecord, error) {
	curVal, err := repo.GetByID(ctx, id)
	if err != nil {
		return curVal, err
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM syntaxes WHERE id = ?`, convertToDB_UUID(id))
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
