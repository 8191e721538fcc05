package image

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository stores records in image_records with their images in
// record_images, ordered by position.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository with the given connection pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the record and its images in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, keys []string) (*Record, error) {
	rec := &Record{Images: make([]Image, 0, len(keys))}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO image_records DEFAULT VALUES
			 RETURNING id, created_at, updated_at`,
		).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}

		for i, k := range keys {
			if _, err := tx.Exec(ctx,
				`INSERT INTO record_images (record_id, position, image_key)
				 VALUES ($1, $2, $3)`,
				rec.ID, i, k,
			); err != nil {
				return fmt.Errorf("insert image %q: %w", k, err)
			}
			rec.Images = append(rec.Images, Image{Key: k})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create image record: %w", err)
	}
	return rec, nil
}

// FindByID fetches a record and its images.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	rec := &Record{}
	err := r.db.QueryRow(ctx,
		`SELECT id, created_at, updated_at FROM image_records WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image record: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT image_key, url FROM record_images
		 WHERE record_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query record images: %w", err)
	}
	defer rows.Close()

	rec.Images = []Image{}
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Key, &img.URL); err != nil {
			return nil, fmt.Errorf("scan record image: %w", err)
		}
		rec.Images = append(rec.Images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read record images: %w", err)
	}
	return rec, nil
}

// UpdateImageURL sets the url of one image and bumps the record's updated_at.
func (r *PostgresRepository) UpdateImageURL(ctx context.Context, id, key, url string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	ct, err := r.db.Exec(ctx,
		`WITH updated AS (
		     UPDATE record_images SET url = $3
		     WHERE record_id = $1 AND image_key = $2
		     RETURNING record_id
		 )
		 UPDATE image_records SET updated_at = NOW()
		 WHERE id IN (SELECT record_id FROM updated)`,
		id, key, url,
	)
	if err != nil {
		return fmt.Errorf("update image url: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID removes a record; its images go with it through ON DELETE CASCADE.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	ct, err := r.db.Exec(ctx, `DELETE FROM image_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete image record: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
