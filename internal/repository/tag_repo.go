package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tasktracker/internal/model"
)

type TagRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTagRepository(db *pgxpool.Pool, logger *zap.Logger) *TagRepository {
	return &TagRepository{db: db, logger: logger}
}

// List returns all tags ordered by name, optionally narrowed by a
// case-insensitive name search.
func (r *TagRepository) List(ctx context.Context, search string) ([]model.Tag, error) {
	query := `SELECT id, name, slug FROM tags`
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query tags", zap.Error(err))
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// FindByIDs returns the tags that exist among ids.
func (r *TagRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Tag, error) {
	if len(ids) == 0 {
		return []model.Tag{}, nil
	}

	rows, err := r.db.Query(ctx, `
        SELECT id, name, slug
        FROM tags
        WHERE id = ANY($1)
        ORDER BY name, id
    `, ids)
	if err != nil {
		r.logger.Error("Failed to query tags by id", zap.Error(err))
		return nil, fmt.Errorf("query tags by id: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *TagRepository) Insert(ctx context.Context, t *model.Tag) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO tags (name, slug)
        VALUES ($1, $2)
        RETURNING id
    `, t.Name, t.Slug).Scan(&t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrTagExists
		}
		r.logger.Error("Failed to insert tag", zap.Error(err), zap.String("name", t.Name))
		return fmt.Errorf("insert tag: %w", err)
	}

	r.logger.Info("Tag created", zap.Int64("tag_id", t.ID), zap.String("slug", t.Slug))
	return nil
}

// Delete removes the tag; task_tags rows cascade.
func (r *TagRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete tag", zap.Error(err), zap.Int64("tag_id", id))
		return fmt.Errorf("delete tag %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTagNotFound
	}
	r.logger.Info("Tag deleted", zap.Int64("tag_id", id))
	return nil
}
