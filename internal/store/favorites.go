package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ayush/nutrilog/internal/models"
)

// AddFavorite bookmarks a post. Adding twice is a no-op.
func (s *Store) AddFavorite(ctx context.Context, userID, postID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, s.q, postID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO favorites (user_id, post_id, created_at) VALUES (?, ?, ?)
			 ON CONFLICT DO NOTHING`), userID, postID, time.Now().UTC())
		return wrap("add favorite", err)
	})
}

func (s *Store) RemoveFavorite(ctx context.Context, userID, postID int64) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`DELETE FROM favorites WHERE user_id = ? AND post_id = ?`), userID, postID)
	return wrap("remove favorite", err)
}

// ListFavorites returns the user's bookmarked posts, newest favorite first.
func (s *Store) ListFavorites(ctx context.Context, userID int64, limit, offset int) ([]models.FavoritePost, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT p.id, p.user_id, u.username, u.first_name, u.last_name,
			p.content, p.image_url, p.image_key, p.meal_id, p.like_count, p.comment_count, p.created_at,
			EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = ?),
			TRUE,
			fv.created_at
		 FROM favorites fv
		 JOIN posts p ON p.id = fv.post_id
		 JOIN users u ON u.id = p.user_id
		 WHERE fv.user_id = ?
		 ORDER BY fv.created_at DESC, p.id DESC LIMIT ? OFFSET ?`),
		userID, userID, limit, offset,
	)
	if err != nil {
		return nil, wrap("list favorites", err)
	}
	defer rows.Close()

	favs := []models.FavoritePost{}
	for rows.Next() {
		var f models.FavoritePost
		if err := scanPost(rows, &f.Post, &f.FavoritedAt); err != nil {
			return nil, wrap("scan favorite", err)
		}
		favs = append(favs, f)
	}
	return favs, wrap("list favorites", rows.Err())
}
