package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ayush/nutrilog/internal/models"
)

// postSelect expects the viewer id twice before any WHERE arguments.
const postSelect = `SELECT p.id, p.user_id, u.username, u.first_name, u.last_name,
	p.content, p.image_url, p.image_key, p.meal_id, p.like_count, p.comment_count, p.created_at,
	EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = ?),
	EXISTS (SELECT 1 FROM favorites f WHERE f.post_id = p.id AND f.user_id = ?)
	FROM posts p JOIN users u ON u.id = p.user_id`

func scanPost(row interface{ Scan(...any) error }, p *models.Post, extra ...any) error {
	var mealID sql.NullInt64
	dest := []any{&p.ID, &p.UserID, &p.Author.Username, &p.Author.FirstName, &p.Author.LastName,
		&p.Content, &p.ImageURL, &p.ImageKey, &mealID, &p.LikeCount, &p.CommentCount, &p.CreatedAt,
		&p.Liked, &p.Favorited}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	p.Author.ID = p.UserID
	if mealID.Valid {
		id := mealID.Int64
		p.MealID = &id
	}
	return nil
}

func (s *Store) queryPosts(ctx context.Context, op, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var p models.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, wrap(op, err)
		}
		posts = append(posts, p)
	}
	return posts, wrap(op, rows.Err())
}

func (s *Store) CreatePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	var mealID any
	if p.MealID != nil {
		mealID = *p.MealID
	}
	var id int64
	err := s.db.QueryRowContext(ctx, s.q(
		`INSERT INTO posts (user_id, content, image_url, image_key, meal_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		p.UserID, p.Content, p.ImageURL, p.ImageKey, mealID, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return nil, wrap("create post", err)
	}
	return s.GetPost(ctx, p.UserID, id)
}

// GetPost returns a post with liked/favorited flags for viewerID.
func (s *Store) GetPost(ctx context.Context, viewerID, id int64) (*models.Post, error) {
	var p models.Post
	row := s.db.QueryRowContext(ctx, s.q(postSelect+` WHERE p.id = ?`), viewerID, viewerID, id)
	if err := scanPost(row, &p); err != nil {
		return nil, wrap("get post", err)
	}
	return &p, nil
}

// ListPosts returns posts newest first, restricted to authorID when non-zero.
func (s *Store) ListPosts(ctx context.Context, viewerID, authorID int64, limit, offset int) ([]models.Post, error) {
	limit, offset = clampPage(limit, offset)
	if authorID == 0 {
		return s.queryPosts(ctx, "list posts",
			postSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
			viewerID, viewerID, limit, offset)
	}
	return s.queryPosts(ctx, "list posts",
		postSelect+` WHERE p.user_id = ? ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		viewerID, viewerID, authorID, limit, offset)
}

// Feed returns the viewer's own posts and those of users they follow.
func (s *Store) Feed(ctx context.Context, viewerID int64, limit, offset int) ([]models.Post, error) {
	limit, offset = clampPage(limit, offset)
	return s.queryPosts(ctx, "feed",
		postSelect+` WHERE p.user_id = ?
			OR p.user_id IN (SELECT followee_id FROM follows WHERE follower_id = ?)
		 ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		viewerID, viewerID, viewerID, viewerID, limit, offset)
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return wrap("delete post", err)
	}
	return affected("delete post", res)
}

func postExists(ctx context.Context, db queryer, q func(string) string, id int64) error {
	var exists bool
	if err := db.QueryRowContext(ctx, q(`SELECT EXISTS (SELECT 1 FROM posts WHERE id = ?)`), id).Scan(&exists); err != nil {
		return wrap("post exists", err)
	}
	if !exists {
		return wrap("post exists", ErrNotFound)
	}
	return nil
}

// LikePost records a like once and returns the resulting like_count.
func (s *Store) LikePost(ctx context.Context, userID, postID int64) (int, error) {
	return s.toggleLike(ctx, userID, postID, true)
}

// UnlikePost removes a like if present and returns the resulting like_count.
func (s *Store) UnlikePost(ctx context.Context, userID, postID int64) (int, error) {
	return s.toggleLike(ctx, userID, postID, false)
}

func (s *Store) toggleLike(ctx context.Context, userID, postID int64, like bool) (int, error) {
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, s.q, postID); err != nil {
			return err
		}
		var (
			res sql.Result
			err error
		)
		delta := 1
		if like {
			res, err = tx.ExecContext(ctx, s.q(
				`INSERT INTO post_likes (user_id, post_id, created_at) VALUES (?, ?, ?)
				 ON CONFLICT DO NOTHING`), userID, postID, time.Now().UTC())
		} else {
			delta = -1
			res, err = tx.ExecContext(ctx, s.q(
				`DELETE FROM post_likes WHERE user_id = ? AND post_id = ?`), userID, postID)
		}
		if err != nil {
			return wrap("like post", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			if _, err := tx.ExecContext(ctx, s.q(
				`UPDATE posts SET like_count = like_count + ? WHERE id = ?`), delta, postID); err != nil {
				return wrap("update like count", err)
			}
		}
		return wrap("read like count", tx.QueryRowContext(ctx, s.q(
			`SELECT like_count FROM posts WHERE id = ?`), postID).Scan(&count))
	})
	return count, err
}

const commentSelect = `SELECT c.id, c.post_id, c.user_id, u.username, u.first_name, u.last_name,
	c.content, c.created_at
	FROM comments c JOIN users u ON u.id = c.user_id`

func scanComment(row interface{ Scan(...any) error }, c *models.Comment) error {
	if err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Author.Username, &c.Author.FirstName,
		&c.Author.LastName, &c.Content, &c.CreatedAt); err != nil {
		return err
	}
	c.Author.ID = c.UserID
	return nil
}

// AddComment inserts a comment and bumps the post's comment_count.
func (s *Store) AddComment(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, s.q, c.PostID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, s.q(
			`INSERT INTO comments (post_id, user_id, content, created_at) VALUES (?, ?, ?, ?)
			 RETURNING id`), c.PostID, c.UserID, c.Content, time.Now().UTC()).Scan(&id); err != nil {
			return wrap("add comment", err)
		}
		_, err := tx.ExecContext(ctx, s.q(
			`UPDATE posts SET comment_count = comment_count + 1 WHERE id = ?`), c.PostID)
		return wrap("update comment count", err)
	})
	if err != nil {
		return nil, err
	}
	return s.GetComment(ctx, id)
}

func (s *Store) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	var c models.Comment
	row := s.db.QueryRowContext(ctx, s.q(commentSelect+` WHERE c.id = ?`), id)
	if err := scanComment(row, &c); err != nil {
		return nil, wrap("get comment", err)
	}
	return &c, nil
}

// ListComments returns a post's comments oldest first.
func (s *Store) ListComments(ctx context.Context, postID int64, limit, offset int) ([]models.Comment, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.db.QueryContext(ctx, s.q(commentSelect+
		` WHERE c.post_id = ? ORDER BY c.created_at, c.id LIMIT ? OFFSET ?`), postID, limit, offset)
	if err != nil {
		return nil, wrap("list comments", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := scanComment(rows, &c); err != nil {
			return nil, wrap("scan comment", err)
		}
		comments = append(comments, c)
	}
	return comments, wrap("list comments", rows.Err())
}

// DeleteComment removes a comment and decrements its post's comment_count.
func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var postID int64
		if err := tx.QueryRowContext(ctx, s.q(`SELECT post_id FROM comments WHERE id = ?`), id).Scan(&postID); err != nil {
			return wrap("delete comment", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM comments WHERE id = ?`), id); err != nil {
			return wrap("delete comment", err)
		}
		_, err := tx.ExecContext(ctx, s.q(
			`UPDATE posts SET comment_count = comment_count - 1 WHERE id = ? AND comment_count > 0`), postID)
		return wrap("update comment count", err)
	})
}

// Follow is idempotent. Self-follows violate a CHECK and return ErrInvalid.
func (s *Store) Follow(ctx context.Context, followerID, followeeID int64) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT DO NOTHING`), followerID, followeeID, time.Now().UTC())
	return wrap("follow", err)
}

func (s *Store) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`), followerID, followeeID)
	return wrap("unfollow", err)
}

// Followers lists users following userID, most recent first.
func (s *Store) Followers(ctx context.Context, userID int64, limit, offset int) ([]models.UserSummary, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT u.id, u.username, u.first_name, u.last_name
		 FROM follows f JOIN users u ON u.id = f.follower_id
		 WHERE f.followee_id = ?
		 ORDER BY f.created_at DESC, u.id LIMIT ? OFFSET ?`), userID, limit, offset)
	if err != nil {
		return nil, wrap("followers", err)
	}
	return collectSummaries(rows)
}

// Following lists users that userID follows, most recent first.
func (s *Store) Following(ctx context.Context, userID int64, limit, offset int) ([]models.UserSummary, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT u.id, u.username, u.first_name, u.last_name
		 FROM follows f JOIN users u ON u.id = f.followee_id
		 WHERE f.follower_id = ?
		 ORDER BY f.created_at DESC, u.id LIMIT ? OFFSET ?`), userID, limit, offset)
	if err != nil {
		return nil, wrap("following", err)
	}
	return collectSummaries(rows)
}

func collectSummaries(rows *sql.Rows) ([]models.UserSummary, error) {
	defer rows.Close()
	users := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName); err != nil {
			return nil, wrap("scan user", err)
		}
		users = append(users, u)
	}
	return users, wrap("scan users", rows.Err())
}

// PublicUser returns a user's public profile with counts and whether viewerID
// follows them.
func (s *Store) PublicUser(ctx context.Context, viewerID, userID int64) (*models.PublicUser, error) {
	var pu models.PublicUser
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT u.id, u.username, u.first_name, u.last_name, u.created_at,
			COALESCE((SELECT bio FROM user_profiles WHERE user_id = u.id), ''),
			(SELECT COUNT(*) FROM follows WHERE followee_id = u.id),
			(SELECT COUNT(*) FROM follows WHERE follower_id = u.id),
			(SELECT COUNT(*) FROM posts WHERE user_id = u.id),
			EXISTS (SELECT 1 FROM follows WHERE follower_id = ? AND followee_id = u.id)
		 FROM users u WHERE u.id = ?`), viewerID, userID,
	).Scan(&pu.ID, &pu.Username, &pu.FirstName, &pu.LastName, &pu.CreatedAt,
		&pu.Bio, &pu.Followers, &pu.Following, &pu.Posts, &pu.IsFollow)
	if err != nil {
		return nil, wrap("public user", err)
	}
	return &pu, nil
}
