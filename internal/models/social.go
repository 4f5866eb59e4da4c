package models

import "time"

// Post is a social feed entry, optionally with an image and a linked meal.
type Post struct {
	ID           int64       `json:"id"`
	UserID       int64       `json:"user_id"`
	Author       UserSummary `json:"author"`
	Content      string      `json:"content"`
	ImageURL     string      `json:"image_url,omitempty"`
	ImageKey     string      `json:"-"`
	MealID       *int64      `json:"meal_id,omitempty"`
	LikeCount    int         `json:"like_count"`
	CommentCount int         `json:"comment_count"`
	Liked        bool        `json:"liked"`
	Favorited    bool        `json:"favorited"`
	CreatedAt    time.Time   `json:"created_at"`
}

// CreatePostRequest is the JSON form of POST /api/social/posts.
type CreatePostRequest struct {
	Content string `json:"content"`
	MealID  *int64 `json:"meal_id"`
}

// Comment is a reply on a post.
type Comment struct {
	ID        int64       `json:"id"`
	PostID    int64       `json:"post_id"`
	UserID    int64       `json:"user_id"`
	Author    UserSummary `json:"author"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// CommentRequest is the JSON body for POST /api/social/posts/{id}/comments.
type CommentRequest struct {
	Content string `json:"content"`
}

// FavoritePost is a bookmarked post with the time it was saved.
type FavoritePost struct {
	Post
	FavoritedAt time.Time `json:"favorited_at"`
}

// LikeResult is returned by like and unlike.
type LikeResult struct {
	PostID    int64 `json:"post_id"`
	Liked     bool  `json:"liked"`
	LikeCount int   `json:"like_count"`
}
