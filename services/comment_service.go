package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/utils"
)

const defaultCommentMax = 1000

// CommentService adds and removes reader comments.
type CommentService struct {
	db     *gorm.DB
	maxLen int
	now    func() time.Time
}

// NewCommentService creates a CommentService. maxLen <= 0 selects the default.
func NewCommentService(db *gorm.DB, maxLen int) *CommentService {
	if maxLen <= 0 {
		maxLen = defaultCommentMax
	}
	return &CommentService{db: db, maxLen: maxLen, now: func() time.Time { return time.Now().UTC() }}
}

// Add stores a comment by who on a published post.
func (s *CommentService) Add(ctx context.Context, who models.Identity, postID uint, content string) (*models.Comment, error) {
	if who.UserID == 0 {
		return nil, ErrUnauthenticated
	}

	body := strings.TrimSpace(utils.Sanitize(content))
	switch {
	case body == "":
		return nil, invalid("content", "is required")
	case utf8.RuneCountInString(body) > s.maxLen:
		return nil, invalid("content", fmt.Sprintf("must be at most %d characters", s.maxLen))
	}

	conn := s.db.WithContext(ctx)
	var post models.Post
	err := conn.Select("id", "published_at").
		Where("id = ? AND published_at IS NOT NULL AND published_at <= ?", postID, s.now()).
		Take(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	comment := models.Comment{PostID: post.ID, UserID: who.UserID, Content: body}
	if err := conn.Create(&comment).Error; err != nil {
		return nil, err
	}
	utils.Logger.Info("comment added", zap.Uint("post_id", post.ID), zap.Uint("comment_id", comment.ID), zap.Uint("user_id", who.UserID))
	return &comment, nil
}

// Delete removes a comment owned by who. Missing, foreign and wrong-post
// comments all report ErrNotFound.
func (s *CommentService) Delete(ctx context.Context, who models.Identity, postID, commentID uint) error {
	if who.UserID == 0 {
		return ErrUnauthenticated
	}
	res := s.db.WithContext(ctx).
		Where("id = ? AND post_id = ? AND user_id = ?", commentID, postID, who.UserID).
		Delete(&models.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	utils.Logger.Info("comment deleted", zap.Uint("post_id", postID), zap.Uint("comment_id", commentID), zap.Uint("user_id", who.UserID))
	return nil
}
