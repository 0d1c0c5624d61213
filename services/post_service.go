package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/listing"
	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/utils"
)

const (
	tracerName    = "github.com/kamtour/tourism/services"
	maxTitleLen   = 255
	slugAttempts  = 5
	defaultMaxImg = 2048
)

// PostInput is the validated shape of an admin post form.
type PostInput struct {
	Title       string
	Content     string
	CategoryID  uint
	ProvinceID  *uint
	PublishedAt *time.Time
	Image       *Upload
	RemoveImage bool
}

// CommentWithAuthor pairs a comment with its author, when the account still exists.
type CommentWithAuthor struct {
	Comment models.Comment
	Author  *models.User
}

// PostDetail is a post with everything its detail page shows.
type PostDetail struct {
	Post     models.Post
	Category *models.Category
	Province *models.Province
	Comments []CommentWithAuthor
}

// PostService implements the post lifecycle: slugs, images and cascades.
type PostService struct {
	db            *gorm.DB
	store         utils.FileStore
	maxImageBytes int64
	now           func() time.Time
}

// NewPostService creates a PostService. maxImageKB <= 0 selects the default limit.
func NewPostService(db *gorm.DB, store utils.FileStore, maxImageKB int) *PostService {
	if maxImageKB <= 0 {
		maxImageKB = defaultMaxImg
	}
	return &PostService{
		db:            db,
		store:         store,
		maxImageBytes: int64(maxImageKB) * 1024,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// publishedAtLayouts are accepted for published_at; zone-less forms are UTC.
var publishedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParsePublishedAt parses an optional publish time. Blank input means draft.
func ParsePublishedAt(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC().Truncate(time.Microsecond)
			return &t, nil
		}
	}
	return nil, invalid("published_at", "is not a valid date")
}

// Create validates in, inserts the post under a unique slug and stores its image.
func (s *PostService) Create(ctx context.Context, in PostInput) (*models.Post, error) {
	ctx, span := s.startSpan(ctx, "posts.Create")
	defer span.End()

	title, content, img, err := s.validate(ctx, in)
	if err != nil {
		return nil, s.fail(span, err)
	}

	var post models.Post
	err = s.inTx(ctx, func(tx *gorm.DB, saved *[]string) error {
		slug, err := freeSlug(tx, utils.Slugify(title), 0)
		if err != nil {
			return err
		}
		post = models.Post{
			Title:       title,
			Slug:        slug,
			Content:     content,
			CategoryID:  in.CategoryID,
			ProvinceID:  in.ProvinceID,
			PublishedAt: in.PublishedAt,
		}
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if img == nil {
			return nil
		}
		key, err := s.saveImage(post.ID, img, saved)
		if err != nil {
			return err
		}
		post.Image = &key
		return tx.Model(&post).Update("image", key).Error
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	span.SetAttributes(attribute.Int("post.id", int(post.ID)))
	utils.Logger.Info("post created", zap.Uint("post_id", post.ID), zap.String("slug", post.Slug))
	return &post, nil
}

// Update rewrites post id from in. A replaced or removed image file is deleted
// only after the row change has committed.
func (s *PostService) Update(ctx context.Context, id uint, in PostInput) (*models.Post, error) {
	ctx, span := s.startSpan(ctx, "posts.Update", attribute.Int("post.id", int(id)))
	defer span.End()

	title, content, img, err := s.validate(ctx, in)
	if err != nil {
		return nil, s.fail(span, err)
	}

	var (
		post  models.Post
		stale string
	)
	err = s.inTx(ctx, func(tx *gorm.DB, saved *[]string) error {
		stale = ""
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		old := post.ImagePath()

		slug, err := freeSlug(tx, utils.Slugify(title), post.ID)
		if err != nil {
			return err
		}
		post.Title = title
		post.Slug = slug
		post.Content = content
		post.CategoryID = in.CategoryID
		post.ProvinceID = in.ProvinceID
		post.PublishedAt = in.PublishedAt

		switch {
		case img != nil:
			key, err := s.saveImage(post.ID, img, saved)
			if err != nil {
				return err
			}
			post.Image = &key
		case in.RemoveImage:
			post.Image = nil
		}
		if old != "" && old != post.ImagePath() {
			stale = old
		}
		return tx.Save(&post).Error
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	if stale != "" {
		s.discard(stale)
	}
	utils.Logger.Info("post updated", zap.Uint("post_id", post.ID), zap.String("slug", post.Slug))
	return &post, nil
}

// Delete removes the post and its comments, then its image file.
func (s *PostService) Delete(ctx context.Context, id uint) error {
	ctx, span := s.startSpan(ctx, "posts.Delete", attribute.Int("post.id", int(id)))
	defer span.End()

	var key string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		key = post.ImagePath()
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		return s.fail(span, err)
	}

	if key != "" {
		s.discard(key)
	}
	utils.Logger.Info("post deleted", zap.Uint("post_id", id))
	return nil
}

// Get loads a post by numeric id or slug. With publicOnly set, posts that are
// not yet published are reported as ErrNotFound.
func (s *PostService) Get(ctx context.Context, ref string, publicOnly bool) (*PostDetail, error) {
	ctx, span := s.startSpan(ctx, "posts.Get", attribute.String("post.ref", ref))
	defer span.End()

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNotFound
	}
	conn := s.db.WithContext(ctx)

	q := conn.Model(&models.Post{})
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("slug = ?", ref)
	}
	if publicOnly {
		q = q.Where("published_at IS NOT NULL AND published_at <= ?", s.now())
	}

	var post models.Post
	if err := q.Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.fail(span, err)
	}

	tax, err := listing.LoadTaxonomy(ctx, conn, []models.Post{post})
	if err != nil {
		return nil, s.fail(span, err)
	}

	var comments []models.Comment
	if err := conn.Where("post_id = ?", post.ID).Order("created_at ASC").Order("id ASC").Find(&comments).Error; err != nil {
		return nil, s.fail(span, err)
	}
	authors, err := loadUsers(conn, comments)
	if err != nil {
		return nil, s.fail(span, err)
	}

	detail := &PostDetail{
		Post:     post,
		Category: tax.Category(post.CategoryID),
		Province: tax.Province(post.ProvinceID),
		Comments: make([]CommentWithAuthor, 0, len(comments)),
	}
	for _, c := range comments {
		cw := CommentWithAuthor{Comment: c}
		if u, ok := authors[c.UserID]; ok {
			cw.Author = &u
		}
		detail.Comments = append(detail.Comments, cw)
	}
	return detail, nil
}

func (s *PostService) validate(ctx context.Context, in PostInput) (string, string, *imageBlob, error) {
	fields := map[string]string{}

	title := strings.TrimSpace(utils.PlainText(in.Title))
	switch {
	case title == "":
		fields["title"] = "is required"
	case utf8.RuneCountInString(title) > maxTitleLen:
		fields["title"] = fmt.Sprintf("must be at most %d characters", maxTitleLen)
	}

	content := strings.TrimSpace(utils.Sanitize(in.Content))
	if content == "" {
		fields["content"] = "is required"
	}

	conn := s.db.WithContext(ctx)
	if in.CategoryID == 0 {
		fields["category_id"] = "is required"
	} else if ok, err := exists(conn, &models.Category{}, in.CategoryID); err != nil {
		return "", "", nil, err
	} else if !ok {
		fields["category_id"] = "is invalid"
	}
	if in.ProvinceID != nil {
		if ok, err := exists(conn, &models.Province{}, *in.ProvinceID); err != nil {
			return "", "", nil, err
		} else if !ok {
			fields["province_id"] = "is invalid"
		}
	}

	var img *imageBlob
	if in.Image != nil {
		var msg string
		if img, msg = readImage(in.Image, s.maxImageBytes); msg != "" {
			fields["image"] = msg
		}
	}

	if len(fields) > 0 {
		return "", "", nil, &ValidationError{Fields: fields}
	}
	return title, content, img, nil
}

// inTx runs fn in a transaction, retrying when a concurrent writer took the
// same slug first. Files fn saved are removed when its transaction fails.
func (s *PostService) inTx(ctx context.Context, fn func(tx *gorm.DB, saved *[]string) error) error {
	for attempt := 1; ; attempt++ {
		var saved []string
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx, &saved)
		})
		if err == nil {
			return nil
		}
		for _, key := range saved {
			s.discard(key)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < slugAttempts {
			utils.Logger.Warn("slug collision, retrying", zap.Int("attempt", attempt))
			continue
		}
		return err
	}
}

func (s *PostService) saveImage(postID uint, img *imageBlob, saved *[]string) (string, error) {
	key := imageKey(postID, img.ext)
	if err := s.store.Save(key, bytes.NewReader(img.data)); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	*saved = append(*saved, key)
	return key, nil
}

func (s *PostService) discard(key string) {
	if err := s.store.Delete(key); err != nil {
		utils.Logger.Warn("image cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *PostService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *PostService) fail(span trace.Span, err error) error {
	if _, ok := AsValidation(err); ok || errors.Is(err, ErrNotFound) {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// freeSlug returns base or the first free base-N, ignoring the row excludeID.
func freeSlug(tx *gorm.DB, base string, excludeID uint) (string, error) {
	q := tx.Model(&models.Post{}).Where("(slug = ? OR slug LIKE ?)", base, base+"-%")
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var taken []string
	if err := q.Pluck("slug", &taken).Error; err != nil {
		return "", err
	}
	return utils.NextSlug(base, taken), nil
}

func exists(conn *gorm.DB, model interface{}, id uint) (bool, error) {
	var n int64
	if err := conn.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func loadUsers(conn *gorm.DB, comments []models.Comment) (map[uint]models.User, error) {
	out := map[uint]models.User{}
	if len(comments) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	var users []models.User
	if err := conn.Where("id IN ?", utils.UniqueUint(ids)).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
