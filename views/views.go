// Package views turns posts, comments and taxonomy rows into the JSON shapes
// the pages render.
package views

import (
	"time"

	"github.com/kamtour/tourism/listing"
	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/services"
	"github.com/kamtour/tourism/utils"
)

// ExcerptLength is the rune budget of summary excerpts.
const ExcerptLength = 160

// ImageURLer resolves stored image keys to public URLs.
type ImageURLer interface {
	URL(key string) string
}

// CategoryRef is the category shown on a post.
type CategoryRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ProvinceRef is a province with its English and Khmer names.
type ProvinceRef struct {
	ID     uint   `json:"id"`
	NameEN string `json:"name_en"`
	NameKM string `json:"name_km"`
}

// AuthorRef identifies the writer of a comment.
type AuthorRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// PostSummary is a post card in a grid or table.
type PostSummary struct {
	ID            uint         `json:"id"`
	Title         string       `json:"title"`
	Slug          string       `json:"slug"`
	Excerpt       string       `json:"excerpt"`
	ImageURL      *string      `json:"image_url"`
	Category      *CategoryRef `json:"category"`
	Province      *ProvinceRef `json:"province"`
	PublishedAt   *time.Time   `json:"published_at"`
	Published     bool         `json:"published"`
	CommentsCount int64        `json:"comments_count"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// CommentView is one comment under a post.
type CommentView struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	User      AuthorRef `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// PostDetail is the full post page.
type PostDetail struct {
	PostSummary
	Content  string        `json:"content"`
	Comments []CommentView `json:"comments"`
}

// Presenter builds views against one image store and clock.
type Presenter struct {
	Images ImageURLer
	Now    func() time.Time
}

// NewPresenter creates a Presenter using the wall clock.
func NewPresenter(images ImageURLer) Presenter {
	return Presenter{Images: images, Now: time.Now}
}

func (p Presenter) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p Presenter) imageURL(post models.Post) *string {
	key := post.ImagePath()
	if key == "" || p.Images == nil {
		return nil
	}
	u := p.Images.URL(key)
	return &u
}

func (p Presenter) summary(post models.Post, cat *models.Category, prov *models.Province, comments int64) PostSummary {
	return PostSummary{
		ID:            post.ID,
		Title:         post.Title,
		Slug:          post.Slug,
		Excerpt:       utils.Excerpt(post.Content, ExcerptLength),
		ImageURL:      p.imageURL(post),
		Category:      Category(cat),
		Province:      Province(prov),
		PublishedAt:   post.PublishedAt,
		Published:     post.IsPublished(p.now()),
		CommentsCount: comments,
		CreatedAt:     post.CreatedAt,
		UpdatedAt:     post.UpdatedAt,
	}
}

// Summary presents one listed item.
func (p Presenter) Summary(it listing.Item) PostSummary {
	return p.summary(it.Post, it.Category, it.Province, it.CommentsCount)
}

// Summaries presents a listing page.
func (p Presenter) Summaries(page listing.Page[listing.Item]) listing.Page[PostSummary] {
	return listing.Map(page, p.Summary)
}

// Detail presents a post with its comments, oldest first.
func (p Presenter) Detail(d *services.PostDetail) PostDetail {
	comments := make([]CommentView, 0, len(d.Comments))
	for _, c := range d.Comments {
		comments = append(comments, Comment(c.Comment, c.Author))
	}
	return PostDetail{
		PostSummary: p.summary(d.Post, d.Category, d.Province, int64(len(d.Comments))),
		Content:     d.Post.Content,
		Comments:    comments,
	}
}

// Comment presents c. Comments of deleted accounts keep their author id.
func Comment(c models.Comment, author *models.User) CommentView {
	v := CommentView{ID: c.ID, Content: c.Content, CreatedAt: c.CreatedAt, User: AuthorRef{ID: c.UserID}}
	if author != nil {
		v.User.Name = author.Name
	}
	return v
}

// Category presents c, or nil when the post has none loaded.
func Category(c *models.Category) *CategoryRef {
	if c == nil {
		return nil
	}
	return &CategoryRef{ID: c.ID, Name: c.Name}
}

// Province presents p, or nil for posts without a province.
func Province(p *models.Province) *ProvinceRef {
	if p == nil {
		return nil
	}
	return &ProvinceRef{ID: p.ID, NameEN: p.NameEN, NameKM: p.NameKM}
}

// Categories presents a category list.
func Categories(in []models.Category) []CategoryRef {
	out := make([]CategoryRef, 0, len(in))
	for i := range in {
		out = append(out, *Category(&in[i]))
	}
	return out
}

// Provinces presents a province list.
func Provinces(in []models.Province) []ProvinceRef {
	out := make([]ProvinceRef, 0, len(in))
	for i := range in {
		out = append(out, *Province(&in[i]))
	}
	return out
}
