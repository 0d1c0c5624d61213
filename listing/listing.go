// Package listing composes the filtered, sorted and paginated post queries
// shared by the admin table and the public pages.
package listing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/utils"
)

const tracerName = "github.com/kamtour/tourism/listing"

// Scope selects which posts a listing may return.
type Scope int

const (
	// ScopePublic only sees posts whose publish time has passed.
	ScopePublic Scope = iota
	// ScopeAdmin sees every post.
	ScopeAdmin
)

func (s Scope) String() string {
	if s == ScopeAdmin {
		return "admin"
	}
	return "public"
}

// Page sizes per surface.
const (
	PerPageAdmin  = 10
	PerPagePublic = 10
	PerPageGrid   = 9
	PerPageHotels = 12
)

// Options configure one listing run.
type Options struct {
	Scope   Scope
	PerPage int
	// Now is the publish cutoff for ScopePublic. Zero means time.Now().
	Now time.Time
}

// Item is one listed post with what its summary needs.
type Item struct {
	Post          models.Post
	CommentsCount int64
	Category      *models.Category
	Province      *models.Province
}

type postRow struct {
	models.Post
	CommentsCount int64 `gorm:"column:comments_count;->"`
}

const commentsCountSelect = "posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count"

// Run executes the listing for f and returns the requested page. A page past
// the end is empty rather than an error.
func Run(ctx context.Context, db *gorm.DB, f Filters, opts Options) (Page[Item], error) {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = PerPagePublic
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "listing.Run", trace.WithAttributes(
		attribute.String("listing.scope", opts.Scope.String()),
		attribute.String("listing.sort", f.Sort),
		attribute.Int("listing.page", page),
		attribute.Int("listing.per_page", perPage),
		attribute.Bool("listing.search", f.Search != ""),
	))
	defer span.End()

	fail := func(stage string, err error) (Page[Item], error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		return Page[Item]{}, fmt.Errorf("listing %s: %w", stage, err)
	}

	conn := db.WithContext(ctx)

	var total int64
	if err := Compose(conn.Model(&models.Post{}), f, opts).Count(&total).Error; err != nil {
		return fail("count", err)
	}
	span.SetAttributes(attribute.Int64("listing.total", total))

	offset, ok := Offset(total, perPage, page)
	if !ok {
		return Paginate[Item](nil, total, perPage, page), nil
	}

	var rows []postRow
	q := Compose(conn.Model(&models.Post{}), f, opts).Select(commentsCountSelect)
	q = applySort(q, f.Sort, opts.Scope)
	if err := q.Offset(offset).Limit(perPage).Find(&rows).Error; err != nil {
		return fail("rows", err)
	}

	posts := make([]models.Post, len(rows))
	for i := range rows {
		posts[i] = rows[i].Post
	}
	tax, err := LoadTaxonomy(ctx, conn, posts)
	if err != nil {
		return fail("taxonomy", err)
	}

	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, Item{
			Post:          r.Post,
			CommentsCount: r.CommentsCount,
			Category:      tax.Category(r.CategoryID),
			Province:      tax.Province(r.ProvinceID),
		})
	}
	return Paginate(items, total, perPage, page), nil
}

// Compose applies the scope and filter predicates of f to q. Filters are
// combined with AND; the search term matches title OR content.
func Compose(q *gorm.DB, f Filters, opts Options) *gorm.DB {
	if opts.Scope == ScopePublic {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		q = q.Where("posts.published_at IS NOT NULL AND posts.published_at <= ?", now.UTC())
	}
	if f.Search != "" {
		pattern := LikePattern(f.Search)
		q = q.Where("(LOWER(posts.title) LIKE ? ESCAPE '!' OR LOWER(posts.content) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	if id, ok := f.CategoryID(); ok {
		q = q.Where("posts.category_id = ?", id)
	}
	if id, ok := f.ProvinceID(); ok {
		q = q.Where("posts.province_id = ?", id)
	}
	return q
}

func applySort(q *gorm.DB, sort string, scope Scope) *gorm.DB {
	timeCol := "posts.published_at"
	if scope == ScopeAdmin {
		timeCol = "posts.created_at"
	}
	switch sort {
	case SortOldest:
		return q.Order(timeCol + " ASC").Order("posts.id ASC")
	case SortMostCommented:
		return q.Order("comments_count DESC").Order("posts.id DESC")
	case SortProvince:
		return q.Order("posts.province_id ASC").Order("posts.id DESC")
	case SortCategory:
		return q.Order("posts.category_id ASC").Order("posts.id DESC")
	default:
		return q.Order(timeCol + " DESC").Order("posts.id DESC")
	}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// LikePattern builds a lower-cased substring pattern for LIKE ... ESCAPE '!'.
func LikePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// Taxonomy holds the categories and provinces referenced by a set of posts.
type Taxonomy struct {
	Categories map[uint]models.Category
	Provinces  map[uint]models.Province
}

// Category returns the category with id, or nil.
func (t Taxonomy) Category(id uint) *models.Category {
	if c, ok := t.Categories[id]; ok {
		return &c
	}
	return nil
}

// Province returns the province with *id, or nil for a nil id.
func (t Taxonomy) Province(id *uint) *models.Province {
	if id == nil {
		return nil
	}
	if p, ok := t.Provinces[*id]; ok {
		return &p
	}
	return nil
}

// LoadTaxonomy fetches the taxonomy of posts with one IN query per table.
func LoadTaxonomy(ctx context.Context, db *gorm.DB, posts []models.Post) (Taxonomy, error) {
	t := Taxonomy{Categories: map[uint]models.Category{}, Provinces: map[uint]models.Province{}}
	if len(posts) == 0 {
		return t, nil
	}

	catIDs := make([]uint, 0, len(posts))
	provIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		catIDs = append(catIDs, p.CategoryID)
		if p.ProvinceID != nil {
			provIDs = append(provIDs, *p.ProvinceID)
		}
	}

	conn := db.WithContext(ctx)
	var cats []models.Category
	if err := conn.Where("id IN ?", utils.UniqueUint(catIDs)).Find(&cats).Error; err != nil {
		return t, err
	}
	for _, c := range cats {
		t.Categories[c.ID] = c
	}

	if len(provIDs) > 0 {
		var provs []models.Province
		if err := conn.Where("id IN ?", utils.UniqueUint(provIDs)).Find(&provs).Error; err != nil {
			return t, err
		}
		for _, p := range provs {
			t.Provinces[p.ID] = p
		}
	}
	return t, nil
}

// CategoryIDByName resolves a category by its exact name.
func CategoryIDByName(ctx context.Context, db *gorm.DB, name string) (uint, bool, error) {
	var c models.Category
	err := db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&c).Error
	if err != nil {
		return 0, false, err
	}
	return c.ID, c.ID != 0, nil
}
