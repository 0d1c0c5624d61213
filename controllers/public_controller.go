package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/config"
	"github.com/kamtour/tourism/listing"
	"github.com/kamtour/tourism/middleware"
	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/services"
	"github.com/kamtour/tourism/utils"
	"github.com/kamtour/tourism/views"
)

// PublicController serves the reader-facing listings, detail pages and comments.
type PublicController struct {
	db        *gorm.DB
	posts     *services.PostService
	comments  *services.CommentService
	taxonomy  *services.TaxonomyService
	presenter views.Presenter
}

// NewPublicController creates a new PublicController instance.
func NewPublicController(db *gorm.DB, store utils.FileStore) *PublicController {
	cfg := config.Get()
	return &PublicController{
		db:        db,
		posts:     services.NewPostService(db, store, cfg.MaxImageKB),
		comments:  services.NewCommentService(db, cfg.CommentMaxLength),
		taxonomy:  services.NewTaxonomyService(db),
		presenter: views.NewPresenter(store),
	}
}

func queryFilters(ctx *gin.Context) listing.Filters {
	var params listing.Params
	_ = ctx.ShouldBindQuery(&params)
	return listing.ParseFilters(params)
}

// ListPosts is the general published listing.
func (p *PublicController) ListPosts(ctx *gin.Context) {
	f := queryFilters(ctx)
	page, err := listing.Run(ctx.Request.Context(), p.db, f, listing.Options{Scope: listing.ScopePublic, PerPage: listing.PerPagePublic})
	if err != nil {
		serviceFailed(ctx, err, 30, "posts")
		return
	}
	utils.Success(ctx, gin.H{"posts": p.presenter.Summaries(page), "filters": f})
}

// Grid is the reader post grid with its filter options.
func (p *PublicController) Grid(ctx *gin.Context) {
	f := queryFilters(ctx)
	page, err := listing.Run(ctx.Request.Context(), p.db, f, listing.Options{Scope: listing.ScopePublic, PerPage: listing.PerPageGrid})
	if err != nil {
		serviceFailed(ctx, err, 31, "posts")
		return
	}
	p.gridPayload(ctx, page, f)
}

// Hotels is the grid pinned to the hotel category. The category query
// parameter is ignored; without a hotel category the page is empty.
func (p *PublicController) Hotels(ctx *gin.Context) {
	f := queryFilters(ctx)
	reqCtx := ctx.Request.Context()

	id, found, err := listing.CategoryIDByName(reqCtx, p.db, config.Get().HotelCategory)
	if err != nil {
		serviceFailed(ctx, err, 32, "hotels")
		return
	}
	if !found {
		f = listing.ParseFilters(listing.Params{Search: f.Search, Province: f.Province, Sort: f.Sort, Page: ctx.Query("page")})
		p.gridPayload(ctx, listing.Empty[listing.Item](listing.PerPageHotels, f.Page), f)
		return
	}

	f = f.WithCategory(id)
	page, err := listing.Run(reqCtx, p.db, f, listing.Options{Scope: listing.ScopePublic, PerPage: listing.PerPageHotels})
	if err != nil {
		serviceFailed(ctx, err, 32, "hotels")
		return
	}
	p.gridPayload(ctx, page, f)
}

func (p *PublicController) gridPayload(ctx *gin.Context, page listing.Page[listing.Item], f listing.Filters) {
	reqCtx := ctx.Request.Context()
	cats, err := p.taxonomy.ListCategories(reqCtx)
	if err != nil {
		serviceFailed(ctx, err, 33, "categories")
		return
	}
	provs, err := p.taxonomy.ListProvinces(reqCtx)
	if err != nil {
		serviceFailed(ctx, err, 34, "provinces")
		return
	}
	utils.Success(ctx, gin.H{
		"posts":      p.presenter.Summaries(page),
		"categories": views.Categories(cats),
		"provinces":  views.Provinces(provs),
		"filters":    f,
	})
}

// ShowPost returns a published post by id or slug.
func (p *PublicController) ShowPost(ctx *gin.Context) {
	d, err := p.posts.Get(ctx.Request.Context(), ctx.Param("id"), true)
	if err != nil {
		serviceFailed(ctx, err, 35, "post")
		return
	}
	utils.Success(ctx, gin.H{"post": p.presenter.Detail(d)})
}

// AddComment posts a comment as the authenticated reader.
func (p *PublicController) AddComment(ctx *gin.Context) {
	who, _ := middleware.CurrentIdentity(ctx)
	postID, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40436, "post not found")
		return
	}

	var req struct {
		Content string `json:"content" form:"content" binding:"required"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, 42236, err)
		return
	}

	c, err := p.comments.Add(ctx.Request.Context(), who, postID, req.Content)
	if err != nil {
		serviceFailed(ctx, err, 36, "post")
		return
	}
	utils.Created(ctx, gin.H{"comment": views.Comment(*c, &models.User{ID: who.UserID, Name: who.Name})})
}

// DeleteComment removes the caller's own comment.
func (p *PublicController) DeleteComment(ctx *gin.Context) {
	who, _ := middleware.CurrentIdentity(ctx)
	postID, ok := paramID(ctx, "id")
	commentID, ok2 := paramID(ctx, "commentId")
	if !ok || !ok2 {
		utils.Error(ctx, http.StatusNotFound, 40437, "comment not found")
		return
	}
	if err := p.comments.Delete(ctx.Request.Context(), who, postID, commentID); err != nil {
		serviceFailed(ctx, err, 37, "comment")
		return
	}
	utils.Success(ctx, gin.H{"deleted": commentID})
}
