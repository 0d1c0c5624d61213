package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/config"
	"github.com/kamtour/tourism/listing"
	"github.com/kamtour/tourism/services"
	"github.com/kamtour/tourism/utils"
	"github.com/kamtour/tourism/views"
)

// PostController serves the admin post table and form endpoints.
type PostController struct {
	db        *gorm.DB
	posts     *services.PostService
	presenter views.Presenter
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, store utils.FileStore) *PostController {
	return &PostController{
		db:        db,
		posts:     services.NewPostService(db, store, config.Get().MaxImageKB),
		presenter: views.NewPresenter(store),
	}
}

type postForm struct {
	Title       string `form:"title" binding:"required,max=255"`
	Content     string `form:"content" binding:"required"`
	CategoryID  string `form:"category_id" binding:"required"`
	ProvinceID  string `form:"province_id"`
	PublishedAt string `form:"published_at"`
	RemoveImage bool   `form:"remove_image"`
}

// ListPosts returns every post, drafts included, with the shared filters.
func (p *PostController) ListPosts(ctx *gin.Context) {
	var params listing.Params
	_ = ctx.ShouldBindQuery(&params)
	f := listing.ParseFilters(params)

	page, err := listing.Run(ctx.Request.Context(), p.db, f, listing.Options{Scope: listing.ScopeAdmin, PerPage: listing.PerPageAdmin})
	if err != nil {
		serviceFailed(ctx, err, 20, "posts")
		return
	}
	utils.Success(ctx, gin.H{"posts": p.presenter.Summaries(page), "filters": f})
}

// GetPost returns one post by id or slug regardless of its publish state.
func (p *PostController) GetPost(ctx *gin.Context) {
	d, err := p.posts.Get(ctx.Request.Context(), ctx.Param("id"), false)
	if err != nil {
		serviceFailed(ctx, err, 21, "post")
		return
	}
	utils.Success(ctx, gin.H{"post": p.presenter.Detail(d)})
}

// CreatePost accepts a multipart post form with an optional image.
func (p *PostController) CreatePost(ctx *gin.Context) {
	in, release, ok := p.bindPost(ctx)
	if !ok {
		return
	}
	defer release()

	post, err := p.posts.Create(ctx.Request.Context(), in)
	if err != nil {
		serviceFailed(ctx, err, 22, "post")
		return
	}
	p.respondDetail(ctx, http.StatusCreated, post.ID)
}

// UpdatePost rewrites a post from a multipart form.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40423, "post not found")
		return
	}
	in, release, ok := p.bindPost(ctx)
	if !ok {
		return
	}
	defer release()

	post, err := p.posts.Update(ctx.Request.Context(), id, in)
	if err != nil {
		serviceFailed(ctx, err, 23, "post")
		return
	}
	p.respondDetail(ctx, http.StatusOK, post.ID)
}

// DeletePost removes a post, its comments and its image.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40424, "post not found")
		return
	}
	if err := p.posts.Delete(ctx.Request.Context(), id); err != nil {
		serviceFailed(ctx, err, 24, "post")
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}

func (p *PostController) respondDetail(ctx *gin.Context, status int, id uint) {
	d, err := p.posts.Get(ctx.Request.Context(), strconv.FormatUint(uint64(id), 10), false)
	if err != nil {
		serviceFailed(ctx, err, 25, "post")
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{"post": p.presenter.Detail(d)})
}

// bindPost validates the form shape and converts it into a PostInput. It
// writes the 422 response itself when the form is unusable. The returned
// func releases the uploaded file.
func (p *PostController) bindPost(ctx *gin.Context) (services.PostInput, func(), bool) {
	release := func() {}
	var form postForm
	if err := ctx.ShouldBind(&form); err != nil {
		bindFailed(ctx, 42220, err)
		return services.PostInput{}, release, false
	}

	fields := map[string]string{}
	in := services.PostInput{
		Title:       form.Title,
		Content:     form.Content,
		RemoveImage: form.RemoveImage,
	}

	if id, err := strconv.ParseUint(strings.TrimSpace(form.CategoryID), 10, 64); err != nil || id == 0 {
		fields["category_id"] = "is invalid"
	} else {
		in.CategoryID = uint(id)
	}
	if raw := strings.TrimSpace(form.ProvinceID); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err != nil || id == 0 {
			fields["province_id"] = "is invalid"
		} else {
			pid := uint(id)
			in.ProvinceID = &pid
		}
	}
	publishedAt, err := services.ParsePublishedAt(form.PublishedAt)
	if ve, ok := services.AsValidation(err); ok {
		for k, v := range ve.Fields {
			fields[k] = v
		}
	}
	in.PublishedAt = publishedAt

	fh, err := ctx.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		fields["image"] = "could not be read"
	default:
		f, err := fh.Open()
		if err != nil {
			fields["image"] = "could not be read"
			break
		}
		release = func() { _ = f.Close() }
		in.Image = &services.Upload{Name: fh.Filename, Size: fh.Size, Reader: f}
	}

	if len(fields) > 0 {
		release()
		utils.Invalid(ctx, 42221, fields)
		return services.PostInput{}, func() {}, false
	}
	return in, release, true
}
