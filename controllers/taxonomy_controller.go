package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/services"
	"github.com/kamtour/tourism/utils"
	"github.com/kamtour/tourism/views"
)

// TaxonomyController exposes category and province lists and their admin CRUD.
type TaxonomyController struct {
	taxonomy *services.TaxonomyService
}

// NewTaxonomyController creates a new TaxonomyController instance.
func NewTaxonomyController(db *gorm.DB) *TaxonomyController {
	return &TaxonomyController{taxonomy: services.NewTaxonomyService(db)}
}

type categoryRequest struct {
	Name string `json:"name" form:"name" binding:"required,max=100"`
}

type provinceRequest struct {
	NameEN string `json:"name_en" form:"name_en" binding:"required,max=100"`
	NameKM string `json:"name_km" form:"name_km" binding:"required,max=100"`
}

// ListCategories returns all categories.
func (t *TaxonomyController) ListCategories(ctx *gin.Context) {
	cats, err := t.taxonomy.ListCategories(ctx.Request.Context())
	if err != nil {
		serviceFailed(ctx, err, 40, "categories")
		return
	}
	utils.Success(ctx, gin.H{"categories": views.Categories(cats)})
}

// CreateCategory adds a category.
func (t *TaxonomyController) CreateCategory(ctx *gin.Context) {
	var req categoryRequest
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, 42241, err)
		return
	}
	c, err := t.taxonomy.CreateCategory(ctx.Request.Context(), req.Name)
	if err != nil {
		serviceFailed(ctx, err, 41, "category")
		return
	}
	utils.Created(ctx, gin.H{"category": views.Category(c)})
}

// UpdateCategory renames a category.
func (t *TaxonomyController) UpdateCategory(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40442, "category not found")
		return
	}
	var req categoryRequest
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, 42242, err)
		return
	}
	c, err := t.taxonomy.UpdateCategory(ctx.Request.Context(), id, req.Name)
	if err != nil {
		serviceFailed(ctx, err, 42, "category")
		return
	}
	utils.Success(ctx, gin.H{"category": views.Category(c)})
}

// DeleteCategory removes an unused category.
func (t *TaxonomyController) DeleteCategory(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40443, "category not found")
		return
	}
	if err := t.taxonomy.DeleteCategory(ctx.Request.Context(), id); err != nil {
		serviceFailed(ctx, err, 43, "category")
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}

// ListProvinces returns all provinces.
func (t *TaxonomyController) ListProvinces(ctx *gin.Context) {
	provs, err := t.taxonomy.ListProvinces(ctx.Request.Context())
	if err != nil {
		serviceFailed(ctx, err, 44, "provinces")
		return
	}
	utils.Success(ctx, gin.H{"provinces": views.Provinces(provs)})
}

// CreateProvince adds a province.
func (t *TaxonomyController) CreateProvince(ctx *gin.Context) {
	var req provinceRequest
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, 42245, err)
		return
	}
	p, err := t.taxonomy.CreateProvince(ctx.Request.Context(), services.ProvinceInput{NameEN: req.NameEN, NameKM: req.NameKM})
	if err != nil {
		serviceFailed(ctx, err, 45, "province")
		return
	}
	utils.Created(ctx, gin.H{"province": views.Province(p)})
}

// UpdateProvince renames a province.
func (t *TaxonomyController) UpdateProvince(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40446, "province not found")
		return
	}
	var req provinceRequest
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, 42246, err)
		return
	}
	p, err := t.taxonomy.UpdateProvince(ctx.Request.Context(), id, services.ProvinceInput{NameEN: req.NameEN, NameKM: req.NameKM})
	if err != nil {
		serviceFailed(ctx, err, 46, "province")
		return
	}
	utils.Success(ctx, gin.H{"province": views.Province(p)})
}

// DeleteProvince removes a province and detaches its posts.
func (t *TaxonomyController) DeleteProvince(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40447, "province not found")
		return
	}
	if err := t.taxonomy.DeleteProvince(ctx.Request.Context(), id); err != nil {
		serviceFailed(ctx, err, 47, "province")
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}
