package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/config"
	"github.com/kamtour/tourism/listing"
	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/utils"
	"github.com/kamtour/tourism/views"
)

const (
	dashboardLatest = 5
	dashboardHotels = 6
)

// StatsController serves the admin dashboard.
type StatsController struct {
	db        *gorm.DB
	presenter views.Presenter
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, images views.ImageURLer) *StatsController {
	return &StatsController{db: db, presenter: views.NewPresenter(images)}
}

// Dashboard returns the newest posts, the newest hotel posts and site counts.
// A failing counter degrades to 0 instead of failing the page.
func (s *StatsController) Dashboard(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	conn := s.db.WithContext(reqCtx)

	count := func(model interface{}) int64 {
		var n int64
		if err := conn.Model(model).Count(&n).Error; err != nil {
			utils.Logger.Warn("dashboard count failed", zap.String("model", modelName(model)), zap.Error(err))
		}
		return n
	}

	var todayViews int64
	if err := conn.Model(&models.PageView{}).
		Where("date = ?", models.Day(time.Now())).
		Select("COALESCE(SUM(count),0)").
		Scan(&todayViews).Error; err != nil {
		utils.Logger.Warn("dashboard page views failed", zap.Error(err))
	}

	latest, err := listing.Run(reqCtx, s.db, listing.ParseFilters(listing.Params{}), listing.Options{Scope: listing.ScopeAdmin, PerPage: dashboardLatest})
	if err != nil {
		serviceFailed(ctx, err, 60, "dashboard")
		return
	}

	hotels := listing.Empty[listing.Item](dashboardHotels, 1)
	if id, found, err := listing.CategoryIDByName(reqCtx, s.db, config.Get().HotelCategory); err != nil {
		serviceFailed(ctx, err, 61, "dashboard")
		return
	} else if found {
		f := listing.ParseFilters(listing.Params{}).WithCategory(id)
		if hotels, err = listing.Run(reqCtx, s.db, f, listing.Options{Scope: listing.ScopeAdmin, PerPage: dashboardHotels}); err != nil {
			serviceFailed(ctx, err, 61, "dashboard")
			return
		}
	}

	utils.Success(ctx, gin.H{
		"latest_posts": s.presenter.Summaries(latest).Data,
		"hotel_posts":  s.presenter.Summaries(hotels).Data,
		"counts": gin.H{
			"posts":            count(&models.Post{}),
			"published_posts":  publishedCount(conn),
			"comments":         count(&models.Comment{}),
			"users":            count(&models.User{}),
			"categories":       count(&models.Category{}),
			"provinces":        count(&models.Province{}),
			"page_views_today": todayViews,
		},
	})
}

func publishedCount(conn *gorm.DB) int64 {
	var n int64
	err := conn.Model(&models.Post{}).
		Where("published_at IS NOT NULL AND published_at <= ?", time.Now().UTC()).
		Count(&n).Error
	if err != nil {
		utils.Logger.Warn("dashboard count failed", zap.String("model", "published_posts"), zap.Error(err))
	}
	return n
}

func modelName(model interface{}) string {
	switch model.(type) {
	case *models.Post:
		return "posts"
	case *models.Comment:
		return "comments"
	case *models.User:
		return "users"
	case *models.Category:
		return "categories"
	case *models.Province:
		return "provinces"
	default:
		return "unknown"
	}
}
