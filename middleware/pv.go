package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/utils"
)

// PageViewRecorder counts successful GETs per UTC day and path. Mount it on
// the content routes worth counting, such as post detail pages.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 300 {
			return
		}

		now := time.Now().UTC()
		err := db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": now}),
		}).Create(&models.PageView{Date: models.Day(now), Path: c.Request.URL.Path, Count: 1}).Error
		if err != nil {
			utils.Logger.Warn("page view not recorded", zap.String("path", c.Request.URL.Path), zap.Error(err))
		}
	}
}
