package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kamtour/tourism/config"
	"github.com/kamtour/tourism/utils"
)

const maxContactMessage = 5000

// ContactController relays visitor messages to the site inbox.
type ContactController struct {
	mailer utils.Mailer
}

// NewContactController creates a new ContactController instance.
func NewContactController(mailer utils.Mailer) *ContactController {
	return &ContactController{mailer: mailer}
}

// Captcha issues a captcha for the contact form.
func (c *ContactController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"captcha_id": id, "image": b64})
}

// Send validates the form and mails it to the configured address.
func (c *ContactController) Send(ctx *gin.Context) {
	var req struct {
		Email         string `json:"email" form:"email" binding:"required,email,max=255"`
		Message       string `json:"message" form:"message" binding:"required"`
		CaptchaID     string `json:"captcha_id" form:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer" form:"captcha_answer"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		bindFailed(ctx, 42251, err)
		return
	}

	message := strings.TrimSpace(utils.PlainText(req.Message))
	switch {
	case message == "":
		utils.Invalid(ctx, 42252, map[string]string{"message": "is required"})
		return
	case len([]rune(message)) > maxContactMessage:
		utils.Invalid(ctx, 42252, map[string]string{"message": fmt.Sprintf("must be at most %d characters", maxContactMessage)})
		return
	}

	cfg := config.Get()
	if cfg.ContactCaptchaEnabled && !utils.VerifyCaptcha(req.CaptchaID, strings.TrimSpace(req.CaptchaAnswer)) {
		utils.Invalid(ctx, 42253, map[string]string{"captcha_answer": "is incorrect"})
		return
	}
	if cfg.ContactTo == "" {
		utils.Error(ctx, http.StatusServiceUnavailable, 50351, "contact form is not configured")
		return
	}

	from := strings.TrimSpace(req.Email)
	body := fmt.Sprintf("From: %s\n\n%s\n", from, message)
	if err := c.mailer.Send(cfg.ContactTo, "Contact form: "+from, body); err != nil {
		utils.Logger.Error("contact relay failed", zap.String("from", from), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to send message")
		return
	}
	utils.Logger.Info("contact message relayed", zap.String("from", from))
	utils.Success(ctx, gin.H{"message": "sent"})
}
