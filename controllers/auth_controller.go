package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/kamtour/tourism/config"
	"github.com/kamtour/tourism/listing"
	"github.com/kamtour/tourism/middleware"
	"github.com/kamtour/tourism/models"
	"github.com/kamtour/tourism/utils"
)

// AuthController handles local and OAuth sign-in plus the admin user list.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type registerRequest struct {
	Name                 string `json:"name" binding:"required,max=100"`
	Email                string `json:"email" binding:"required,email,max=255"`
	Password             string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// Register creates a local account and signs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindFailed(ctx, 42201, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(utils.PlainText(req.Name))
	if name == "" {
		utils.Invalid(ctx, 42201, map[string]string{"name": "is required"})
		return
	}

	var taken int64
	if err := a.db.Model(&models.User{}).Unscoped().Where("email = ?", email).Count(&taken).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check email")
		return
	}
	if taken > 0 {
		utils.Invalid(ctx, 42202, map[string]string{"email": "has already been taken"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to secure password")
		return
	}

	user := models.User{Name: name, Email: email, PasswordHash: hash, Role: models.RoleUser}
	if config.Get().IsAdminEmail(email) {
		user.Role = models.RoleAdmin
	}
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Invalid(ctx, 42202, map[string]string{"email": "has already been taken"})
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create user")
		return
	}
	utils.Logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", user.Role))

	a.issueToken(ctx, user, http.StatusCreated)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindFailed(ctx, 42203, err)
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}

	a.issueToken(ctx, user, http.StatusOK)
}

// Logout revokes the presented token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(time.Duration(config.Get().TokenTTLHours) * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	who, ok := middleware.CurrentIdentity(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	var user models.User
	if err := a.db.First(&user, who.UserID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, userResponse(user))
}

// ListUsers returns users newest first, paginated like the post tables.
func (a *AuthController) ListUsers(ctx *gin.Context) {
	f := listing.ParseFilters(listing.Params{Search: ctx.Query("search"), Page: ctx.Query("page")})
	perPage := listing.PerPageAdmin

	q := a.db.WithContext(ctx.Request.Context()).Model(&models.User{})
	if f.Search != "" {
		term := listing.LikePattern(f.Search)
		q = q.Where("(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!')", term, term)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to count users")
		return
	}
	var users []models.User
	if offset, ok := listing.Offset(total, perPage, f.Page); ok {
		if err := q.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(perPage).Find(&users).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to retrieve users")
			return
		}
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	utils.Success(ctx, listing.Paginate(out, total, perPage, f.Page))
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	utils.Success(ctx, gin.H{"authorization_url": cfg.AuthCodeURL(state), "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	reqCtx := ctx.Request.Context()
	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	info, err := fetchOAuthUser(cfg.Client(reqCtx, token), provider)
	if err != nil {
		utils.Logger.Warn("oauth profile fetch failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to load provider profile")
		return
	}

	user, err := a.findOrCreateOAuthUser(provider, info)
	if err != nil {
		utils.Logger.Error("oauth user persist failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}

	a.issueToken(ctx, *user, http.StatusOK)
}

func (a *AuthController) issueToken(ctx *gin.Context, user models.User, status int) {
	ttl := time.Duration(config.Get().TokenTTLHours) * time.Hour
	token, err := utils.GenerateToken(user, ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(ttl.Seconds()),
		"user":       userResponse(user),
	})
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

func fetchOAuthUser(client *http.Client, provider string) (*oauthUser, error) {
	switch provider {
	case "github":
		return fetchGitHubUser(client)
	case "google":
		return fetchGoogleUser(client)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func getJSON(client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubUser(client *http.Client) (*oauthUser, error) {
	var profile struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(client, "https://api.github.com/user", &profile); err != nil {
		return nil, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	email := ""
	if err := getJSON(client, "https://api.github.com/user/emails", &emails); err == nil {
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	return &oauthUser{
		ID:        fmt.Sprintf("%d", profile.ID),
		Name:      fallback(profile.Name, profile.Login),
		Email:     email,
		AvatarURL: profile.AvatarURL,
	}, nil
}

func fetchGoogleUser(client *http.Client) (*oauthUser, error) {
	var profile struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &profile); err != nil {
		return nil, err
	}
	email := ""
	if profile.VerifiedEmail {
		email = profile.Email
	}
	return &oauthUser{ID: profile.ID, Name: fallback(profile.Name, profile.Email), Email: email, AvatarURL: profile.Picture}, nil
}

// findOrCreateOAuthUser links provider identities to accounts: first by
// provider id, then by verified email, otherwise a new account is created.
func (a *AuthController) findOrCreateOAuthUser(provider string, info *oauthUser) (*models.User, error) {
	var user models.User
	err := a.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("provider = ? AND provider_id = ?", provider, info.ID).First(&user).Error
		if err == nil {
			return tx.Model(&user).Update("avatar_url", info.AvatarURL).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		email := strings.ToLower(strings.TrimSpace(info.Email))
		if email != "" {
			err = tx.Where("email = ?", email).First(&user).Error
			if err == nil {
				return tx.Model(&user).Updates(map[string]interface{}{
					"provider":    provider,
					"provider_id": info.ID,
					"avatar_url":  info.AvatarURL,
				}).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		} else {
			email = fmt.Sprintf("%s-%s@users.noreply.local", provider, info.ID)
		}

		user = models.User{
			Name:       fallback(info.Name, provider+" user"),
			Email:      email,
			Role:       models.RoleUser,
			Provider:   provider,
			ProviderID: info.ID,
			AvatarURL:  info.AvatarURL,
		}
		if config.Get().IsAdminEmail(email) {
			user.Role = models.RoleAdmin
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"is_admin":   user.IsAdmin(),
		"provider":   user.Provider,
		"avatar_url": user.AvatarURL,
		"created_at": user.CreatedAt,
	}
}
