package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"studyhub/internal/store"
	"studyhub/internal/util"
	"studyhub/pkg/ai"
	"studyhub/pkg/auth"
	"studyhub/pkg/domain"
)

const (
	chatSystemPrompt = "You are an AI Study Buddy helping students learn. Provide clear, concise, and helpful explanations. Use simple language and examples when possible. Format your responses with proper structure using line breaks and bullet points when appropriate."

	summarizeSystemPrompt = "You are an expert at summarizing academic content. Create concise, informative summaries that capture the key points and main concepts. Keep summaries under 200 words."

	recommendSystemPrompt = `You are an AI that recommends learning resources. Generate 3 relevant educational recommendations for the given topic. Return a JSON object with a "recommendations" array of objects containing: title, description, type (book/video/course/article), source, rating (1-5), difficulty (beginner/intermediate/advanced), and estimatedTime.`

	youtubeSearchLimit = 5
)

// VideoSearcher finds external videos for a query.
type VideoSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.Video, error)
}

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
	JWTSecret     string
	Store         store.Store
	Sessions      store.SessionStore
	Generator     ai.TextGenerator
	Videos        VideoSearcher
}

// App is the core application service wiring storage, sessions and the
// external collaborators together.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	generator ai.TextGenerator
	videos    VideoSearcher
}

// New constructs the application with database storage and session management.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch {
		case strings.TrimSpace(cfg.JWTSecret) != "":
			sessionStore = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
		case strings.TrimSpace(cfg.RedisAddr) != "":
			var err error
			sessionStore, err = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
			if err != nil {
				return nil, fmt.Errorf("init redis session store: %w", err)
			}
		default:
			return nil, fmt.Errorf("jwtSecret or redisAddr is required for sessions")
		}
	}

	if cfg.Generator == nil {
		return nil, fmt.Errorf("text generator required")
	}

	return &App{
		store:     dataStore,
		sessions:  sessionStore,
		generator: cfg.Generator,
		videos:    cfg.Videos,
	}, nil
}

// Register creates an account and issues a session token.
func (a *App) Register(username, password, firstName, lastName string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if username == "" || password == "" {
		return domain.User{}, "", fmt.Errorf("%w: username and password required", ErrValidation)
	}
	if firstName == "" || lastName == "" {
		return domain.User{}, "", fmt.Errorf("%w: firstName and lastName required", ErrValidation)
	}
	_, exists, err := a.store.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check username: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrUsernameTaken
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user, err := a.store.CreateUser(domain.NewUser{
		Username:     username,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
	})
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(username, password string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	user, ok, err := a.store.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// Logout invalidates the session token where the store supports it.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, ok, err := a.store.GetUser(uid)
	if err != nil || !ok {
		return domain.User{}, false
	}
	return user, true
}

// Search fans out to local resources, YouTube and AI recommendations.
// The external legs degrade to empty results on failure; only a local
// store failure fails the whole search.
func (a *App) Search(ctx context.Context, query string, typeFilter domain.ResourceType) (domain.SearchResults, error) {
	if strings.TrimSpace(query) == "" {
		return domain.SearchResults{}, fmt.Errorf("%w: query required", ErrValidation)
	}
	if typeFilter != "" && !domain.ValidResourceType(typeFilter) {
		return domain.SearchResults{}, fmt.Errorf("%w: unknown resource type %q", ErrValidation, typeFilter)
	}

	results := domain.SearchResults{
		LocalResources:  []domain.Resource{},
		YouTubeVideos:   []domain.Video{},
		Recommendations: []domain.Recommendation{},
	}
	logger := util.LoggerFromContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		local, err := a.store.SearchResources(query, typeFilter)
		if err != nil {
			return fmt.Errorf("search resources: %w", err)
		}
		results.LocalResources = local
		return nil
	})
	if a.videos != nil && (typeFilter == "" || typeFilter == domain.TypeVideo) {
		g.Go(func() error {
			videos, err := a.videos.Search(gctx, query, youtubeSearchLimit)
			if err != nil {
				logger.Warn("youtube search failed", "error", err)
				return nil
			}
			if videos != nil {
				results.YouTubeVideos = videos
			}
			return nil
		})
	}
	g.Go(func() error {
		recs, err := a.recommend(gctx, query)
		if err != nil {
			logger.Warn("recommendations failed", "error", err)
			return nil
		}
		results.Recommendations = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.SearchResults{}, err
	}
	return results, nil
}

// ListResources returns the shared catalog.
func (a *App) ListResources() ([]domain.Resource, error) {
	return a.store.ListResources()
}

// GetResource returns one catalog entry.
func (a *App) GetResource(id string) (domain.Resource, error) {
	res, ok, err := a.store.GetResource(id)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("fetch resource: %w", err)
	}
	if !ok {
		return domain.Resource{}, ErrNotFound
	}
	return res, nil
}

// CreateResource validates and stores a catalog entry.
func (a *App) CreateResource(nr domain.NewResource) (domain.Resource, error) {
	nr.Title = strings.TrimSpace(nr.Title)
	if nr.Title == "" {
		return domain.Resource{}, fmt.Errorf("%w: title required", ErrValidation)
	}
	if !domain.ValidResourceType(nr.Type) {
		return domain.Resource{}, fmt.Errorf("%w: unknown resource type %q", ErrValidation, nr.Type)
	}
	if !domain.ValidDifficulty(nr.Difficulty) {
		return domain.Resource{}, fmt.Errorf("%w: unknown difficulty %q", ErrValidation, nr.Difficulty)
	}
	if nr.Rating < 0 || nr.Rating > 5 {
		return domain.Resource{}, fmt.Errorf("%w: rating must be 0-5", ErrValidation)
	}
	res, err := a.store.CreateResource(nr)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("create resource: %w", err)
	}
	return res, nil
}

// SaveResource links a resource to the user's collection and logs
// a resource_saved activity.
func (a *App) SaveResource(userID string, nl domain.NewUserResource) (domain.UserResource, error) {
	if strings.TrimSpace(nl.ResourceID) == "" {
		return domain.UserResource{}, fmt.Errorf("%w: resourceId required", ErrValidation)
	}
	if nl.Status != "" && !domain.ValidSaveStatus(nl.Status) {
		return domain.UserResource{}, fmt.Errorf("%w: unknown status %q", ErrValidation, nl.Status)
	}
	if nl.Progress < 0 || nl.Progress > 100 {
		return domain.UserResource{}, fmt.Errorf("%w: progress must be 0-100", ErrValidation)
	}
	nl.UserID = userID

	link, err := a.store.CreateUserResource(nl)
	if err != nil {
		return domain.UserResource{}, fmt.Errorf("save resource: %w", err)
	}

	title := "Unknown"
	if res, ok, err := a.store.GetResource(nl.ResourceID); err == nil && ok {
		title = res.Title
	}
	_, err = a.store.CreateActivity(domain.NewActivity{
		UserID:      userID,
		Action:      "resource_saved",
		Description: "Saved resource: " + title,
		Metadata:    domain.Metadata{"resourceId": nl.ResourceID},
	})
	if err != nil {
		return domain.UserResource{}, fmt.Errorf("log activity: %w", err)
	}
	return link, nil
}

// GetSavedResource returns the user's link for one resource, if any.
func (a *App) GetSavedResource(userID, resourceID string) (domain.UserResource, error) {
	link, ok, err := a.store.GetUserResourceByPair(userID, resourceID)
	if err != nil {
		return domain.UserResource{}, fmt.Errorf("fetch saved resource: %w", err)
	}
	if !ok {
		return domain.UserResource{}, ErrNotFound
	}
	return link, nil
}

// ListSavedResources returns the user's collection joined with the catalog.
func (a *App) ListSavedResources(userID string) ([]domain.SavedResource, error) {
	return a.store.ListUserResourcesWithResource(userID)
}

// UpdateSavedResource applies a partial update to a link the user owns.
func (a *App) UpdateSavedResource(userID, id string, upd domain.UserResourceUpdate) (domain.UserResource, error) {
	if upd.Status != nil && !domain.ValidSaveStatus(*upd.Status) {
		return domain.UserResource{}, fmt.Errorf("%w: unknown status %q", ErrValidation, *upd.Status)
	}
	if upd.Progress != nil && (*upd.Progress < 0 || *upd.Progress > 100) {
		return domain.UserResource{}, fmt.Errorf("%w: progress must be 0-100", ErrValidation)
	}
	existing, ok, err := a.store.GetUserResource(id)
	if err != nil {
		return domain.UserResource{}, fmt.Errorf("fetch saved resource: %w", err)
	}
	if !ok || existing.UserID != userID {
		return domain.UserResource{}, ErrNotFound
	}
	link, ok, err := a.store.UpdateUserResource(id, upd)
	if err != nil {
		return domain.UserResource{}, fmt.Errorf("update saved resource: %w", err)
	}
	if !ok {
		return domain.UserResource{}, ErrNotFound
	}
	return link, nil
}

// ChatHistory returns the user's transcript, oldest first.
func (a *App) ChatHistory(userID string) ([]domain.ChatMessage, error) {
	return a.store.ListChatMessages(userID)
}

// SendChatMessage asks the tutor, persists the exchange as one record and
// logs an ai_chat activity. Tutor failures surface to the caller; nothing
// is persisted in that case.
func (a *App) SendChatMessage(ctx context.Context, userID, message string) (domain.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: message required", ErrValidation)
	}
	response, err := a.generator.GenerateText(ctx, chatSystemPrompt, message)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("tutor response: %w", err)
	}
	msg, err := a.store.CreateChatMessage(domain.NewChatMessage{
		UserID:   userID,
		Message:  message,
		Response: response,
	})
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("save chat message: %w", err)
	}
	_, err = a.store.CreateActivity(domain.NewActivity{
		UserID:      userID,
		Action:      "ai_chat",
		Description: "Asked AI buddy about: " + truncate(message, 50) + "...",
		Metadata:    domain.Metadata{"messageId": msg.ID},
	})
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("log activity: %w", err)
	}
	return msg, nil
}

// Summarize produces a short summary of the supplied content.
func (a *App) Summarize(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: content or url required", ErrValidation)
	}
	summary, err := a.generator.GenerateText(ctx, summarizeSystemPrompt,
		"Please summarize the following content:\n\n"+content)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return summary, nil
}

// Recommendations asks the tutor for learning resources on a topic.
// Unlike the search leg, failures here surface to the caller.
func (a *App) Recommendations(ctx context.Context, topic string) ([]domain.Recommendation, error) {
	if strings.TrimSpace(topic) == "" {
		topic = "general"
	}
	recs, err := a.recommend(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	return recs, nil
}

func (a *App) recommend(ctx context.Context, topic string) ([]domain.Recommendation, error) {
	raw, err := a.generator.GenerateJSON(ctx, recommendSystemPrompt,
		"Recommend learning resources for: "+topic)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Recommendations []domain.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse recommendations: %w", err)
	}
	if parsed.Recommendations == nil {
		return []domain.Recommendation{}, nil
	}
	return parsed.Recommendations, nil
}

// Activity returns the user's feed, newest first.
func (a *App) Activity(userID string) ([]domain.Activity, error) {
	return a.store.ListActivity(userID)
}

// Dashboard aggregates the user summary shown on the landing page.
type Dashboard struct {
	User            domain.User       `json:"user"`
	SavedResources  int               `json:"savedResources"`
	RecentActivity  []domain.Activity `json:"recentActivity"`
	RecentResources []domain.Resource `json:"recentResources"`
}

// GetDashboard builds the dashboard summary for a user.
func (a *App) GetDashboard(userID string) (Dashboard, error) {
	user, ok, err := a.store.GetUser(userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return Dashboard{}, ErrNotFound
	}
	count, err := a.store.CountUserResources(userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("count saved resources: %w", err)
	}
	activity, err := a.store.ListRecentActivity(userID, 5)
	if err != nil {
		return Dashboard{}, fmt.Errorf("fetch activity: %w", err)
	}
	resources, err := a.store.ListRecentResources(3)
	if err != nil {
		return Dashboard{}, fmt.Errorf("fetch resources: %w", err)
	}
	return Dashboard{
		User:            user,
		SavedResources:  count,
		RecentActivity:  activity,
		RecentResources: resources,
	}, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
