package domain

import "time"

type ResourceType string

const (
	TypeBook    ResourceType = "book"
	TypeVideo   ResourceType = "video"
	TypeCourse  ResourceType = "course"
	TypeArticle ResourceType = "article"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

type SaveStatus string

const (
	StatusSaved      SaveStatus = "saved"
	StatusInProgress SaveStatus = "in_progress"
	StatusCompleted  SaveStatus = "completed"
)

// Metadata is an open string-keyed mapping carried on users, resources and
// activity records. Values are restricted to what JSON can express.
type Metadata map[string]any

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Preferences  Metadata  `json:"preferences"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUser carries the caller-supplied fields for user creation. The store
// assigns ID and CreatedAt.
type NewUser struct {
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Preferences  Metadata
}

type Resource struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Type         ResourceType `json:"type"`
	Source       string       `json:"source"`
	URL          string       `json:"url,omitempty"`
	ThumbnailURL string       `json:"thumbnailUrl,omitempty"`
	Rating       int          `json:"rating"`
	Difficulty   Difficulty   `json:"difficulty,omitempty"`
	Metadata     Metadata     `json:"metadata"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type NewResource struct {
	Title        string
	Description  string
	Type         ResourceType
	Source       string
	URL          string
	ThumbnailURL string
	Rating       int
	Difficulty   Difficulty
	Metadata     Metadata
}

// UserResource links one user to one resource: save state, progress,
// bookmark and notes. It is the only entity mutable after creation.
type UserResource struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	ResourceID string     `json:"resourceId"`
	Status     SaveStatus `json:"status"`
	Progress   int        `json:"progress"`
	Bookmarked bool       `json:"bookmarked"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// NewUserResource carries caller-supplied link fields. An empty Status
// defaults to "saved" at create time.
type NewUserResource struct {
	UserID     string
	ResourceID string
	Status     SaveStatus
	Progress   int
	Bookmarked bool
	Notes      string
}

// UserResourceUpdate is a partial update; nil fields are left unchanged.
type UserResourceUpdate struct {
	Status     *SaveStatus
	Progress   *int
	Bookmarked *bool
	Notes      *string
}

// SavedResource is the joined view: a user-resource link with its referenced
// resource inlined at read time.
type SavedResource struct {
	UserResource
	Resource Resource `json:"resource"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Response  string    `json:"response,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type NewChatMessage struct {
	UserID   string
	Message  string
	Response string
}

// Activity is an append-only audit entry; it is never updated or deleted.
type Activity struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Metadata    Metadata  `json:"metadata"`
	Timestamp   time.Time `json:"timestamp"`
}

type NewActivity struct {
	UserID      string
	Action      string
	Description string
	Metadata    Metadata
}

// Video is the fixed shape returned by the external video search.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
	URL          string `json:"url"`
	Type         string `json:"type"`
	Source       string `json:"source"`
}

// Recommendation is the fixed shape returned by the AI recommendation call.
type Recommendation struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Type          string `json:"type"`
	Source        string `json:"source"`
	Rating        int    `json:"rating"`
	Difficulty    string `json:"difficulty"`
	EstimatedTime string `json:"estimatedTime"`
}

// SearchResults aggregates the three legs of a dashboard search.
type SearchResults struct {
	LocalResources  []Resource       `json:"localResources"`
	YouTubeVideos   []Video          `json:"youtubeVideos"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ValidResourceType reports whether t is one of the known resource types.
func ValidResourceType(t ResourceType) bool {
	switch t {
	case TypeBook, TypeVideo, TypeCourse, TypeArticle:
		return true
	}
	return false
}

// ValidDifficulty reports whether d is a known difficulty (empty allowed).
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case "", DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// ValidSaveStatus reports whether s is a known save status.
func ValidSaveStatus(s SaveStatus) bool {
	switch s {
	case StatusSaved, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}
