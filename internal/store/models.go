package store

import (
	"time"

	"gorm.io/datatypes"

	"studyhub/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"not null"`
	LastName     string `gorm:"not null"`
	Preferences  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt    time.Time `gorm:"not null"`
}

type ResourceModel struct {
	ID           string `gorm:"primaryKey"`
	Title        string `gorm:"not null"`
	Description  string
	Type         string `gorm:"not null;index"`
	Source       string `gorm:"not null"`
	URL          string
	ThumbnailURL string
	Rating       int
	Difficulty   string
	Metadata     datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt    time.Time         `gorm:"not null;index"`
}

type UserResourceModel struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"not null;index"`
	ResourceID string `gorm:"not null;index"`
	Status     string `gorm:"not null"`
	Progress   int
	Bookmarked bool
	Notes      string
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

type ChatMessageModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;index"`
	Message   string `gorm:"not null"`
	Response  string
	Timestamp time.Time `gorm:"not null;index"`
}

type ActivityModel struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"not null;index"`
	Action      string `gorm:"not null"`
	Description string `gorm:"not null"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	Timestamp   time.Time         `gorm:"not null;index"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Preferences:  datatypes.JSONMap(u.Preferences),
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Preferences:  domain.Metadata(m.Preferences),
		CreatedAt:    m.CreatedAt,
	}
}

func resourceToModel(r domain.Resource) ResourceModel {
	return ResourceModel{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Type:         string(r.Type),
		Source:       r.Source,
		URL:          r.URL,
		ThumbnailURL: r.ThumbnailURL,
		Rating:       r.Rating,
		Difficulty:   string(r.Difficulty),
		Metadata:     datatypes.JSONMap(r.Metadata),
		CreatedAt:    r.CreatedAt,
	}
}

func resourceFromModel(m ResourceModel) domain.Resource {
	return domain.Resource{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		Type:         domain.ResourceType(m.Type),
		Source:       m.Source,
		URL:          m.URL,
		ThumbnailURL: m.ThumbnailURL,
		Rating:       m.Rating,
		Difficulty:   domain.Difficulty(m.Difficulty),
		Metadata:     domain.Metadata(m.Metadata),
		CreatedAt:    m.CreatedAt,
	}
}

func userResourceToModel(l domain.UserResource) UserResourceModel {
	return UserResourceModel{
		ID:         l.ID,
		UserID:     l.UserID,
		ResourceID: l.ResourceID,
		Status:     string(l.Status),
		Progress:   l.Progress,
		Bookmarked: l.Bookmarked,
		Notes:      l.Notes,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

func userResourceFromModel(m UserResourceModel) domain.UserResource {
	return domain.UserResource{
		ID:         m.ID,
		UserID:     m.UserID,
		ResourceID: m.ResourceID,
		Status:     domain.SaveStatus(m.Status),
		Progress:   m.Progress,
		Bookmarked: m.Bookmarked,
		Notes:      m.Notes,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func chatMessageFromModel(m ChatMessageModel) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        m.ID,
		UserID:    m.UserID,
		Message:   m.Message,
		Response:  m.Response,
		Timestamp: m.Timestamp,
	}
}

func activityFromModel(m ActivityModel) domain.Activity {
	return domain.Activity{
		ID:          m.ID,
		UserID:      m.UserID,
		Action:      m.Action,
		Description: m.Description,
		Metadata:    domain.Metadata(m.Metadata),
		Timestamp:   m.Timestamp,
	}
}
