package store

import "studyhub/pkg/domain"

// Store defines persistence operations for the five dashboard collections.
// Lookups that miss return (zero, false, nil): absence is a value here, the
// HTTP layer turns it into a 404.
type Store interface {
	// users
	CreateUser(domain.NewUser) (domain.User, error)
	GetUser(id string) (domain.User, bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)

	// resources
	CreateResource(domain.NewResource) (domain.Resource, error)
	GetResource(id string) (domain.Resource, bool, error)
	ListResources() ([]domain.Resource, error)
	ListRecentResources(limit int) ([]domain.Resource, error)
	SearchResources(query string, typeFilter domain.ResourceType) ([]domain.Resource, error)

	// user-resource links
	CreateUserResource(domain.NewUserResource) (domain.UserResource, error)
	GetUserResource(id string) (domain.UserResource, bool, error)
	GetUserResourceByPair(userID, resourceID string) (domain.UserResource, bool, error)
	ListUserResourcesWithResource(userID string) ([]domain.SavedResource, error)
	UpdateUserResource(id string, upd domain.UserResourceUpdate) (domain.UserResource, bool, error)
	CountUserResources(userID string) (int, error)

	// chat transcript, oldest first
	CreateChatMessage(domain.NewChatMessage) (domain.ChatMessage, error)
	ListChatMessages(userID string) ([]domain.ChatMessage, error)

	// activity feed, newest first, append-only
	CreateActivity(domain.NewActivity) (domain.Activity, error)
	ListActivity(userID string) ([]domain.Activity, error)
	ListRecentActivity(userID string, limit int) ([]domain.Activity, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
