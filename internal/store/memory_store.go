package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyhub/pkg/domain"
)

// MemoryStore keeps all five collections in-process. It is used for tests
// and single-node development; the mutex makes it safe for the concurrent
// handlers of net/http.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	usernames     map[string]string // username -> user ID
	resources     map[string]domain.Resource
	resourceOrder []string
	links         map[string]domain.UserResource
	linkOrder     []string
	chats         map[string][]domain.ChatMessage // keyed by user ID, append order
	activities    map[string][]domain.Activity    // keyed by user ID, append order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.User),
		usernames:  make(map[string]string),
		resources:  make(map[string]domain.Resource),
		links:      make(map[string]domain.UserResource),
		chats:      make(map[string][]domain.ChatMessage),
		activities: make(map[string][]domain.Activity),
	}
}

// CreateUser assigns a fresh id and creation time and stores the user.
func (m *MemoryStore) CreateUser(nu domain.NewUser) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		Preferences:  nu.Preferences,
		CreatedAt:    time.Now().UTC(),
	}
	if user.Preferences == nil {
		user.Preferences = domain.Metadata{}
	}
	m.users[user.ID] = user
	m.usernames[user.Username] = user.ID
	return user, nil
}

// GetUser returns a user by ID.
func (m *MemoryStore) GetUser(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByUsername looks up a user by exact, case-sensitive username.
func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.usernames[username]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// CreateResource stores a resource and tracks insertion order.
func (m *MemoryStore) CreateResource(nr domain.NewResource) (domain.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := domain.Resource{
		ID:           uuid.NewString(),
		Title:        nr.Title,
		Description:  nr.Description,
		Type:         nr.Type,
		Source:       nr.Source,
		URL:          nr.URL,
		ThumbnailURL: nr.ThumbnailURL,
		Rating:       nr.Rating,
		Difficulty:   nr.Difficulty,
		Metadata:     nr.Metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if res.Metadata == nil {
		res.Metadata = domain.Metadata{}
	}
	m.resources[res.ID] = res
	m.resourceOrder = append(m.resourceOrder, res.ID)
	return res, nil
}

// GetResource returns a resource by ID.
func (m *MemoryStore) GetResource(id string) (domain.Resource, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[id]
	return r, ok, nil
}

// ListResources returns all resources in insertion order.
func (m *MemoryStore) ListResources() ([]domain.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Resource, 0, len(m.resourceOrder))
	for _, id := range m.resourceOrder {
		if r, ok := m.resources[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListRecentResources returns up to limit resources, newest first.
func (m *MemoryStore) ListRecentResources(limit int) ([]domain.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Resource, 0, limit)
	for i := len(m.resourceOrder) - 1; i >= 0 && len(out) < limit; i-- {
		if r, ok := m.resources[m.resourceOrder[i]]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// SearchResources matches the query as a case-insensitive substring of the
// title or description, optionally restricted to one type. Results keep
// insertion order; there is no ranking.
func (m *MemoryStore) SearchResources(query string, typeFilter domain.ResourceType) ([]domain.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(query)
	out := make([]domain.Resource, 0)
	for _, id := range m.resourceOrder {
		r, ok := m.resources[id]
		if !ok {
			continue
		}
		if typeFilter != "" && r.Type != typeFilter {
			continue
		}
		if strings.Contains(strings.ToLower(r.Title), needle) ||
			strings.Contains(strings.ToLower(r.Description), needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

// CreateUserResource stores a link, applying the creation defaults
// (status saved, progress 0, bookmarked false).
func (m *MemoryStore) CreateUserResource(nl domain.NewUserResource) (domain.UserResource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	link := domain.UserResource{
		ID:         uuid.NewString(),
		UserID:     nl.UserID,
		ResourceID: nl.ResourceID,
		Status:     nl.Status,
		Progress:   nl.Progress,
		Bookmarked: nl.Bookmarked,
		Notes:      nl.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if link.Status == "" {
		link.Status = domain.StatusSaved
	}
	m.links[link.ID] = link
	m.linkOrder = append(m.linkOrder, link.ID)
	return link, nil
}

// GetUserResource returns a link by ID.
func (m *MemoryStore) GetUserResource(id string) (domain.UserResource, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.links[id]
	return l, ok, nil
}

// GetUserResourceByPair returns the link for (user, resource), if any.
func (m *MemoryStore) GetUserResourceByPair(userID, resourceID string) (domain.UserResource, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.linkOrder {
		if l, ok := m.links[id]; ok && l.UserID == userID && l.ResourceID == resourceID {
			return l, true, nil
		}
	}
	return domain.UserResource{}, false, nil
}

// ListUserResourcesWithResource computes the joined view at read time.
// Links whose resource no longer resolves are filtered out.
func (m *MemoryStore) ListUserResourcesWithResource(userID string) ([]domain.SavedResource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.SavedResource, 0)
	for _, id := range m.linkOrder {
		l, ok := m.links[id]
		if !ok || l.UserID != userID {
			continue
		}
		res, ok := m.resources[l.ResourceID]
		if !ok {
			continue
		}
		out = append(out, domain.SavedResource{UserResource: l, Resource: res})
	}
	return out, nil
}

// UpdateUserResource applies a partial update and refreshes UpdatedAt.
func (m *MemoryStore) UpdateUserResource(id string, upd domain.UserResourceUpdate) (domain.UserResource, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[id]
	if !ok {
		return domain.UserResource{}, false, nil
	}
	if upd.Status != nil {
		link.Status = *upd.Status
	}
	if upd.Progress != nil {
		link.Progress = *upd.Progress
	}
	if upd.Bookmarked != nil {
		link.Bookmarked = *upd.Bookmarked
	}
	if upd.Notes != nil {
		link.Notes = *upd.Notes
	}
	link.UpdatedAt = time.Now().UTC()
	m.links[id] = link
	return link, true, nil
}

// CountUserResources returns the number of links owned by the user.
func (m *MemoryStore) CountUserResources(userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, l := range m.links {
		if l.UserID == userID {
			count++
		}
	}
	return count, nil
}

// CreateChatMessage appends a message with a server-assigned timestamp.
func (m *MemoryStore) CreateChatMessage(nm domain.NewChatMessage) (domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    nm.UserID,
		Message:   nm.Message,
		Response:  nm.Response,
		Timestamp: time.Now().UTC(),
	}
	m.chats[msg.UserID] = append(m.chats[msg.UserID], msg)
	return msg, nil
}

// ListChatMessages returns the user's transcript oldest first. Append order
// equals timestamp order because timestamps are assigned here.
func (m *MemoryStore) ListChatMessages(userID string) ([]domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.chats[userID]
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// CreateActivity appends an audit entry with a server-assigned timestamp.
func (m *MemoryStore) CreateActivity(na domain.NewActivity) (domain.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	act := domain.Activity{
		ID:          uuid.NewString(),
		UserID:      na.UserID,
		Action:      na.Action,
		Description: na.Description,
		Metadata:    na.Metadata,
		Timestamp:   time.Now().UTC(),
	}
	if act.Metadata == nil {
		act.Metadata = domain.Metadata{}
	}
	m.activities[act.UserID] = append(m.activities[act.UserID], act)
	return act, nil
}

// ListActivity returns the user's feed newest first.
func (m *MemoryStore) ListActivity(userID string) ([]domain.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reversedActivity(userID, len(m.activities[userID])), nil
}

// ListRecentActivity returns up to limit entries, newest first.
func (m *MemoryStore) ListRecentActivity(userID string, limit int) ([]domain.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reversedActivity(userID, limit), nil
}

func (m *MemoryStore) reversedActivity(userID string, limit int) []domain.Activity {
	acts := m.activities[userID]
	if limit > len(acts) {
		limit = len(acts)
	}
	if limit < 0 {
		limit = 0
	}
	out := make([]domain.Activity, 0, limit)
	for i := len(acts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, acts[i])
	}
	return out
}
