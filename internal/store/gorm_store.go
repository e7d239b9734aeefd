package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"studyhub/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&ResourceModel{},
		&UserResourceModel{},
		&ChatMessageModel{},
		&ActivityModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateUser inserts a user with a fresh id and creation time.
func (s *GormStore) CreateUser(nu domain.NewUser) (domain.User, error) {
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
	model := userToModel(user)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GetUser returns a user by ID.
func (s *GormStore) GetUser(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByUsername looks up a user by exact username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "username = ?", username).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateResource inserts a resource.
func (s *GormStore) CreateResource(nr domain.NewResource) (domain.Resource, error) {
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
	model := resourceToModel(res)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Resource{}, err
	}
	return res, nil
}

// GetResource returns a resource by ID.
func (s *GormStore) GetResource(id string) (domain.Resource, bool, error) {
	var model ResourceModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Resource{}, false, nil
		}
		return domain.Resource{}, false, err
	}
	return resourceFromModel(model), true, nil
}

// ListResources returns all resources in creation order.
func (s *GormStore) ListResources() ([]domain.Resource, error) {
	return s.listResources("created_at ASC", 0)
}

// ListRecentResources returns the newest resources first.
func (s *GormStore) ListRecentResources(limit int) ([]domain.Resource, error) {
	return s.listResources("created_at DESC", limit)
}

func (s *GormStore) listResources(order string, limit int, conds ...any) ([]domain.Resource, error) {
	var models []ResourceModel
	tx := s.db.Order(order)
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Resource, 0, len(models))
	for _, m := range models {
		out = append(out, resourceFromModel(m))
	}
	return out, nil
}

// SearchResources matches title or description as a case-insensitive
// substring, optionally restricted to one type. Creation order, no ranking.
func (s *GormStore) SearchResources(query string, typeFilter domain.ResourceType) ([]domain.Resource, error) {
	pattern := "%" + query + "%"
	if typeFilter != "" {
		return s.listResources("created_at ASC", 0,
			"(title ILIKE ? OR description ILIKE ?) AND type = ?", pattern, pattern, string(typeFilter))
	}
	return s.listResources("created_at ASC", 0,
		"title ILIKE ? OR description ILIKE ?", pattern, pattern)
}

// CreateUserResource inserts a link with creation defaults applied.
func (s *GormStore) CreateUserResource(nl domain.NewUserResource) (domain.UserResource, error) {
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
	model := userResourceToModel(link)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.UserResource{}, err
	}
	return link, nil
}

// GetUserResource returns a link by ID.
func (s *GormStore) GetUserResource(id string) (domain.UserResource, bool, error) {
	var model UserResourceModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.UserResource{}, false, nil
		}
		return domain.UserResource{}, false, err
	}
	return userResourceFromModel(model), true, nil
}

// GetUserResourceByPair returns the link for (user, resource), if any.
func (s *GormStore) GetUserResourceByPair(userID, resourceID string) (domain.UserResource, bool, error) {
	var model UserResourceModel
	err := s.db.First(&model, "user_id = ? AND resource_id = ?", userID, resourceID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.UserResource{}, false, nil
		}
		return domain.UserResource{}, false, err
	}
	return userResourceFromModel(model), true, nil
}

// ListUserResourcesWithResource computes the joined view at read time.
// Links whose resource row is gone are filtered out.
func (s *GormStore) ListUserResourcesWithResource(userID string) ([]domain.SavedResource, error) {
	var linkModels []UserResourceModel
	if err := s.db.Order("created_at ASC").Find(&linkModels, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	if len(linkModels) == 0 {
		return []domain.SavedResource{}, nil
	}
	ids := make([]string, 0, len(linkModels))
	for _, lm := range linkModels {
		ids = append(ids, lm.ResourceID)
	}
	var resourceModels []ResourceModel
	if err := s.db.Find(&resourceModels, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Resource, len(resourceModels))
	for _, rm := range resourceModels {
		byID[rm.ID] = resourceFromModel(rm)
	}
	out := make([]domain.SavedResource, 0, len(linkModels))
	for _, lm := range linkModels {
		res, ok := byID[lm.ResourceID]
		if !ok {
			continue
		}
		out = append(out, domain.SavedResource{
			UserResource: userResourceFromModel(lm),
			Resource:     res,
		})
	}
	return out, nil
}

// UpdateUserResource applies a partial update and refreshes updated_at.
func (s *GormStore) UpdateUserResource(id string, upd domain.UserResourceUpdate) (domain.UserResource, bool, error) {
	var model UserResourceModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.UserResource{}, false, nil
		}
		return domain.UserResource{}, false, err
	}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if upd.Status != nil {
		updates["status"] = string(*upd.Status)
	}
	if upd.Progress != nil {
		updates["progress"] = *upd.Progress
	}
	if upd.Bookmarked != nil {
		updates["bookmarked"] = *upd.Bookmarked
	}
	if upd.Notes != nil {
		updates["notes"] = *upd.Notes
	}
	if err := s.db.Model(&model).Updates(updates).Error; err != nil {
		return domain.UserResource{}, false, err
	}
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return domain.UserResource{}, false, err
	}
	return userResourceFromModel(model), true, nil
}

// CountUserResources returns the number of links owned by the user.
func (s *GormStore) CountUserResources(userID string) (int, error) {
	var count int64
	if err := s.db.Model(&UserResourceModel{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// CreateChatMessage inserts a message with a server-assigned timestamp.
func (s *GormStore) CreateChatMessage(nm domain.NewChatMessage) (domain.ChatMessage, error) {
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    nm.UserID,
		Message:   nm.Message,
		Response:  nm.Response,
		Timestamp: time.Now().UTC(),
	}
	model := ChatMessageModel{
		ID:        msg.ID,
		UserID:    msg.UserID,
		Message:   msg.Message,
		Response:  msg.Response,
		Timestamp: msg.Timestamp,
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

// ListChatMessages returns the user's transcript oldest first.
func (s *GormStore) ListChatMessages(userID string) ([]domain.ChatMessage, error) {
	var models []ChatMessageModel
	if err := s.db.Order("timestamp ASC").Find(&models, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ChatMessage, 0, len(models))
	for _, m := range models {
		out = append(out, chatMessageFromModel(m))
	}
	return out, nil
}

// CreateActivity inserts an audit entry with a server-assigned timestamp.
func (s *GormStore) CreateActivity(na domain.NewActivity) (domain.Activity, error) {
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
	model := ActivityModel{
		ID:          act.ID,
		UserID:      act.UserID,
		Action:      act.Action,
		Description: act.Description,
		Metadata:    datatypes.JSONMap(act.Metadata),
		Timestamp:   act.Timestamp,
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Activity{}, err
	}
	return act, nil
}

// ListActivity returns the user's feed newest first.
func (s *GormStore) ListActivity(userID string) ([]domain.Activity, error) {
	return s.listActivity(userID, 0)
}

// ListRecentActivity returns up to limit entries, newest first.
func (s *GormStore) ListRecentActivity(userID string, limit int) ([]domain.Activity, error) {
	return s.listActivity(userID, limit)
}

func (s *GormStore) listActivity(userID string, limit int) ([]domain.Activity, error) {
	var models []ActivityModel
	tx := s.db.Order("timestamp DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(models))
	for _, m := range models {
		out = append(out, activityFromModel(m))
	}
	return out, nil
}
