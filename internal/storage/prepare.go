package storage

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupcart/internal/models"
)

// PrepareNew fills the generated fields of a group about to be inserted.
// Shared by the backends so both mint IDs and share tokens the same way.
func PrepareNew(group *models.Group) {
	group.EnsureMaps()
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.ShareToken == "" {
		group.ShareToken = NewShareToken()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	if group.Visibility == "" {
		group.Visibility = models.VisibilityPublic
	}
	if group.DeliveryMethod == "" {
		group.DeliveryMethod = models.DeliveryShipping
	}
}

// NewShareToken returns an opaque, URL-safe token.
func NewShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
