package user

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/collection"
)

// UserModule implements the app.Module interface for marketplace accounts.
type UserModule struct {
	list *collection.Module
}

// NewModule creates a UserModule serving svc.
// Panics if svc is nil.
func NewModule(svc *collection.Service, maxPageSize int) *UserModule {
	if svc == nil {
		panic("user.NewModule: service must not be nil")
	}
	return &UserModule{
		list: collection.NewModule(collection.NewHandler(svc, maxPageSize), collection.NewPageHandler(svc, maxPageSize)),
	}
}

// RegisterRoutes registers user API and page routes.
func (m *UserModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	m.list.RegisterRoutes(api, pages)
}
