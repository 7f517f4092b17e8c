package message

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/collection"
)

// MessageModule implements the app.Module interface for messaging.
type MessageModule struct {
	list *collection.Module
	send *SendHandler
}

// NewModule creates a MessageModule serving svc.
// Panics if svc is nil.
func NewModule(svc *collection.Service, maxPageSize int) *MessageModule {
	if svc == nil {
		panic("message.NewModule: service must not be nil")
	}
	return &MessageModule{
		list: collection.NewModule(collection.NewHandler(svc, maxPageSize), collection.NewPageHandler(svc, maxPageSize)),
		send: NewSendHandler(svc),
	}
}

// RegisterRoutes registers message API and page routes.
func (m *MessageModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	m.list.RegisterRoutes(api, pages)

	api.POST("/messages", m.send.Send)
	pages.POST("/messages", m.send.SendHTMX)
}
