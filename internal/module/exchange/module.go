package exchange

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/collection"
)

// ExchangeModule implements the app.Module interface for exchange listings.
type ExchangeModule struct {
	list *collection.Module
}

// NewModule creates an ExchangeModule serving svc.
// Panics if svc is nil.
func NewModule(svc *collection.Service, maxPageSize int) *ExchangeModule {
	if svc == nil {
		panic("exchange.NewModule: service must not be nil")
	}
	return &ExchangeModule{
		list: collection.NewModule(collection.NewHandler(svc, maxPageSize), collection.NewPageHandler(svc, maxPageSize)),
	}
}

// RegisterRoutes registers exchange API and page routes.
func (m *ExchangeModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	m.list.RegisterRoutes(api, pages)
}
