package collection

import "github.com/gin-gonic/gin"

// Module registers the routes of one collection.
type Module struct {
	name        string
	handler     *Handler
	pageHandler *PageHandler
}

// NewModule creates a Module with the given handlers.
// Panics if h or ph is nil.
func NewModule(h *Handler, ph *PageHandler) *Module {
	if h == nil {
		panic("collection.NewModule: handler must not be nil")
	}
	if ph == nil {
		panic("collection.NewModule: pageHandler must not be nil")
	}
	return &Module{name: h.svc.Resource().Name, handler: h, pageHandler: ph}
}

// Name returns the collection name the routes are mounted under.
func (m *Module) Name() string { return m.name }

// RegisterRoutes registers the collection API and page routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	base := "/" + m.name

	// API routes
	api.GET(base, m.handler.List)
	api.GET(base+"/stats", m.handler.Stats)
	api.GET(base+"/export", m.handler.Export)
	api.POST(base+"/sort", m.handler.Sort)
	api.POST(base+"/selection", m.handler.Select)
	api.POST(base+"/bulk", m.handler.Bulk)
	api.DELETE(base+"/notice", m.handler.Dismiss)
	api.POST(base+"/:id/:verb", m.handler.Act)
	api.DELETE(base+"/:id", m.handler.Delete)

	// Page routes
	pages.GET(base, m.pageHandler.ListPage)
	pages.GET(base+"/export", m.pageHandler.Export)
	pages.POST(base+"/sort", m.pageHandler.SortHTMX)
	pages.POST(base+"/selection", m.pageHandler.SelectHTMX)
	pages.POST(base+"/bulk", m.pageHandler.BulkHTMX)
	pages.POST(base+"/notice/dismiss", m.pageHandler.DismissHTMX)
	pages.POST(base+"/:id/:verb", m.pageHandler.ActHTMX)
	pages.DELETE(base+"/:id", m.pageHandler.DeleteHTMX)
}
