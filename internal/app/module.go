package app

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/module/exchange"
	"github.com/simp-lee/marketdesk/internal/module/message"
	"github.com/simp-lee/marketdesk/internal/module/user"
)

// Module is one dashboard section. It registers its JSON routes on api and
// its htmx page routes on pages, which carry the CSRF check.
type Module interface {
	RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup)
}

var (
	_ Module = (*user.UserModule)(nil)
	_ Module = (*exchange.ExchangeModule)(nil)
	_ Module = (*message.MessageModule)(nil)
)
