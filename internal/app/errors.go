package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/pkg"
)

type replyFormat int

const (
	replyJSON replyFormat = iota
	replyHTML
	replyHTMX
)

// statusPages lists the status codes that have a dedicated error template.
// Anything else is rendered with the 500 page.
var statusPages = map[int]string{
	http.StatusBadRequest:          "errors/400.html",
	http.StatusNotFound:            "errors/404.html",
	http.StatusInternalServerError: "errors/500.html",
}

// statusLabels are the French fallbacks used when no template can be rendered.
var statusLabels = map[int]string{
	http.StatusBadRequest:          "Requête invalide",
	http.StatusNotFound:            "Page introuvable",
	http.StatusRequestTimeout:      "Délai dépassé",
	http.StatusTooManyRequests:     "Trop de requêtes",
	http.StatusInternalServerError: "Erreur interne du serveur",
	http.StatusBadGateway:          "Réponse invalide du serveur distant",
	http.StatusServiceUnavailable:  "Service indisponible",
}

// replyFormatOf picks how an error is shown. An explicit JSON Accept without
// text/html wins over the browser wildcard.
func replyFormatOf(c *gin.Context) replyFormat {
	if c.GetHeader("HX-Request") == "true" {
		return replyHTMX
	}
	accept := strings.ToLower(strings.TrimSpace(c.GetHeader("Accept")))
	switch {
	case accept == "", strings.Contains(accept, "text/html"):
		return replyHTML
	case strings.Contains(accept, "application/json"):
		return replyJSON
	case strings.Contains(accept, "*/*"):
		return replyHTML
	}
	return replyJSON
}

// renderError answers an error in the client's format. message only reaches
// JSON clients.
func renderError(c *gin.Context, code int, message string) {
	switch replyFormatOf(c) {
	case replyHTMX:
		c.Header("HX-Reswap", "none")
		pkg.Toast(c, toastText(code), domain.NoticeError)
		c.Status(code)
	case replyHTML:
		renderStatusPage(c, code)
	default:
		c.JSON(code, pkg.Response{Code: code, Message: message})
	}
}

func renderStatusPage(c *gin.Context, code int) {
	defer func() {
		if recover() != nil {
			c.Data(code, "text/plain; charset=utf-8", []byte(fmt.Sprintf("%d %s", code, statusLabel(code))))
		}
	}()

	page, ok := statusPages[code]
	if !ok {
		page = statusPages[http.StatusInternalServerError]
	}
	c.HTML(code, page, gin.H{})
}

func statusLabel(code int) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return "Erreur"
}

func toastText(code int) string {
	switch code {
	case http.StatusNotFound:
		return "Élément ou page introuvable"
	case http.StatusRequestTimeout:
		return "Le serveur met trop de temps à répondre"
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return "Serveur injoignable, veuillez réessayer"
	default:
		return "Une erreur est survenue"
	}
}
