package message

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/collection"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/middleware"
	"github.com/simp-lee/marketdesk/internal/pkg"
)

const emptyFields = "destinataire, objet et message sont requis"

// SendHandler sends new messages through the backend.
type SendHandler struct {
	svc *collection.Service
}

// NewSendHandler creates a SendHandler.
func NewSendHandler(svc *collection.Service) *SendHandler {
	return &SendHandler{svc: svc}
}

// Send handles POST /api/v1/messages.
func (h *SendHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	payload, ok := req.Payload()
	if !ok {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, emptyFields, nil))
		return
	}

	st, err := h.svc.Create(c.Request.Context(), middleware.GetSessionID(c), payload)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, pkg.Response{
		Code:    http.StatusCreated,
		Message: "success",
		Data:    st,
	})
}

// SendHTMX handles message sending via htmx form submission.
// POST /messages
func (h *SendHandler) SendHTMX(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		rejectHTMX(c, "Veuillez remplir le destinataire, l'objet et le message")
		return
	}
	payload, ok := req.Payload()
	if !ok {
		rejectHTMX(c, "Veuillez remplir le destinataire, l'objet et le message")
		return
	}

	if _, err := h.svc.Create(c.Request.Context(), middleware.GetSessionID(c), payload); err != nil {
		rejectHTMX(c, pkg.SafeMessage(err, "Envoi impossible, veuillez réessayer"))
		return
	}

	pkg.Toast(c, "Message envoyé", domain.NoticeSuccess)
	c.Header("HX-Redirect", "/messages")
	c.Status(http.StatusOK)
}

func rejectHTMX(c *gin.Context, message string) {
	c.Header("HX-Reswap", "none")
	pkg.Toast(c, message, domain.NoticeError)
	c.Status(http.StatusOK)
}
