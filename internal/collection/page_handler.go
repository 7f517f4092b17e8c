package collection

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/bulk"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/middleware"
	"github.com/simp-lee/marketdesk/internal/pkg"
	"github.com/simp-lee/marketdesk/internal/workspace"
)

const (
	listTemplate  = "collection/list.html"
	tableTemplate = "collection/table.html"
)

// PageHandler renders the list page of a collection and answers its htmx
// requests with the table partial.
type PageHandler struct {
	svc         *Service
	maxPageSize int
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(svc *Service, maxPageSize int) *PageHandler {
	return &PageHandler{svc: svc, maxPageSize: maxPageSize}
}

// ListPage renders the list. htmx requests (search box, filters, pager) get
// the table partial only.
// GET /<collection>
func (h *PageHandler) ListPage(c *gin.Context) {
	params, err := pkg.ParseListParams(c, h.svc.Resource().SortKeys, h.maxPageSize)
	if err != nil {
		if isHTMX(c) {
			h.renderTable(c, h.svc.State(middleware.GetSessionID(c)), pkg.SafeMessage(err, "Paramètres invalides"), domain.NoticeError)
			return
		}
		c.HTML(http.StatusBadRequest, "errors/400.html", gin.H{})
		return
	}

	st, err := h.svc.Load(c.Request.Context(), middleware.GetSessionID(c), params)
	if err != nil {
		slog.DebugContext(c.Request.Context(), "list page: load error", "collection", h.svc.Resource().Name, "error", err)
	}

	if isHTMX(c) {
		h.renderTable(c, st, "", "")
		return
	}
	c.HTML(http.StatusOK, listTemplate, h.data(c, st))
}

// SortHTMX toggles the sort on a column.
// POST /<collection>/sort
func (h *PageHandler) SortHTMX(c *gin.Context) {
	var req SortRequest
	if err := c.ShouldBind(&req); err != nil {
		h.rejectHTMX(c, "Tri invalide")
		return
	}

	st, err := h.svc.RequestSort(middleware.GetSessionID(c), req.Key)
	if err != nil {
		h.rejectHTMX(c, pkg.SafeMessage(err, "Tri invalide"))
		return
	}
	h.renderTable(c, st, "", "")
}

// SelectHTMX changes the selection.
// POST /<collection>/selection
func (h *PageHandler) SelectHTMX(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBind(&req); err != nil {
		h.rejectHTMX(c, "Sélection invalide")
		return
	}

	st, err := h.svc.Select(middleware.GetSessionID(c), req.Op, req.ID)
	if err != nil {
		h.rejectHTMX(c, pkg.SafeMessage(err, "Sélection invalide"))
		return
	}
	h.renderTable(c, st, "", "")
}

// BulkHTMX runs a bulk action on the selection and re-renders the table with
// the aggregated outcome. Export is answered with an HX-Redirect to the
// download so the browser saves the file.
// POST /<collection>/bulk
func (h *PageHandler) BulkHTMX(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBind(&req); err != nil {
		h.rejectHTMX(c, "Action invalide")
		return
	}
	action := bulk.Action(req.Action)
	session := middleware.GetSessionID(c)

	if action == bulk.ActionExport {
		if st := h.svc.State(session); st.SelectedCount == 0 {
			h.rejectHTMX(c, "aucun élément sélectionné")
			return
		}
		c.Header("HX-Redirect", "/"+h.svc.Resource().Name+"/export?scope="+ExportSelection)
		c.Status(http.StatusOK)
		return
	}

	res, st, err := h.svc.Bulk(c.Request.Context(), session, action)
	if err != nil {
		h.renderTable(c, st, pkg.SafeMessage(err, "L'action a échoué"), domain.NoticeError)
		return
	}
	h.renderTable(c, st, res.Summary(), res.Level())
}

// ActHTMX runs one action on one row.
// POST /<collection>/:id/:verb
func (h *PageHandler) ActHTMX(c *gin.Context) {
	h.act(c, bulk.Action(c.Param("verb")))
}

// DeleteHTMX deletes one row.
// DELETE /<collection>/:id
func (h *PageHandler) DeleteHTMX(c *gin.Context) {
	h.act(c, bulk.ActionDelete)
}

func (h *PageHandler) act(c *gin.Context, action bulk.Action) {
	st, err := h.svc.Act(c.Request.Context(), middleware.GetSessionID(c), c.Param("id"), action)
	if err != nil {
		if domain.IsNotFound(err) {
			h.rejectHTMX(c, "Élément introuvable ou déjà supprimé")
			return
		}
		h.renderTable(c, st, pkg.SafeMessage(err, "L'action a échoué"), domain.NoticeError)
		return
	}
	h.renderTable(c, st, "Action effectuée", domain.NoticeSuccess)
}

// Export downloads the selection or the filtered rows as CSV.
// GET /<collection>/export
func (h *PageHandler) Export(c *gin.Context) {
	f, err := h.svc.Export(middleware.GetSessionID(c), c.Query("scope"))
	if err != nil {
		if domain.IsValidation(err) {
			c.HTML(http.StatusBadRequest, "errors/400.html", gin.H{"Message": pkg.SafeMessage(err, "")})
			return
		}
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return
	}
	pkg.Attachment(c, f)
}

// DismissHTMX clears the banner.
// POST /<collection>/notice/dismiss
func (h *PageHandler) DismissHTMX(c *gin.Context) {
	h.renderTable(c, h.svc.Dismiss(middleware.GetSessionID(c)), "", "")
}

func (h *PageHandler) data(c *gin.Context, st workspace.State) gin.H {
	return gin.H{
		"Resource":  h.svc.Resource(),
		"State":     st,
		"BaseURL":   "/" + h.svc.Resource().Name,
		"CSRFToken": middleware.GetCSRFToken(c),
	}
}

func (h *PageHandler) renderTable(c *gin.Context, st workspace.State, toast, level string) {
	if toast != "" {
		pkg.Toast(c, toast, level)
	}
	c.HTML(http.StatusOK, tableTemplate, h.data(c, st))
}

// rejectHTMX leaves the page untouched and shows an error toast.
func (h *PageHandler) rejectHTMX(c *gin.Context, message string) {
	c.Header("HX-Reswap", "none")
	pkg.Toast(c, message, domain.NoticeError)
	c.Status(http.StatusOK)
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}
