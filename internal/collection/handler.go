package collection

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/bulk"
	"github.com/simp-lee/marketdesk/internal/middleware"
	"github.com/simp-lee/marketdesk/internal/pkg"
	"github.com/simp-lee/marketdesk/internal/workspace"
)

// Handler serves the JSON API of a collection.
type Handler struct {
	svc         *Service
	maxPageSize int
}

// NewHandler creates a Handler. maxPageSize caps the page_size parameter.
func NewHandler(svc *Service, maxPageSize int) *Handler {
	return &Handler{svc: svc, maxPageSize: maxPageSize}
}

// BulkResponse is the outcome of a bulk action with the refreshed list.
type BulkResponse struct {
	Result  bulk.Result     `json:"result"`
	Summary string          `json:"summary"`
	State   workspace.State `json:"state"`
}

// List handles GET /api/v1/<collection>.
func (h *Handler) List(c *gin.Context) {
	params, err := pkg.ParseListParams(c, h.svc.Resource().SortKeys, h.maxPageSize)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	st, err := h.svc.Load(c.Request.Context(), middleware.GetSessionID(c), params)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, st)
}

// Sort handles POST /api/v1/<collection>/sort.
func (h *Handler) Sort(c *gin.Context) {
	var req SortRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	st, err := h.svc.RequestSort(middleware.GetSessionID(c), req.Key)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, st)
}

// Select handles POST /api/v1/<collection>/selection.
func (h *Handler) Select(c *gin.Context) {
	var req SelectionRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	st, err := h.svc.Select(middleware.GetSessionID(c), req.Op, req.ID)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, st)
}

// Bulk handles POST /api/v1/<collection>/bulk. A partial failure is still a
// 200; the counters tell the outcome. Export answers with the file itself.
func (h *Handler) Bulk(c *gin.Context) {
	var req BulkRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	res, st, err := h.svc.Bulk(c.Request.Context(), middleware.GetSessionID(c), bulk.Action(req.Action))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	if res.Export != nil {
		pkg.Attachment(c, res.Export)
		return
	}

	pkg.Success(c, BulkResponse{Result: res, Summary: res.Summary(), State: st})
}

// Act handles POST /api/v1/<collection>/:id/:verb.
func (h *Handler) Act(c *gin.Context) {
	st, err := h.svc.Act(c.Request.Context(), middleware.GetSessionID(c), c.Param("id"), bulk.Action(c.Param("verb")))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, st)
}

// Delete handles DELETE /api/v1/<collection>/:id.
func (h *Handler) Delete(c *gin.Context) {
	st, err := h.svc.Act(c.Request.Context(), middleware.GetSessionID(c), c.Param("id"), bulk.ActionDelete)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, st)
}

// Export handles GET /api/v1/<collection>/export?scope=selection|filtered.
func (h *Handler) Export(c *gin.Context) {
	f, err := h.svc.Export(middleware.GetSessionID(c), c.Query("scope"))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Attachment(c, f)
}

// Stats handles GET /api/v1/<collection>/stats.
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, st)
}

// Dismiss handles DELETE /api/v1/<collection>/notice.
func (h *Handler) Dismiss(c *gin.Context) {
	pkg.Success(c, h.svc.Dismiss(middleware.GetSessionID(c)))
}
