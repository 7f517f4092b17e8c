package collection

// SortRequest asks for a sort toggle on Key.
type SortRequest struct {
	Key string `json:"key" form:"key" binding:"required,max=64"`
}

// SelectionRequest changes the selection of the current page.
type SelectionRequest struct {
	Op string `json:"op" form:"op" binding:"required,oneof=toggle toggle_page clear"`
	ID string `json:"id" form:"id" binding:"required_if=Op toggle,max=128"`
}

// BulkRequest runs Action on the current selection.
type BulkRequest struct {
	Action string `json:"action" form:"action" binding:"required,max=32"`
}
