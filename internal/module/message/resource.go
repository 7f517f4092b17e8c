package message

import (
	"github.com/simp-lee/marketdesk/internal/bulk"
	"github.com/simp-lee/marketdesk/internal/collection"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/export"
)

// Message statuses.
const (
	StatusUnread   = "non_lu"
	StatusRead     = "lu"
	StatusArchived = "archive"
)

// Resource describes the messages exchanged between marketplace users.
func Resource() *collection.Resource {
	return &collection.Resource{
		Name:         domain.CollectionMessages,
		Label:        "Messages",
		Entity:       "messages",
		Path:         "/messages",
		StatusField:  "status",
		SearchFields: []string{"subject", "body", "sender_name", "recipient_name"},
		SortKeys:     []string{"subject", "sender_name", "recipient_name", "status", "created_at"},
		Statuses:     []string{StatusUnread, StatusRead, StatusArchived},
		Actions: []bulk.Action{
			bulk.ActionMarkRead,
			bulk.ActionDelete,
			bulk.ActionExport,
		},
		Verbs: map[bulk.Action]string{bulk.ActionMarkRead: "read"},
		Columns: []export.Column{
			{Header: "ID", Field: "id"},
			{Header: "Objet", Field: "subject"},
			{Header: "Expéditeur", Field: "sender_name"},
			{Header: "Destinataire", Field: "recipient_name"},
			{Header: "Message", Field: "body"},
			{Header: "Statut", Field: "status"},
			{Header: "Envoyé le", Field: "created_at"},
		},
		Display: []export.Column{
			{Header: "Objet", Field: "subject"},
			{Header: "Expéditeur", Field: "sender_name"},
			{Header: "Destinataire", Field: "recipient_name"},
			{Header: "Statut", Field: "status"},
			{Header: "Envoyé le", Field: "created_at"},
		},
		TitleField: "subject",
	}
}
