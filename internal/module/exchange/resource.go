package exchange

import (
	"github.com/simp-lee/marketdesk/internal/bulk"
	"github.com/simp-lee/marketdesk/internal/collection"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/export"
)

// Exchange statuses.
const (
	StatusPending     = "en_attente"
	StatusAvailable   = "disponible"
	StatusAccepted    = "accepte"
	StatusRefused     = "refuse"
	StatusUnavailable = "indisponible"
)

// Resource describes the listings offered for exchange.
func Resource() *collection.Resource {
	return &collection.Resource{
		Name:         domain.CollectionExchanges,
		Label:        "Échanges",
		Entity:       "echanges",
		Path:         "/exchanges",
		StatusField:  "status",
		TypeField:    "category",
		SearchFields: []string{"title", "category", "vendor.name", "description"},
		SortKeys:     []string{"title", "price", "category", "status", "vendor.name", "created_at"},
		Statuses:     []string{StatusPending, StatusAvailable, StatusAccepted, StatusRefused, StatusUnavailable},
		Types:        []string{"transport", "maison", "électronique", "alimentation", "mode"},
		Actions: []bulk.Action{
			bulk.ActionPublish,
			bulk.ActionUnpublish,
			bulk.ActionAccept,
			bulk.ActionRefuse,
			bulk.ActionDuplicate,
			bulk.ActionDelete,
			bulk.ActionExport,
		},
		Columns: []export.Column{
			{Header: "ID", Field: "id"},
			{Header: "Titre", Field: "title"},
			{Header: "Catégorie", Field: "category"},
			{Header: "Prix", Field: "price"},
			{Header: "Statut", Field: "status"},
			{Header: "Publié", Format: published},
			{Header: "Vendeur", Field: "vendor.name"},
			{Header: "Créé le", Field: "created_at"},
		},
		Display: []export.Column{
			{Header: "Titre", Field: "title"},
			{Header: "Catégorie", Field: "category"},
			{Header: "Prix", Field: "price", Format: price},
			{Header: "Vendeur", Field: "vendor.name"},
			{Header: "Statut", Field: "status"},
			{Header: "Publié", Field: "is_published", Format: published},
		},
		TitleField:   "title",
		PublishField: "is_published",
	}
}

func published(e domain.Entity) string {
	if v, _ := e["is_published"].(bool); v {
		return "oui"
	}
	return "non"
}

func price(e domain.Entity) string {
	if p := e.String("price"); p != "" {
		return p + " FCFA"
	}
	return ""
}
