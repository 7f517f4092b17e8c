package user

import (
	"github.com/simp-lee/marketdesk/internal/bulk"
	"github.com/simp-lee/marketdesk/internal/collection"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/export"
	"github.com/simp-lee/marketdesk/internal/workspace"
)

// Account statuses.
const (
	StatusActive  = "actif"
	StatusBlocked = "bloque"
	StatusDeleted = "supprime"
)

// Resource describes the marketplace accounts list.
func Resource() *collection.Resource {
	return &collection.Resource{
		Name:         domain.CollectionUsers,
		Label:        "Utilisateurs",
		Entity:       "utilisateurs",
		Path:         "/users",
		StatusField:  "status",
		TypeField:    "role",
		SearchFields: []string{"first_name", "last_name", "email", "phone"},
		Search:       fullName,
		SortKeys:     []string{"last_name", "first_name", "email", "role", "status", "created_at"},
		Statuses:     []string{StatusActive, StatusBlocked, StatusDeleted},
		Types:        []string{"utilisateur", "vendeur", "agent", "administrateur"},
		Scopes:       []string{workspace.ScopeBlocked, workspace.ScopeDeleted},
		ScopeStatus: map[string]string{
			workspace.ScopeBlocked: StatusBlocked,
			workspace.ScopeDeleted: StatusDeleted,
		},
		Actions: []bulk.Action{
			bulk.ActionBlock,
			bulk.ActionUnblock,
			bulk.ActionRestore,
			bulk.ActionDelete,
			bulk.ActionExport,
		},
		Columns: []export.Column{
			{Header: "ID", Field: "id"},
			{Header: "Prénom", Field: "first_name"},
			{Header: "Nom", Field: "last_name"},
			{Header: "Email", Field: "email"},
			{Header: "Téléphone", Field: "phone"},
			{Header: "Rôle", Field: "role"},
			{Header: "Statut", Field: "status"},
			{Header: "Créé le", Field: "created_at"},
		},
		Display: []export.Column{
			{Header: "Nom", Field: "last_name", Format: func(e domain.Entity) string { return fullName(e)[0] }},
			{Header: "Email", Field: "email"},
			{Header: "Rôle", Field: "role"},
			{Header: "Statut", Field: "status"},
			{Header: "Créé le", Field: "created_at"},
		},
		TitleField: "last_name",
	}
}

func fullName(e domain.Entity) []string {
	first, last := e.String("first_name"), e.String("last_name")
	switch {
	case first == "":
		return []string{last}
	case last == "":
		return []string{first}
	default:
		return []string{first + " " + last}
	}
}
