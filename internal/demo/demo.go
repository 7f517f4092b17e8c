// Package demo generates the fallback datasets shown when the backend cannot
// be reached. Generation is pure and deterministic: the same collection and
// size always produce the same rows, with stable UUIDs.
package demo

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simp-lee/marketdesk/internal/domain"
)

// Flag is set on every generated row so that demo data is never mistaken for real data.
const Flag = "_demo"

// namespace seeds the name-based UUIDs of demo rows.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("marketdesk/demo"))

// epoch anchors generated timestamps.
var epoch = time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC)

var (
	firstNames = []string{"Awa", "Moussa", "Fatou", "Ibrahima", "Khady", "Omar", "Aminata", "Cheikh", "Ndeye", "Babacar"}
	lastNames  = []string{"Diop", "Ndiaye", "Fall", "Sow", "Ba", "Gueye", "Sarr", "Faye", "Cissé", "Mbaye"}
	roles      = []string{"utilisateur", "vendeur", "agent", "administrateur"}
	titles     = []string{"Vélo tout terrain", "Machine à coudre", "Téléphone Tecno", "Sac de riz 50kg", "Table basse", "Boubou brodé", "Ordinateur portable", "Réfrigérateur"}
	categories = []string{"transport", "maison", "électronique", "alimentation", "mode"}
	subjects   = []string{"Disponibilité de l'article", "Proposition d'échange", "Question sur la livraison", "Signalement", "Remerciements"}

	userStatuses     = []string{"actif", "actif", "actif", "bloque", "actif", "supprime"}
	exchangeStatuses = []string{"en_attente", "disponible", "accepte", "refuse", "indisponible"}
	messageStatuses  = []string{"non_lu", "lu", "lu", "archive"}
)

// For returns n demo rows for the named collection, or nil for an unknown one.
func For(collection string, n int) []domain.Entity {
	switch collection {
	case domain.CollectionUsers:
		return Users(n)
	case domain.CollectionExchanges:
		return Exchanges(n)
	case domain.CollectionMessages:
		return Messages(n)
	default:
		return nil
	}
}

// Users returns n demo marketplace accounts.
func Users(n int) []domain.Entity {
	items := make([]domain.Entity, 0, max(n, 0))
	for i := range max(n, 0) {
		first := firstNames[i%len(firstNames)]
		last := lastNames[(i/len(firstNames)+i)%len(lastNames)]
		items = append(items, domain.Entity{
			"id":         id(domain.CollectionUsers, i),
			"first_name": first,
			"last_name":  last,
			"email":      fmt.Sprintf("%s.%s%d@demo.marketdesk.sn", lower(first), lower(last), i+1),
			"phone":      fmt.Sprintf("+221 77 %03d %02d %02d", 100+i%900, i%100, (i*7)%100),
			"role":       roles[i%len(roles)],
			"status":     userStatuses[i%len(userStatuses)],
			"created_at": timestamp(i),
			Flag:         true,
		})
	}
	return items
}

// Exchanges returns n demo listings offered for exchange.
func Exchanges(n int) []domain.Entity {
	items := make([]domain.Entity, 0, max(n, 0))
	for i := range max(n, 0) {
		items = append(items, domain.Entity{
			"id":           id(domain.CollectionExchanges, i),
			"title":        fmt.Sprintf("%s #%d", titles[i%len(titles)], i+1),
			"category":     categories[i%len(categories)],
			"price":        float64(2500 * (1 + i%12)),
			"status":       exchangeStatuses[i%len(exchangeStatuses)],
			"is_published": i%3 != 0,
			"vendor": map[string]any{
				"id":   id(domain.CollectionUsers, i%7),
				"name": fmt.Sprintf("%s %s", firstNames[i%len(firstNames)], lastNames[i%len(lastNames)]),
			},
			"created_at": timestamp(i),
			Flag:         true,
		})
	}
	return items
}

// Messages returns n demo conversations between users.
func Messages(n int) []domain.Entity {
	items := make([]domain.Entity, 0, max(n, 0))
	for i := range max(n, 0) {
		items = append(items, domain.Entity{
			"id":             id(domain.CollectionMessages, i),
			"subject":        subjects[i%len(subjects)],
			"body":           fmt.Sprintf("Bonjour, message de démonstration numéro %d.", i+1),
			"sender_name":    fmt.Sprintf("%s %s", firstNames[i%len(firstNames)], lastNames[(i+3)%len(lastNames)]),
			"recipient_name": fmt.Sprintf("%s %s", firstNames[(i+5)%len(firstNames)], lastNames[i%len(lastNames)]),
			"status":         messageStatuses[i%len(messageStatuses)],
			"created_at":     timestamp(i),
			Flag:             true,
		})
	}
	return items
}

// IsDemo reports whether e was produced by this package.
func IsDemo(e domain.Entity) bool {
	v, _ := e[Flag].(bool)
	return v
}

func id(collection string, i int) string {
	return uuid.NewSHA1(namespace, fmt.Appendf(nil, "%s/%d", collection, i)).String()
}

func timestamp(i int) string {
	return epoch.Add(-time.Duration(i) * 26 * time.Hour).Format(time.RFC3339)
}

func lower(s string) string {
	b := []rune(s)
	for i, r := range b {
		if r >= 'A' && r <= 'Z' {
			b[i] = r + ('a' - 'A')
		}
	}
	return string(b)
}
