package cli

import "github.com/stemsi/quizdesk/internal/service"

// PrintCatalog lists the student's quizzes grouped by class and tab.
func PrintCatalog(console *Console, catalog *service.Catalog) {
	console.Printf("Available: %d · Submitted: %d · Closed: %d\n",
		catalog.Counts[service.TabAvailable],
		catalog.Counts[service.TabSubmitted],
		catalog.Counts[service.TabClosed])

	for _, group := range catalog.Classes {
		console.Printf("\n%s\n", group.ClassName)
		for _, tab := range []service.Tab{service.TabAvailable, service.TabSubmitted, service.TabClosed} {
			for _, e := range group.Tab(tab) {
				console.Printf("  [%-9s] #%-5d %s (%d min)%s\n", tab, e.ID, e.Title, e.TimeLimit, window(e))
				if e.Score != nil {
					console.Printf("              score %.2f\n", *e.Score)
				}
			}
		}
	}
}

func window(e service.CatalogEntry) string {
	if e.StartAt == nil || e.EndAt == nil {
		return ""
	}
	const layout = "02 Jan 15:04"
	return "  " + e.StartAt.Local().Format(layout) + " → " + e.EndAt.Local().Format(layout)
}
