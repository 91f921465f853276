package service

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/rl1809/campus-market/internal/core/domain"
)

// visibleItems keeps the items eligible for search: matching query on name or
// description (case-insensitive), in one of categories when given, and not
// referenced by any completed order.
func visibleItems(items []domain.Item, query string, categories []domain.Category, sold map[string]struct{}) []domain.Item {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))

	visible := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if _, ok := sold[item.ID]; ok {
			continue
		}
		if !inCategories(item.Category, categories) {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold.String(item.Name), needle) &&
			!strings.Contains(fold.String(item.Description), needle) {
			continue
		}
		visible = append(visible, item)
	}
	return visible
}

func inCategories(c domain.Category, categories []domain.Category) bool {
	if len(categories) == 0 {
		return true
	}
	for _, want := range categories {
		if c == want {
			return true
		}
	}
	return false
}
