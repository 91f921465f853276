package service

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/rl1809/campus-market/internal/core/domain"
)

func TestVisibleItems(t *testing.T) {
	items := []domain.Item{
		{ID: "1", Name: "Calculator", Description: "TI-84", Category: domain.CategoryElectronics},
		{ID: "2", Name: "Desk", Description: "Oak, fits a calculator", Category: domain.CategoryFurniture},
		{ID: "3", Name: "Notebook", Description: "Ruled", Category: domain.CategoryStationery},
	}

	tests := []struct {
		name       string
		query      string
		categories []domain.Category
		sold       map[string]struct{}
		want       []string
	}{
		{name: "all", want: []string{"1", "2", "3"}},
		{name: "blank query matches all", query: "   ", want: []string{"1", "2", "3"}},
		{name: "name or description", query: "CALCULATOR", want: []string{"1", "2"}},
		{name: "sold excluded", query: "calculator", sold: map[string]struct{}{"1": {}}, want: []string{"2"}},
		{name: "category", categories: []domain.Category{domain.CategoryStationery}, want: []string{"3"}},
		{name: "nothing", query: "bike", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := visibleItems(items, tt.query, tt.categories, tt.sold)
			ids := make([]string, 0, len(got))
			for _, item := range got {
				ids = append(ids, item.ID)
			}
			if diff := cmp.Diff(tt.want, ids, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("visibleItems mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
