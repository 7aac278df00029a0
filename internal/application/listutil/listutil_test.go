package listutil

import (
	"net/url"
	"testing"
)

// TestParsePageParams_Absent verifies the zero value when no paging is asked for.
func TestParsePageParams_Absent(t *testing.T) {
	p := ParsePageParams(url.Values{"window": {"week"}})
	if p.Paged() {
		t.Errorf("expected unpaged params, got %+v", p)
	}
}

// TestParsePageParams_Valid verifies correct parsing of valid page and per_page values.
func TestParsePageParams_Valid(t *testing.T) {
	p := ParsePageParams(url.Values{"page": {"3"}, "per_page": {"20"}})
	if p.Page != 3 {
		t.Errorf("expected page 3, got %d", p.Page)
	}
	if p.PerPage != 20 {
		t.Errorf("expected per_page 20, got %d", p.PerPage)
	}
}

// TestParsePageParams_Fallbacks verifies clamping and default per_page.
func TestParsePageParams_Fallbacks(t *testing.T) {
	tests := []struct {
		name        string
		q           url.Values
		wantPage    int
		wantPerPage int
	}{
		{"page only", url.Values{"page": {"2"}}, 2, DefaultPerPage},
		{"per_page not allowed", url.Values{"per_page": {"25"}}, 1, DefaultPerPage},
		{"negative page", url.Values{"page": {"-1"}, "per_page": {"10"}}, 1, 10},
		{"garbage", url.Values{"page": {"x"}, "per_page": {"y"}}, 1, DefaultPerPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePageParams(tt.q)
			if p.Page != tt.wantPage || p.PerPage != tt.wantPerPage {
				t.Errorf("got %+v, want page %d per_page %d", p, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

// TestNewPageInfo verifies page metadata, including clamping past the end.
func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		perPage    int
		total      int
		wantPages  int
		wantPage   int
		wantStart  int
		wantEnd    int
		wantOffset int
	}{
		{"basic", 1, 20, 85, 5, 1, 1, 20, 0},
		{"page2", 2, 20, 85, 5, 2, 21, 40, 20},
		{"lastPage", 5, 20, 85, 5, 5, 81, 85, 80},
		{"pageBeyondTotal", 10, 20, 85, 5, 5, 81, 85, 80},
		{"emptyList", 1, 20, 0, 1, 1, 0, 0, 0},
		{"exactFit", 1, 10, 10, 1, 1, 1, 10, 0},
		{"unpaged", 0, 0, 7, 1, 1, 1, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewPageInfo(PageParams{Page: tt.page, PerPage: tt.perPage}, tt.total)
			if pi.TotalPages != tt.wantPages {
				t.Errorf("TotalPages: got %d, want %d", pi.TotalPages, tt.wantPages)
			}
			if pi.Page != tt.wantPage {
				t.Errorf("Page: got %d, want %d", pi.Page, tt.wantPage)
			}
			if pi.StartRow() != tt.wantStart {
				t.Errorf("StartRow: got %d, want %d", pi.StartRow(), tt.wantStart)
			}
			if pi.EndRow() != tt.wantEnd {
				t.Errorf("EndRow: got %d, want %d", pi.EndRow(), tt.wantEnd)
			}
			if pi.Offset() != tt.wantOffset {
				t.Errorf("Offset: got %d, want %d", pi.Offset(), tt.wantOffset)
			}
		})
	}
}

// TestSlice verifies page slicing at the edges.
func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name    string
		page    int
		perPage int
		want    []int
	}{
		{"first", 1, 2, []int{1, 2}},
		{"last partial", 3, 2, []int{5}},
		{"clamped", 9, 2, []int{5}},
		{"unpaged", 0, 0, []int{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slice(items, NewPageInfo(PageParams{Page: tt.page, PerPage: tt.perPage}, len(items)))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}

	if got := Slice([]int{}, NewPageInfo(PageParams{Page: 1, PerPage: 10}, 0)); len(got) != 0 {
		t.Errorf("empty slice = %v", got)
	}
}
