package references

import (
	"strings"
	"testing"
)

func TestCatalog(t *testing.T) {
	refs, err := Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(refs) != 21 {
		t.Fatalf("len(Catalog()) = %d, want 21", len(refs))
	}

	byID := make(map[string]string, len(refs))
	for _, r := range refs {
		byID[r.ID] = r.Metadata.Name
	}

	for id, name := range map[string]string{
		"celeb_brad_pitt":         "Brad Pitt",
		"celeb_timothee_chalamet": "Timothée Chalamet",
		"celeb_lupita_nyongo":     "Lupita Nyong'o",
		"art_david_michelangelo":  "David of Michelangelo",
		"art_venus_botticelli":    "Venus (Botticelli)",
		"art_nefertiti":           "Queen Nefertiti",
	} {
		if byID[id] != name {
			t.Errorf("catalog[%s] = %q, want %q", id, byID[id], name)
		}
	}

	counts := map[string]int{}
	for _, r := range refs {
		counts[r.Metadata.Category]++
	}
	if counts["male"] != 10 || counts["female"] != 8 || counts["art"] != 3 {
		t.Errorf("category counts = %v", counts)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Brad Pitt", "brad_pitt"},
		{"Timothée Chalamet", "timothee_chalamet"},
		{"Lupita Nyong'o", "lupita_nyongo"},
		{"Venus (Botticelli)", "venus_botticelli"},
		{"  Jean-Paul   Belmondo ", "jean_paul_belmondo"},
		{"Zendaya", "zendaya"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "wrong dimension",
			doc:     "references:\n  - name: A\n    values: [1, 2, 3]\n",
			wantErr: "has 3 values",
		},
		{
			name:    "non-positive value",
			doc:     "references:\n  - name: A\n    values: [1, 1, 0, 1, 1]\n",
			wantErr: "non-positive",
		},
		{
			name:    "missing name",
			doc:     "references:\n  - values: [1, 1, 1, 1, 1]\n",
			wantErr: "no name",
		},
		{
			name:    "duplicate id",
			doc:     "references:\n  - name: A B\n    values: [1, 1, 1, 1, 1]\n  - name: a-b\n    values: [1, 1, 1, 1, 1]\n",
			wantErr: "duplicate reference id",
		},
		{
			name:    "malformed yaml",
			doc:     "references: [",
			wantErr: "parsing reference catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestBatches(t *testing.T) {
	refs, err := Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}

	batches := Batches(refs, SeedBatchSize)
	if len(batches) != 3 {
		t.Fatalf("len(Batches()) = %d, want 3", len(batches))
	}
	sizes := []int{len(batches[0]), len(batches[1]), len(batches[2])}
	if sizes[0] != 10 || sizes[1] != 10 || sizes[2] != 1 {
		t.Errorf("batch sizes = %v, want [10 10 1]", sizes)
	}
	if len(Batches(nil, 10)) != 0 {
		t.Error("Batches(nil) should be empty")
	}
}
