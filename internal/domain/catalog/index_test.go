package catalog

import (
	"errors"
	"testing"
)

func mobsAndVIP() []Definition {
	return []Definition{
		{
			Name:           "Mobs",
			DisplayNameKey: "Category.Mobs",
			Items: []ItemDefinition{
				{Name: "Creeper", Tags: []string{"green", "explosive"}, Texture: "tex-creeper"},
				{Name: "Zombie", Texture: "tex-zombie"},
				{Name: "Husk", Tags: []string{"zombie,mob"}},
			},
		},
		{
			Name:  "VIP",
			Price: 10.0,
			Items: []ItemDefinition{{Name: "Dragon"}},
		},
	}
}

func TestLoad_KeepsLoadOrder(t *testing.T) {
	t.Parallel()

	idx, defects := Load(mobsAndVIP())
	if len(defects) != 0 {
		t.Fatalf("unexpected defects: %v", defects)
	}
	cats := idx.Categories()
	if len(cats) != 2 || cats[0].Name != "Mobs" || cats[1].Name != "VIP" {
		t.Fatalf("Categories() = %v, want [Mobs VIP]", names(cats))
	}
	if idx.ItemCount() != 4 {
		t.Errorf("ItemCount() = %d, want 4", idx.ItemCount())
	}

	items := cats[0].Items()
	want := []string{"Creeper", "Zombie", "Husk"}
	for i, it := range items {
		if it.Name != want[i] {
			t.Errorf("item[%d] = %q, want %q", i, it.Name, want[i])
		}
	}
}

func TestLoad_SplitsCommaTags(t *testing.T) {
	t.Parallel()

	idx, _ := Load(mobsAndVIP())
	_, husk, ok := idx.FindItem("Mobs", "Husk")
	if !ok {
		t.Fatal("Husk not found")
	}
	if len(husk.Tags) != 2 || husk.Tags[0] != "zombie" || husk.Tags[1] != "mob" {
		t.Errorf("Tags = %v, want [zombie mob]", husk.Tags)
	}
}

func TestLoad_DuplicatesFirstWins(t *testing.T) {
	t.Parallel()

	defs := []Definition{
		{Name: "Mobs", Price: 1, Items: []ItemDefinition{{Name: "Creeper", Texture: "first"}, {Name: "Creeper", Texture: "second"}}},
		{Name: "Mobs", Price: 2, Items: []ItemDefinition{{Name: "Ghast"}}},
	}
	idx, defects := Load(defs)

	if len(defects) != 2 {
		t.Fatalf("defects = %d, want 2: %v", len(defects), defects)
	}
	cat, ok := idx.FindCategory("Mobs")
	if !ok {
		t.Fatal("Mobs missing")
	}
	if cat.Price != 1 {
		t.Errorf("Price = %v, want first definition's 1", cat.Price)
	}
	it, _ := cat.Item("Creeper")
	if it.Texture != "first" {
		t.Errorf("Texture = %q, want first", it.Texture)
	}
	if _, _, ok := idx.FindItem("Mobs", "Ghast"); ok {
		t.Error("item from ignored duplicate category should not be indexed")
	}
}

func TestLoad_SkipsBrokenCategories(t *testing.T) {
	t.Parallel()

	parseErr := errors.New("unexpected end of JSON input")
	defs := []Definition{
		{Name: "Broken", Err: parseErr},
		{Name: "", Items: []ItemDefinition{{Name: "Orphan"}}},
		{Name: "Negative", Price: -1},
		{Name: "Locked", RequirePermission: true},
		{Name: "Fine", Items: []ItemDefinition{{Name: "Steve"}, {Name: "  "}}},
	}
	idx, defects := Load(defs)

	if idx.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", idx.Len())
	}
	if _, ok := idx.FindCategory("Fine"); !ok {
		t.Error("Fine should load")
	}
	if len(defects) != 5 {
		t.Fatalf("defects = %d, want 5: %v", len(defects), defects)
	}
	for _, d := range defects {
		if !errors.Is(d, ErrInvalidDefinition) {
			t.Errorf("%v does not wrap ErrInvalidDefinition", d)
		}
	}
	if !errors.Is(defects[0], parseErr) {
		t.Error("source error should be wrapped")
	}
	if !defects[0].SkipsCategory() {
		t.Error("broken item list should skip the category")
	}
	if defects[4].SkipsCategory() {
		t.Error("empty item name should only skip the item")
	}
}

func TestIndex_FindItem(t *testing.T) {
	t.Parallel()

	idx, _ := Load(mobsAndVIP())

	tests := []struct {
		name     string
		category string
		item     string
		found    bool
	}{
		{"existing", "VIP", "Dragon", true},
		{"wrong category", "Mobs", "Dragon", false},
		{"unknown category", "Nope", "Dragon", false},
		{"case sensitive", "mobs", "Creeper", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, ok := idx.FindItem(tt.category, tt.item)
			if ok != tt.found {
				t.Errorf("FindItem(%q, %q) found = %v, want %v", tt.category, tt.item, ok, tt.found)
			}
		})
	}
}

func TestItem_MatchesLower(t *testing.T) {
	t.Parallel()

	idx, _ := Load(mobsAndVIP())
	cat, _ := idx.FindCategory("Mobs")

	var matched []string
	for it := range cat.All() {
		if it.MatchesLower("zomb") {
			matched = append(matched, it.Name)
		}
	}
	if len(matched) != 2 || matched[0] != "Zombie" || matched[1] != "Husk" {
		t.Errorf("matched = %v, want [Zombie Husk]", matched)
	}
}

func TestCategory_ItemsIsCopy(t *testing.T) {
	t.Parallel()

	idx, _ := Load(mobsAndVIP())
	cat, _ := idx.FindCategory("Mobs")

	items := cat.Items()
	items[0] = Item{Name: "Mutated"}

	if got := cat.Items()[0].Name; got != "Creeper" {
		t.Errorf("category mutated through Items(): %q", got)
	}
}

func names(cats []*Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}
