package domain

// MusicCategory is a curated search category.
type MusicCategory string

// Music categories.
const (
	CategoryGlobal50 MusicCategory = "global50"
	CategoryPop      MusicCategory = "pop"
	CategoryRock     MusicCategory = "rock"
	CategorySoothing MusicCategory = "soothing"
)

// DefaultCategoryLimit is the number of tracks a category load collects.
const DefaultCategoryLimit = 50

var categoryQueries = map[MusicCategory][]string{
	CategoryGlobal50: {"global top songs playlist official", "world top 50 songs official"},
	CategoryPop:      {"latest pop hits playlist", "top pop songs official"},
	CategoryRock:     {"best rock hits playlist", "classic and modern rock songs"},
	CategorySoothing: {"soothing songs playlist", "relaxing chill music playlist"},
}

var categoryLabels = map[MusicCategory]string{
	CategoryGlobal50: "Global Top 50",
	CategoryPop:      "Pop",
	CategoryRock:     "Rock",
	CategorySoothing: "Soothing",
}

// Categories lists the categories in display order.
func Categories() []MusicCategory {
	return []MusicCategory{CategoryGlobal50, CategoryPop, CategoryRock, CategorySoothing}
}

// Queries returns the search queries of the category.
func (c MusicCategory) Queries() []string {
	return append([]string{}, categoryQueries[c]...)
}

// Label returns the display name of the category.
func (c MusicCategory) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Valid reports whether c is a known category.
func (c MusicCategory) Valid() bool {
	_, ok := categoryQueries[c]
	return ok
}
