package domain

// DefaultSecondaryColor is used for colors missing from the palette
const DefaultSecondaryColor = "bg-gray-50 dark:bg-gray-900/20"

// secondaryColors maps a stage accent color to its column background
var secondaryColors = map[string]string{
	"bg-red-500":     "bg-red-50 dark:bg-red-900/20",
	"bg-orange-500":  "bg-orange-50 dark:bg-orange-900/20",
	"bg-yellow-500":  "bg-yellow-50 dark:bg-yellow-900/20",
	"bg-green-500":   "bg-green-50 dark:bg-green-900/20",
	"bg-blue-500":    "bg-blue-50 dark:bg-blue-900/20",
	"bg-indigo-500":  "bg-indigo-50 dark:bg-indigo-900/20",
	"bg-purple-500":  "bg-purple-50 dark:bg-purple-900/20",
	"bg-pink-500":    "bg-pink-50 dark:bg-pink-900/20",
	"bg-gray-500":    "bg-gray-50 dark:bg-gray-900/20",
	"bg-cyan-500":    "bg-cyan-50 dark:bg-cyan-900/20",
	"bg-teal-500":    "bg-teal-50 dark:bg-teal-900/20",
	"bg-emerald-500": "bg-emerald-50 dark:bg-emerald-900/20",
}

// SecondaryColorFor derives the column background from a stage color
func SecondaryColorFor(color string) string {
	if bg, ok := secondaryColors[color]; ok {
		return bg
	}
	return DefaultSecondaryColor
}

// IsPaletteColor reports whether color is one of the known stage colors
func IsPaletteColor(color string) bool {
	_, ok := secondaryColors[color]
	return ok
}
