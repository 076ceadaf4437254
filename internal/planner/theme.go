package planner

import (
	"regexp"
	"strconv"
)

// DefaultTheme is used for events created without a course color.
const DefaultTheme = "blue-gradient"

// Themes is the calendar color palette.
var Themes = []string{
	"blue-gradient", "purple-gradient", "green-gradient", "orange-gradient", "pink-gradient",
	"teal-gradient", "red-gradient", "indigo-gradient", "yellow-gradient", "cyan-gradient",
	"emerald-gradient", "rose-gradient", "amber-gradient", "violet-gradient", "sky-gradient",
	"lime-gradient", "fuchsia-gradient", "slate-gradient", "mint-gradient", "coral-gradient",
	"lavender-gradient",
}

// IsTheme reports whether s is a palette entry.
func IsTheme(s string) bool {
	for _, t := range Themes {
		if t == s {
			return true
		}
	}
	return false
}

var titleCode = regexp.MustCompile(`[A-Z]{3,4}\d{4}`)

// CourseKey is the course code found in an event title, else the title itself.
func CourseKey(title string) string {
	if m := titleCode.FindString(title); m != "" {
		return m
	}
	return title
}

// themeHash is the 32-bit base-31 rolling hash of s.
func themeHash(s string) int64 {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// CourseTheme is the palette entry for code at a generation iteration.
func CourseTheme(code string, iteration int) string {
	return pickTheme(code, iteration, Themes)
}

func pickTheme(code string, iteration int, palette []string) string {
	key := code + ":" + strconv.Itoa(iteration)
	return palette[themeHash(key)%int64(len(palette))]
}
