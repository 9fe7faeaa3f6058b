// Package category нормализует названия категорий и считает посты по ним.
package category

import (
	"strings"
	"unicode"
)

// AllKey - зарезервированный ключ с общим числом просмотренных постов
const AllKey = "all"

// Category - элемент витринного словаря категорий
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Vocabulary - фиксированный набор категорий интерфейса. На запись не накладывается.
var Vocabulary = []Category{
	{ID: "technology", Name: "Technology"},
	{ID: "design", Name: "Design"},
	{ID: "startup", Name: "Startup"},
	{ID: "ai", Name: "AI & ML"},
	{ID: "mobile", Name: "Mobile"},
	{ID: "business", Name: "Business"},
}

// Normalize приводит название к ключу: нижний регистр, без пробельных символов и '&'.
func Normalize(label string) string {
	return strings.Map(func(r rune) rune {
		if isSpace(r) || r == '&' {
			return -1
		}
		return r
	}, strings.ToLower(label))
}

// isSpace - набор пробельных символов веб-клиента: U+FEFF пробел, U+0085 нет
func isSpace(r rune) bool {
	switch r {
	case '\uFEFF':
		return true
	case '\u0085':
		return false
	}
	return unicode.IsSpace(r)
}

// Tally считает посты по нормализованным категориям.
// nil и пустая строка в подсчет по ключам не попадают, но учитываются в AllKey.
func Tally(categories []*string) map[string]int {
	result := make(map[string]int)
	total := 0
	for _, c := range categories {
		total++
		if c == nil || *c == "" {
			continue
		}
		result[Normalize(*c)]++
	}
	result[AllKey] = total
	return result
}
