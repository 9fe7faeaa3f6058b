package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeExcerpt(t *testing.T) {
	assert.Equal(t, "короткий текст", MakeExcerpt("короткий текст"))

	exact := strings.Repeat("a", ExcerptLength)
	assert.Equal(t, exact, MakeExcerpt(exact), "текст ровно на границе не обрезается")

	long := strings.Repeat("я", ExcerptLength+1)
	got := MakeExcerpt(long)
	assert.Equal(t, strings.Repeat("я", ExcerptLength)+"...", got, "обрезка должна идти по рунам")
}

func TestDisplayAuthor(t *testing.T) {
	p := &Post{}
	assert.Equal(t, UnknownAuthor, p.DisplayAuthor())

	empty := ""
	p.Author = &empty
	assert.Equal(t, UnknownAuthor, p.DisplayAuthor())

	name := "Alice"
	p.Author = &name
	assert.Equal(t, "Alice", p.DisplayAuthor())
}
