package category

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"AI & ML":        "aiml",
		"ai&ml":          "aiml",
		"ai ml":          "aiml",
		"Tech":           "tech",
		"  Web\tDev\n":   "webdev",
		"front-end/ui":   "front-end/ui",
		"":               "",
		"Ünïcode Things": "ünïcodethings",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "вход %q", in)
	}
}

func TestNormalizeWebWhitespace(t *testing.T) {
	assert.Equal(t, "aiml", Normalize("\uFEFFAI\u00A0&\u2003ML"), "BOM и неразрывные пробелы удаляются")
	assert.Equal(t, "a\u0085b", Normalize("a\u0085b"), "U+0085 не считается пробелом")
}

func TestNormalizeIdempotent(t *testing.T) {
	labels := []string{"AI & ML", "  Startup  ", "a&b&c", "Mobile/Web", "ТЕХНОЛОГИИ И ИИ", " x y"}
	for _, l := range labels {
		once := Normalize(l)
		assert.Equal(t, once, Normalize(once), "повторная нормализация %q", l)
	}
}

func TestTally(t *testing.T) {
	got := Tally([]*string{strPtr("Tech"), strPtr("tech"), nil})
	assert.Equal(t, map[string]int{"tech": 2, "all": 3}, got)
}

func TestTallyEmpty(t *testing.T) {
	assert.Equal(t, map[string]int{"all": 0}, Tally(nil))
}

func TestTallySkipsEmptyLabels(t *testing.T) {
	got := Tally([]*string{strPtr(""), nil, strPtr("Design")})
	assert.Equal(t, map[string]int{"design": 1, "all": 3}, got)
}

func TestTallyProperties(t *testing.T) {
	pool := []*string{nil, strPtr(""), strPtr("AI & ML"), strPtr("ai ml"), strPtr("Business"), strPtr("Mobile"), strPtr("design")}
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		n := rnd.Intn(30)
		input := make([]*string, n)
		nonEmpty := 0
		for j := range input {
			input[j] = pool[rnd.Intn(len(pool))]
			if input[j] != nil && *input[j] != "" {
				nonEmpty++
			}
		}

		got := Tally(input)
		assert.Equal(t, n, got[AllKey])

		sum := 0
		for k, v := range got {
			if k != AllKey {
				sum += v
			}
		}
		assert.Equal(t, nonEmpty, sum)

		// порядок входа не влияет на результат
		shuffled := append([]*string(nil), input...)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, got, Tally(shuffled))
	}
}

func TestVocabularyIDsAreNormalized(t *testing.T) {
	for _, c := range Vocabulary {
		assert.Equal(t, c.ID, Normalize(c.ID))
	}
}
