package typo

import (
	"math/rand"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCorrect_Examples(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"hwo r u", "how r u"},
		{"Hwo are you?", "How are you?"},
		{"HWO ARE YOU", "HOW ARE YOU"},
		{"teh cat", "the cat"},
		{"(teh)", "(the)"},
		{"\"Teh\"...", "\"The\"..."},
		{"i dont know", "i don't know"},
		{"Im here", "I'm here"},
		{"IM HERE", "I'M HERE"},
		{"im here", "I'm here"},
		{"alot of  \tspace", "a lot of  \tspace"},
		{"tEh mixed", "the mixed"},
		{"nothing to fix", "nothing to fix"},
		{"", ""},
		{"   ", "   "},
		{"123 !!", "123 !!"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Correct(tc.in), "input %q", tc.in)
	}
}

func TestCorrect_PreservesWhitespaceRuns(t *testing.T) {
	in := "  waht\n\nis\tteh   plan  "
	assert.Equal(t, "  what\n\nis\tthe   plan  ", Correct(in))
}

func TestCorrect_Idempotent(t *testing.T) {
	var words []string
	for k, v := range Default().table {
		words = append(words, k, v, strings.ToUpper(k), strings.ToUpper(k[:1])+k[1:]+"!", "("+k+")")
	}
	words = append(words, "hello", "world", " ", "\n", "42", "r", "u", "...")

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := rng.Intn(12)
		parts := make([]string, n)
		for j := range parts {
			parts[j] = words[rng.Intn(len(words))]
		}
		s := strings.Join(parts, " ")
		once := Correct(s)
		assert.Equal(t, once, Correct(once), "input %q", s)
	}

	f := func(s string) bool {
		once := Correct(s)
		return Correct(once) == once
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 500}))
}

func TestNew_RejectsNonIdempotentTable(t *testing.T) {
	_, err := New(Table{"teh": "hte", "hte": "the"})
	assert.Error(t, err)

	_, err = New(Table{"Teh": "the", "teh": "the"})
	assert.Error(t, err)

	c, err := New(Table{"colour": "color"})
	require.NoError(t, err)
	assert.Equal(t, "Color me", c.Correct("Colour me"))
}

func TestDefaultTableLoaded(t *testing.T) {
	assert.Greater(t, Default().Len(), 100)
}
