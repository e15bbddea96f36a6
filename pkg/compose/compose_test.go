package compose_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/pkg/compose"
	"luna/pkg/session"
)

func kb(pairs ...string) session.KnowledgeBase {
	var out session.KnowledgeBase
	for i := 0; i+1 < len(pairs); i += 2 {
		out.Set(pairs[i], pairs[i+1])
	}
	return out
}

func TestCompose_KaelExample(t *testing.T) {
	raw := `Hello. <character_description name="Kael">tall, scarred, blue eyes</character_description>`
	p := session.Parse(raw)

	prompt := compose.New(compose.PolicyAllNew).Compose(compose.Input{
		Characters:    session.Merge(session.KnowledgeBase{}, p.Characters),
		Settings:      p.Settings,
		NewCharacters: p.Characters,
		Narration:     p.Text,
	})

	assert.True(t, strings.HasPrefix(prompt, "tall, scarred, blue eyes"+compose.ClauseSeparator), prompt)
	assert.True(t, strings.HasSuffix(prompt, compose.StyleSuffix), prompt)
}

func TestCompose_Priority(t *testing.T) {
	narration := "**Kael** draws his blade as the bridge sways."
	characters := kb("Kael", "tall, scarred", "Mira", "small, red braid")
	settings := kb("Bridge", "rope bridge at dusk", "Keep", "grey keep, banners")

	tests := []struct {
		name    string
		policy  compose.Policy
		in      compose.Input
		clauses compose.Clauses
	}{
		{
			name:   "all new characters joined",
			policy: compose.PolicyAllNew,
			in: compose.Input{
				Characters:    characters,
				Settings:      settings,
				NewCharacters: characters,
				Narration:     narration,
			},
			clauses: compose.Clauses{
				Character:   "tall, scarred; small, red braid",
				Source:      compose.SourceNew,
				Setting:     "grey keep, banners",
				SceneAction: "Kael draws his blade as the bridge sways.",
				Style:       compose.StyleSuffix,
			},
		},
		{
			name:   "latest new character only",
			policy: compose.PolicyLatestNew,
			in: compose.Input{
				Characters:    characters,
				NewCharacters: characters,
				Narration:     narration,
			},
			clauses: compose.Clauses{
				Character:   "small, red braid",
				Source:      compose.SourceNew,
				SceneAction: "Kael draws his blade as the bridge sways.",
				Style:       compose.StyleSuffix,
			},
		},
		{
			name:   "falls back to most recent merged character",
			policy: compose.PolicyAllNew,
			in: compose.Input{
				Characters: characters,
				Narration:  narration,
			},
			clauses: compose.Clauses{
				Character:   "small, red braid",
				Source:      compose.SourceMerged,
				SceneAction: "Kael draws his blade as the bridge sways.",
				Style:       compose.StyleSuffix,
			},
		},
		{
			name:   "falls back to narration without scene action",
			policy: compose.PolicyAllNew,
			in: compose.Input{
				Settings:  settings,
				Narration: narration,
			},
			clauses: compose.Clauses{
				Character: "Kael draws his blade as the bridge sways.",
				Source:    compose.SourceNarration,
				Setting:   "grey keep, banners",
				Style:     compose.StyleSuffix,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compose.New(tt.policy).Clauses(tt.in)
			assert.Equal(t, tt.clauses, got)
			assert.Equal(t, strings.Join(tt.clauses.List(), compose.ClauseSeparator), compose.New(tt.policy).Compose(tt.in))
		})
	}
}

func TestCompose_Truncation(t *testing.T) {
	long := strings.Repeat("word ", 200)

	c := compose.New(compose.PolicyAllNew)
	fallback := c.Clauses(compose.Input{Narration: long})
	assert.LessOrEqual(t, len([]rune(fallback.Character)), compose.FallbackNarrationRunes)

	scene := c.Clauses(compose.Input{Characters: kb("A", "a"), Narration: long})
	assert.LessOrEqual(t, len([]rune(scene.SceneAction)), compose.SceneActionRunes)
	assert.NotEmpty(t, scene.SceneAction)
}

func TestCompose_Deterministic(t *testing.T) {
	in := compose.Input{
		Characters:    kb("Kael", "tall", "Mira", "small"),
		Settings:      kb("Keep", "grey"),
		NewCharacters: kb("Mira", "small"),
		Narration:     "They meet.",
	}
	c := compose.New("")
	first := c.Compose(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Compose(in))
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := compose.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, compose.PolicyAllNew, p)

	p, err = compose.ParsePolicy(" Latest-New ")
	require.NoError(t, err)
	assert.Equal(t, compose.PolicyLatestNew, p)

	_, err = compose.ParsePolicy("random")
	assert.Error(t, err)
}

func TestCompose_DescriptionsVerbatim(t *testing.T) {
	c := compose.New(compose.PolicyAllNew).Clauses(compose.Input{
		Characters:    kb("Kael", "tall,\n**scarred** cheek"),
		Settings:      kb("Keep", "grey  **keep**"),
		NewCharacters: kb("Kael", "tall,\n**scarred** cheek"),
		Narration:     "**Kael** waits.",
	})

	assert.Equal(t, "tall, **scarred** cheek", c.Character)
	assert.Equal(t, "grey **keep**", c.Setting)
	assert.Equal(t, "Kael waits.", c.SceneAction)
}
