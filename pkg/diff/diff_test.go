package diff

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/pkg/session"
)

func TestKnowledgeBases(t *testing.T) {
	prior := session.NewKnowledgeBase(
		session.Record{Name: "Kael", Description: "tall, scarred, blue eyes"},
		session.Record{Name: "Mira", Description: "small"},
	)
	merged := session.Merge(prior, session.NewKnowledgeBase(
		session.Record{Name: "Kael", Description: "tall, scarred, grey eyes"},
		session.Record{Name: "Orin", Description: "bald"},
	))

	changes := KnowledgeBases("characters", prior, merged)
	require.Len(t, changes, 2)

	assert.Equal(t, "Kael", changes[0].Name)
	assert.Equal(t, Modified, changes[0].State)
	plain := changes[0].Str.Plain()
	assert.Contains(t, plain, "[-blue-]")
	assert.Contains(t, plain, "{+grey")
	assert.True(t, strings.HasPrefix(plain, "tall, scarred, "), plain)

	assert.Equal(t, "Orin", changes[1].Name)
	assert.Equal(t, Added, changes[1].State)
	assert.Equal(t, "{+bald+}", changes[1].Str.Plain())

	assert.Empty(t, KnowledgeBases("characters", merged, merged))
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, []Change{{Kind: "settings", Name: "Keep", State: Added, Str: strEq("", "grey")}})
	assert.Contains(t, buf.String(), "settings")
	assert.Contains(t, buf.String(), "Keep")
	assert.Contains(t, buf.String(), "grey")
}
