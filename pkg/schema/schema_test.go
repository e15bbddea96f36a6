package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/pkg/session"
)

func TestTurnRequest_Decode(t *testing.T) {
	body := `{
		"message": "I open the door",
		"conversation": [{"role":"assistant","content":"Welcome!"},{"role":"user","content":"hi"}],
		"characters": {"Kael":"tall","Mira":"small"}
	}`

	var req TurnRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NoError(t, req.Validate())

	assert.Equal(t, "I open the door", req.Message)
	assert.Len(t, req.Conversation, 2)
	assert.Equal(t, []string{"Kael", "Mira"}, req.Characters.Names())
	assert.Zero(t, req.Settings.Len())
}

func TestTurnRequest_Validate(t *testing.T) {
	req := TurnRequest{Conversation: []Message{{Role: "system", Content: "x"}}}
	assert.ErrorIs(t, req.Validate(), ErrInvalidRole)
}

func TestTurnResponse_Encode(t *testing.T) {
	resp := TurnResponse{
		TurnID:     "abc",
		Text:       "Hello.",
		Audio:      []byte{0xff, 0xfb},
		Characters: session.NewKnowledgeBase(session.Record{Name: "Kael", Description: "tall"}),
	}
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"turnId":"abc","text":"Hello.","audio":"//s=","characters":{"Kael":"tall"},"settings":{}}`, string(out))
}

func TestSchema_KnowledgeBaseMapped(t *testing.T) {
	prop, ok := TurnRequestSchema.Properties.Get("characters")
	require.True(t, ok)
	assert.Equal(t, "object", prop.Type)
	require.NotNil(t, prop.AdditionalProperties)
	assert.Equal(t, "string", prop.AdditionalProperties.Type)

	_, err := json.Marshal(Document())
	assert.NoError(t, err)
}
