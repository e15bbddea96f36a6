package compose

import (
	"fmt"
	"strings"

	"luna/pkg/session"
	"luna/pkg/utils"
)

const (
	// FallbackNarrationRunes caps the narration used when no character is known.
	FallbackNarrationRunes = 400
	// SceneActionRunes caps the narration excerpt that anchors a character clause.
	SceneActionRunes = 250

	CharacterSeparator = "; "
	ClauseSeparator    = ", "
)

// StyleSuffix is appended to every prompt so illustrations share one look.
const StyleSuffix = "storybook fantasy illustration, highly detailed, 8k resolution, " +
	"soft volumetric lighting, warm rim light, painterly textures, " +
	"cinematic composition, 35mm lens, shallow depth of field, sharp focus, masterpiece, best quality"

// NegativePrompt is sent alongside every prompt.
const NegativePrompt = "lowres, bad anatomy, bad hands, missing fingers, extra digit, fewer digits, " +
	"cropped, worst quality, low quality, jpeg artifacts, blurry, watermark, signature, text, deformed face"

// Policy decides which newly introduced characters feed the character clause.
type Policy string

const (
	// PolicyAllNew joins every character introduced this turn.
	PolicyAllNew Policy = "all-new"
	// PolicyLatestNew only uses the last character introduced this turn.
	PolicyLatestNew Policy = "latest-new"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyAllNew:
		return PolicyAllNew, nil
	case PolicyLatestNew:
		return PolicyLatestNew, nil
	default:
		return "", fmt.Errorf("unknown character policy %q", s)
	}
}

// Source says where the character clause came from.
type Source string

const (
	SourceNew       Source = "new"
	SourceMerged    Source = "merged"
	SourceNarration Source = "narration"
)

type Input struct {
	Characters    session.KnowledgeBase
	Settings      session.KnowledgeBase
	NewCharacters session.KnowledgeBase
	Narration     string
}

// Clauses are the parts of a prompt before they are joined.
type Clauses struct {
	Character   string
	Source      Source
	Setting     string
	SceneAction string
	Style       string
}

// List returns the non-empty clauses in prompt order.
func (c Clauses) List() []string {
	var out []string
	for _, s := range []string{c.Character, c.Setting, c.SceneAction, c.Style} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c Clauses) String() string {
	return strings.Join(c.List(), ClauseSeparator)
}

type Composer struct {
	Policy Policy
}

func New(policy Policy) *Composer {
	if policy == "" {
		policy = PolicyAllNew
	}
	return &Composer{Policy: policy}
}

// Compose builds the image prompt for one turn.
func (c *Composer) Compose(in Input) string {
	return c.Clauses(in).String()
}

// Clauses builds each part of the prompt in priority order: characters,
// then setting, then the scene excerpt, then the fixed style.
func (c *Composer) Clauses(in Input) Clauses {
	var out Clauses
	narration := plainNarration(in.Narration)

	switch {
	case in.NewCharacters.Len() > 0:
		out.Character = c.newCharacters(in.NewCharacters)
		out.Source = SourceNew
	case in.Characters.Len() > 0:
		latest, _ := in.Characters.Latest()
		out.Character = oneLine(latest.Description)
		out.Source = SourceMerged
	}
	if out.Character == "" {
		out.Character = utils.LimitRunes(narration, FallbackNarrationRunes)
		out.Source = SourceNarration
	}

	if setting, ok := in.Settings.Latest(); ok {
		out.Setting = oneLine(setting.Description)
	}

	if out.Source != SourceNarration {
		out.SceneAction = utils.LimitRunes(narration, SceneActionRunes)
	}

	out.Style = StyleSuffix
	return out
}

func (c *Composer) newCharacters(kb session.KnowledgeBase) string {
	if c.Policy == PolicyLatestNew {
		latest, _ := kb.Latest()
		return oneLine(latest.Description)
	}
	records := kb.Records()
	parts := make([]string, 0, len(records))
	for _, r := range records {
		if d := oneLine(r.Description); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, CharacterSeparator)
}

// plainNarration drops display markup from narration and keeps it on one line.
func plainNarration(s string) string {
	return oneLine(strings.ReplaceAll(s, "**", ""))
}

// oneLine collapses whitespace runs so prompts stay on one line. Descriptions
// are otherwise used as written.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
