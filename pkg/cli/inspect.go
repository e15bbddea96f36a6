package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"luna/pkg/compose"
	"luna/pkg/diff"
	"luna/pkg/session"
	"luna/pkg/utils"
)

type inspectReport struct {
	Text       string                `json:"text"`
	Characters session.KnowledgeBase `json:"characters"`
	Settings   session.KnowledgeBase `json:"settings"`
	Rejected   []rejection           `json:"rejected,omitempty"`
	Prompt     string                `json:"prompt"`
	Tokens     int                   `json:"tokens,omitempty"`
}

type rejection struct {
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
	Offset int    `json:"offset"`
	Reason string `json:"reason"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Run extraction, sanitizing and prompt composition over a saved narration",
		Long: "Reads raw narrator output from a file (or - for stdin) and prints what a turn " +
			"would keep: the display text, the records found and the image prompt.",
		Args: cobra.ExactArgs(1),
		RunE: runInspect,
	}
	cmd.Flags().String("policy", string(compose.PolicyAllNew), "Character policy: all-new or latest-new")
	cmd.Flags().String("prior", "", "JSON file with {\"characters\":{},\"settings\":{}} known before this turn")
	cmd.Flags().Bool("diff", false, "Print knowledge base changes against --prior instead of JSON")

	RootCmd.AddCommand(cmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	policyFlag, _ := cmd.Flags().GetString("policy")
	priorPath, _ := cmd.Flags().GetString("prior")
	showDiff, _ := cmd.Flags().GetBool("diff")

	policy, err := compose.ParsePolicy(policyFlag)
	if err != nil {
		return err
	}

	raw, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	var prior struct {
		Characters session.KnowledgeBase `json:"characters"`
		Settings   session.KnowledgeBase `json:"settings"`
	}
	if priorPath != "" {
		b, err := os.ReadFile(priorPath)
		if err != nil {
			return fmt.Errorf("read prior: %w", err)
		}
		if err := json.Unmarshal(b, &prior); err != nil {
			return fmt.Errorf("parse prior %s: %w", priorPath, err)
		}
	}

	parsed := session.Parse(raw)
	characters := session.Merge(prior.Characters, parsed.Characters)
	settings := session.Merge(prior.Settings, parsed.Settings)

	out := cmd.OutOrStdout()
	if showDiff {
		changes := append(
			diff.KnowledgeBases("characters", prior.Characters, characters),
			diff.KnowledgeBases("settings", prior.Settings, settings)...,
		)
		diff.Print(out, changes)
		return nil
	}

	report := inspectReport{
		Text:       parsed.Text,
		Characters: characters,
		Settings:   settings,
		Prompt: compose.New(policy).Compose(compose.Input{
			Characters:    characters,
			Settings:      settings,
			NewCharacters: parsed.Characters,
			Narration:     parsed.Text,
		}),
	}
	for _, r := range parsed.Rejected {
		report.Rejected = append(report.Rejected, rejection{Kind: r.Kind.String(), Name: r.Name, Offset: r.Offset, Reason: r.Reason})
	}
	if n, err := utils.NumTokens(raw); err == nil {
		report.Tokens = n
	}

	_, err = fmt.Fprintln(out, utils.PrettyJSON(report))
	return err
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read narration: %w", err)
	}
	return string(b), nil
}
