package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/adapters/source"
	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/rules"
	"github.com/mikey/placement-triage/internal/runner"
	"github.com/mikey/placement-triage/internal/triage"
)

var (
	msgFile    string
	emlFile    string
	msgID      string
	msgSubject string
	msgFrom    string
	msgTo      string
	msgSnippet string
	jsonOutput bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a single message",
	Long:  "Scores a message with the rules, consults the LLM when the score is ambiguous and prints the reconciled record.",
	RunE:  runClassify,
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain the rule score of a single message",
	Long:  "Prints the rule-based score, label and reasons without consulting the LLM.",
	RunE:  runExplain,
}

func addMessageFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&msgFile, "file", "f", "", "Path to a JSON message (id, subject, from, to, snippet)")
	cmd.Flags().StringVar(&emlFile, "eml", "", "Path to a raw RFC 5322 message (.eml)")
	cmd.Flags().StringVar(&msgID, "id", "", "Message id (derived from the content if empty)")
	cmd.Flags().StringVarP(&msgSubject, "subject", "s", "", "Message subject")
	cmd.Flags().StringVar(&msgFrom, "from", "", "From header")
	cmd.Flags().StringVar(&msgTo, "to", "", "To header")
	cmd.Flags().StringVar(&msgSnippet, "snippet", "", "Message snippet or body excerpt")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of text")
}

func init() {
	addMessageFlags(classifyCmd)
	addMessageFlags(explainCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(explainCmd)
}

// loadMessage reads the message from --file or --eml, or builds it from the
// flags. Flags given alongside a file override its fields.
func loadMessage() (*core.Message, error) {
	msg := &core.Message{}
	switch {
	case msgFile != "" && emlFile != "":
		return nil, fmt.Errorf("--file and --eml are mutually exclusive")
	case emlFile != "":
		parsed, err := source.ParseEMLFile(emlFile)
		if err != nil {
			return nil, err
		}
		msg = parsed
	case msgFile != "":
		data, err := os.ReadFile(msgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read message file: %w", err)
		}
		if err := json.Unmarshal(data, msg); err != nil {
			return nil, fmt.Errorf("failed to decode message file: %w", err)
		}
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&msg.ID, msgID)
	override(&msg.Subject, msgSubject)
	override(&msg.From, msgFrom)
	override(&msg.To, msgTo)
	override(&msg.Snippet, msgSnippet)

	if strings.TrimSpace(msg.Subject) == "" && strings.TrimSpace(msg.Snippet) == "" {
		return nil, fmt.Errorf("a subject or snippet is required")
	}
	if msg.ID == "" {
		msg.ID = contentID(msg)
	}
	return msg, nil
}

// contentID derives a stable id so repeated runs share cached verdicts
func contentID(msg *core.Message) string {
	sum := sha256.Sum256([]byte(msg.From + "\x00" + msg.Subject + "\x00" + msg.Snippet))
	return "cli-" + hex.EncodeToString(sum[:8])
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func runClassify(cmd *cobra.Command, _ []string) error {
	msg, err := loadMessage()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	return invoke(cmd.Context(), func(ctx context.Context, svc *triage.Service, cfg core.ClassificationConfig, logger *zap.Logger) error {
		engine := rules.NewEngine(cfg, logger)
		record := svc.Classify(ctx, engine, msg)
		if jsonOutput {
			return writeJSON(out, record)
		}
		runner.NewPrinter(out, true).PrintRecord(record)
		return nil
	})
}

func runExplain(cmd *cobra.Command, _ []string) error {
	msg, err := loadMessage()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	return invoke(cmd.Context(), func(cfg core.ClassificationConfig, logger *zap.Logger) error {
		result := rules.NewEngine(cfg, logger).Explain(msg)
		if jsonOutput {
			return writeJSON(out, result)
		}
		fmt.Fprintf(out, "Label: %s (score=%.2f)\n", result.Label, result.Score)
		fmt.Fprintf(out, "Sender: %s (placement=%t)\n", result.SenderEmail, result.IsPlacementSender)
		for _, reason := range result.Reasons {
			fmt.Fprintf(out, "  - %s\n", reason)
		}
		return nil
	})
}
