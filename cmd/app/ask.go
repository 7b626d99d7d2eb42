package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/statuscheck"
	"github.com/local/assistcore/internal/web"
)

var (
	askUser     string
	askKind     string
	askProvider string
	askContext  string
	askFiles    []string
	askJSON     bool

	askCmd = &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Answer one prompt and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	providersCheck bool

	providersCmd = &cobra.Command{
		Use:   "providers",
		Short: "List configured providers and the active one",
		RunE:  runProviders,
	}
)

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", "cli", "user id the request runs as")
	askCmd.Flags().StringVarP(&askKind, "kind", "k", "generate", "task kind: generate, improve, summarize, expand, rewrite")
	askCmd.Flags().StringVarP(&askProvider, "provider", "p", "", "provider to try first (overrides AI_PROVIDER)")
	askCmd.Flags().StringVar(&askContext, "context", "", "extra context passed to the model")
	askCmd.Flags().StringSliceVarP(&askFiles, "file", "f", nil, "attach a file (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")

	providersCmd.Flags().BoolVar(&providersCheck, "check", false, "probe every provider and dependency")
}

func runAsk(cmd *cobra.Command, args []string) error {
	kind := ai.Kind(askKind)
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q", askKind)
	}
	task := ai.Task{Kind: kind, Prompt: strings.Join(args, " "), Context: askContext}
	for _, path := range askFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		task.Attachments = append(task.Attachments, ai.Attachment{DisplayName: filepath.Base(path), InlineData: data})
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if askProvider != "" {
		p, err := ai.ParseProvider(askProvider)
		if err != nil {
			return err
		}
		if err := a.service.SetActiveProvider(p); err != nil {
			return err
		}
	}

	resp, err := a.service.Generate(web.WithUser(ctx, askUser), task)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintln(out, resp.Content)
	if m := resp.Metadata; m != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n[%s/%s, %d ms]\n", m.ProviderID, m.ModelID, m.LatencyMs)
	}
	return nil
}

func runProviders(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	out := cmd.OutOrStdout()
	var summary statuscheck.Summary
	if providersCheck {
		summary = a.health.Summary(ctx)
	}
	active := a.service.ActiveProvider()
	for _, p := range a.service.ListAvailableProviders() {
		marker := " "
		if p == active {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s", marker, p)
		if st, ok := summary.Providers[p]; ok {
			line += fmt.Sprintf("\t%v\t%s", st.OK, st.Message)
		}
		fmt.Fprintln(out, line)
	}
	if providersCheck {
		fmt.Fprintf(out, "redis\t%v\t%s\n", summary.Redis.OK, summary.Redis.Message)
		fmt.Fprintf(out, "knowledge\t%v\t%s\n", summary.Knowledge.OK, summary.Knowledge.Message)
	}
	return nil
}
