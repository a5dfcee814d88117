package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const sttPrefix = "stt:"

type chatOptions struct {
	As string
}

func newChatCommand() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		Long: `Read lines from stdin and answer each one as the given employee.

A line starting with "stt:" is treated as a path to an audio file which is
transcribed before being asked. An empty line or EOF ends the session.

Example:
  orgbrain chat --as Sarah
  echo "stt:./question.webm" | orgbrain chat --as Bob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			svc, logger, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			return runChat(ctx, svc, logger, domain.AgentIDFromName(opts.As), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "employee name to chat as (required)")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runChat(ctx context.Context, svc *service.ReasoningService, logger *zap.Logger, agentID string, in io.Reader, out io.Writer) error {
	if agentID == "" {
		return service.ErrMissingIdentity
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}

		if path, ok := strings.CutPrefix(line, sttPrefix); ok {
			text, err := transcribeFile(ctx, svc, strings.TrimSpace(path))
			if err != nil {
				fmt.Fprintf(out, "transcription failed: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "(heard) %s\n", text)
			line = text
		}

		res, err := svc.Ask(ctx, agentID, line)
		if err != nil {
			logger.Debug("ask failed", zap.String("agent_id", agentID), zap.Error(err))
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, res.ResponseText)
	}
}

func transcribeFile(ctx context.Context, svc *service.ReasoningService, path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return svc.Transcribe(ctx, audio, "")
}
