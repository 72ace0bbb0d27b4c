package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mladen1312/nyx-light-racunovodja/internal/inference"
	"github.com/mladen1312/nyx-light-racunovodja/internal/rag"
)

var chatUser string

// chatCmd routes one utterance through the module router and, when the
// router hands control back to the model (action "chat"), answers it
// from the legal knowledge base instead of letting the model invent a
// figure (spec.md §4.2, §4.6).
var chatCmd = &cobra.Command{
	Use:   "chat <text>",
	Short: "Route one utterance through the module router or the legal RAG",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), svcTimeout)
		defer cancel()
		text := strings.Join(args, " ")

		result := svc.Executor.Dispatch(ctx, text, false, nil, clientID, chatUser)

		if result.Module == "general" && result.Action == "chat" {
			return runLegalChat(ctx, text)
		}

		fmt.Printf("module=%s action=%s success=%v\n", result.Module, result.Action, result.Success)
		if result.Summary != "" {
			fmt.Println(result.Summary)
		}
		for _, e := range result.Errors {
			fmt.Println("error:", e)
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "user", "User id issuing the utterance")
}

func runLegalChat(ctx context.Context, text string) error {
	results, err := svc.RAGStore.Search(rag.Query{Text: text, TopK: 5})
	if err != nil {
		return fmt.Errorf("legal rag search: %w", err)
	}
	answer := rag.GenerateAnswer(results)
	fmt.Println(answer.Text)
	for _, c := range answer.Citations {
		expired := ""
		if c.Expired {
			expired = " IZVAN SNAGE"
		}
		fmt.Printf("  - %s čl. %s (%s)%s\n", c.ShortCode, c.Article, c.NNRef, expired)
	}

	if svc.Inference == nil {
		return nil
	}
	req := inference.Request{Prompt: text, SystemPrompt: answer.Text, MaxTokens: 512, Temperature: 0.2}
	resp, err := svc.Inference.Generate(ctx, req)
	if err != nil {
		fmt.Println("inference unavailable:", err)
		return nil
	}
	fmt.Println()
	fmt.Println(resp.Text)
	return nil
}
