package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mladen1312/nyx-light-racunovodja/internal/rag"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "Query or maintain the time-aware legal knowledge base",
}

var (
	ragQueryAsOf     string
	ragQueryTopK     int
	ragIncludeExpired bool
)

var ragQueryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve law chunks valid on a given date and answer from them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := rag.Query{Text: strings.Join(args, " "), TopK: ragQueryTopK, IncludeExpired: ragIncludeExpired}
		if ragQueryAsOf != "" {
			d, err := time.Parse("2006-01-02", ragQueryAsOf)
			if err != nil {
				return fmt.Errorf("parse --as-of: %w", err)
			}
			q.EventDate = &d
		}
		results, err := svc.RAGStore.Search(q)
		if err != nil {
			return err
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
		return nil
	},
}

var ragIngestCmd = &cobra.Command{
	Use:   "ingest <chunks.json>",
	Short: "Ingest a JSON array of law chunks into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read chunks file: %w", err)
		}
		var chunks []types.LawChunk
		if err := json.Unmarshal(body, &chunks); err != nil {
			return fmt.Errorf("parse chunks file: %w", err)
		}
		for i := range chunks {
			if err := svc.RAGStore.Ingest(&chunks[i]); err != nil {
				return fmt.Errorf("ingest chunk %s: %w", chunks[i].ID, err)
			}
		}
		fmt.Printf("ingested %d law chunk(s)\n", len(chunks))
		return nil
	},
}

var ragMonitorCmd = &cobra.Command{
	Use:   "monitor <nn-ref> [nn-ref...]",
	Short: "Check Narodne Novine issues for accounting/tax-relevant articles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), svcTimeout)
		defer cancel()
		result := svc.RAGMonitor.Check(ctx, args)
		body, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

func init() {
	ragQueryCmd.Flags().StringVar(&ragQueryAsOf, "as-of", "", "Event date (YYYY-MM-DD), defaults to today")
	ragQueryCmd.Flags().IntVar(&ragQueryTopK, "top", 5, "Number of chunks to retrieve")
	ragQueryCmd.Flags().BoolVar(&ragIncludeExpired, "include-expired", false, "Include chunks no longer in force")

	ragCmd.AddCommand(ragQueryCmd, ragIngestCmd, ragMonitorCmd)
}
