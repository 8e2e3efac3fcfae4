package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/pipeline"
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest saved worker submissions into the Link Store",
		Long: `Ingest replays crawl results saved by offline workers. Each file holds
submissions in the POST /work body format, either as a JSON array or as
one JSON object per line. With no files, or "-", stdin is read.

Submissions are validated and applied exactly as the coordinator does;
an invalid submission is reported and skipped without affecting the rest.

Examples:
  # Ingest a JSON Lines dump
  badgegraph ingest results.jsonl

  # Ingest from another program
  my-scraper | badgegraph ingest`,
		Args: cobra.ArbitraryArgs,
		RunE: runIngestCmd,
	}

	cmd.Flags().IntP("concurrency", "j", 4,
		"Number of submissions ingested at once")

	addStorageFlags(cmd)
	addCrawlFlags(cmd)

	return cmd
}

// runIngestCmd executes the ingest command.
func runIngestCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyStorageFlags(cmd, cfg); err != nil {
		return err
	}
	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{"-"}
	}
	var subs []model.Submission
	for _, path := range args {
		s, err := readSubmissionFile(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		subs = append(subs, s...)
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := signalContext(logger)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := newCoordinator(cfg, store, logger, nil)
	if err != nil {
		return err
	}

	bp := pipeline.NewBatchProcessor(c.ingest,
		pipeline.WithConcurrency(concurrency),
		pipeline.WithBatchLogger(logger),
	)
	results, err := bp.ProcessBatch(ctx, subs)
	if err != nil {
		return err
	}

	var ingested, rejected, links int
	for i, r := range results {
		if r.Err != nil {
			rejected++
			logger.Warn("submission rejected",
				"index", i,
				"orig_url", subs[i].OrigURL,
				"error", r.Err,
			)
			continue
		}
		ingested++
		links += r.Ingestion.LinksRecorded
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d submissions (%d links), rejected %d\n",
		ingested, links, rejected)
	return nil
}

// readSubmissionFile reads submissions from path, or from stdin for "-".
func readSubmissionFile(stdin io.Reader, path string) ([]model.Submission, error) {
	if path == "-" {
		subs, err := decodeSubmissions(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return subs, nil
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	subs, err := decodeSubmissions(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return subs, nil
}

// decodeSubmissions decodes a JSON array of submissions or a stream of
// submission objects (JSON Lines).
func decodeSubmissions(r io.Reader) ([]model.Submission, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var subs []model.Submission
		if err := dec.Decode(&subs); err != nil {
			return nil, err
		}
		return subs, nil
	}

	var subs []model.Submission
	for {
		var s model.Submission
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			return subs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("submission %d: %w", len(subs)+1, err)
		}
		subs = append(subs, s)
	}
}

// peekNonSpace skips leading whitespace and returns the next byte without
// consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
