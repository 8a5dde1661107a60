package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/pith/internal/compress"
	"github.com/hpungsan/pith/internal/config"
	"github.com/hpungsan/pith/internal/errors"
	"github.com/hpungsan/pith/internal/ops"
	"github.com/hpungsan/pith/internal/web"
)

const (
	// maxBatchInputBytes bounds the JSON array read by compress-batch.
	maxBatchInputBytes = 64 << 20
	// maxStdinBytes bounds stdin when max_text_chars is disabled.
	maxStdinBytes = 256 << 20
)

// textByteLimit converts the configured character limit to a stdin byte
// bound. The character limit itself is enforced by ops.
func textByteLimit(cfg *config.Config) int {
	if cfg.MaxTextChars <= 0 {
		return maxStdinBytes
	}
	return min(cfg.MaxTextChars*utf8.UTFMax, maxStdinBytes)
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, engine *compress.Engine, logger *zap.Logger) *cli.App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	app := &cli.App{
		Name:    "pith",
		Usage:   "Reversible placeholder compression for LLM prompts",
		Version: Version,
		Commands: []*cli.Command{
			detectCmd(cfg, engine),
			compressCmd(db, cfg, engine),
			compressBatchCmd(db, cfg, engine),
			restoreCmd(db, cfg),
			verifyCmd(db),
			fetchCmd(db, cfg),
			listCmd(db),
			deleteCmd(db),
			purgeCmd(db),
			statsCmd(db, cfg),
			exportCmd(db, cfg),
			importCmd(db, cfg),
			uiCmd(db, cfg, engine, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// addressFlags are shared by commands that take an id or workspace+name.
func addressFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Value: "default", Usage: "Workspace name"},
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Result name"},
	}
}

// address reads a positional id, or falls back to --workspace/--name.
func address(c *cli.Context) (id, workspace, name string) {
	if c.NArg() > 0 {
		return c.Args().First(), "", ""
	}
	return "", c.String("workspace"), c.String("name")
}

// detectCmd creates the detect command.
func detectCmd(cfg *config.Config, engine *compress.Engine) *cli.Command {
	return &cli.Command{
		Name:  "detect",
		Usage: "List the spans compress would replace (reads text from stdin)",
		Action: func(c *cli.Context) error {
			text, err := readRequiredInput(c, textByteLimit(cfg))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Detect(engine.Detector(), cfg, ops.DetectInput{Text: text})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// compressCmd creates the compress command.
func compressCmd(db *sql.DB, cfg *config.Config, engine *compress.Engine) *cli.Command {
	return &cli.Command{
		Name:  "compress",
		Usage: "Replace long spans with placeholders (reads text from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Value: "default", Usage: "Workspace for the stored result"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Result name (implies --store)"},
			&cli.BoolFlag{Name: "store", Aliases: []string{"s"}, Usage: "Persist the result for a later restore"},
			&cli.StringFlag{Name: "map-out", Usage: "Write the placeholder map JSON to this file"},
			&cli.BoolFlag{Name: "raw", Usage: "Print only the compressed text"},
		},
		Action: func(c *cli.Context) error {
			text, err := readRequiredInput(c, textByteLimit(cfg))
			if err != nil {
				return outputError(err)
			}

			input := ops.CompressInput{
				Text:      text,
				Workspace: c.String("workspace"),
				Store:     c.Bool("store"),
			}
			if name := c.String("name"); name != "" {
				input.Name = &name
			}

			output, err := ops.Compress(c.Context, db, engine, cfg, input)
			if err != nil {
				return outputError(err)
			}

			if path := c.String("map-out"); path != "" {
				if err := writeMapFile(path, output.Placeholders); err != nil {
					return outputError(err)
				}
			}

			if c.Bool("raw") {
				_, err := io.WriteString(c.App.Writer, output.CompressedText)
				return err
			}
			return outputJSON(c, output)
		},
	}
}

// batchItem is one element of the compress-batch stdin array.
type batchItem struct {
	Text      string  `json:"text"`
	Workspace string  `json:"workspace,omitempty"`
	Name      *string `json:"name,omitempty"`
	Store     bool    `json:"store,omitempty"`
}

// compressBatchCmd creates the compress-batch command.
func compressBatchCmd(db *sql.DB, cfg *config.Config, engine *compress.Engine) *cli.Command {
	return &cli.Command{
		Name:  "compress-batch",
		Usage: "Compress a JSON array of {text, workspace?, name?, store?} read from stdin",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "parallelism", Aliases: []string{"p"}, Usage: "Worker count (default from config)"},
		},
		Action: func(c *cli.Context) error {
			data, err := readRequiredInput(c, maxBatchInputBytes)
			if err != nil {
				return outputError(err)
			}

			var items []batchItem
			if err := json.Unmarshal([]byte(data), &items); err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("stdin must be a JSON array of items: %v", err)))
			}

			inputs := make([]ops.CompressInput, len(items))
			for i, item := range items {
				inputs[i] = ops.CompressInput{
					Text:      item.Text,
					Workspace: item.Workspace,
					Name:      item.Name,
					Store:     item.Store,
				}
			}

			output, err := ops.CompressBatch(c.Context, db, engine, cfg, ops.CompressBatchInput{
				Items:       inputs,
				Parallelism: c.Int("parallelism"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Put originals back in place of placeholders",
		ArgsUsage: "[id]",
		Description: "With --map, restores the text on stdin using a placeholder map file and needs no database.\n" +
			"With an id or --name, uses the stored map; text piped on stdin replaces the stored compressed text.",
		Flags: append(addressFlags(),
			&cli.StringFlag{Name: "map", Aliases: []string{"m"}, Usage: "Placeholder map JSON file written by compress --map-out"},
			&cli.BoolFlag{Name: "raw", Usage: "Print only the restored text"},
			&cli.BoolFlag{Name: "strict", Usage: "Exit with an error when the integrity check fails"},
		),
		Action: func(c *cli.Context) error {
			input := ops.RestoreInput{}

			if path := c.String("map"); path != "" {
				if c.NArg() > 0 || c.String("name") != "" {
					return outputError(errors.NewAmbiguousAddressing())
				}
				placeholders, err := readMapFile(path)
				if err != nil {
					return outputError(err)
				}
				text, err := readRequiredInput(c, textByteLimit(cfg))
				if err != nil {
					return outputError(err)
				}
				input.Placeholders = placeholders
				input.Text = &text
			} else {
				input.ID, input.Workspace, input.Name = address(c)
				text, err := readOptionalInput(c, textByteLimit(cfg))
				if err != nil {
					return outputError(err)
				}
				if text != "" {
					input.Text = &text
				}
			}

			output, err := ops.Restore(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("raw") {
				if _, err := io.WriteString(c.App.Writer, output.RestoredText); err != nil {
					return err
				}
			} else if err := outputJSON(c, output); err != nil {
				return err
			}

			if c.Bool("strict") && !output.IntegrityPassed {
				return cli.Exit(fmt.Sprintf("integrity check failed: %d problem(s)", len(output.Errors)), 2)
			}
			return nil
		},
	}
}

// verifyCmd creates the verify command.
func verifyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check that a stored result restores cleanly",
		ArgsUsage: "[id]",
		Flags:     addressFlags(),
		Action: func(c *cli.Context) error {
			id, workspace, name := address(c)
			output, err := ops.Verify(c.Context, db, ops.VerifyInput{ID: id, Workspace: workspace, Name: name})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a stored result by ID or name",
		ArgsUsage: "[id]",
		Flags: append(addressFlags(),
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted results"},
			&cli.BoolFlag{Name: "no-text", Usage: "Exclude original and compressed text from output"},
		),
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{
				IncludeDeleted: c.Bool("include-deleted"),
			}
			input.ID, input.Workspace, input.Name = address(c)

			if c.Bool("no-text") {
				includeText := false
				input.IncludeText = &includeText
			}

			output, err := ops.Fetch(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored results, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Filter by workspace (default: all)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted results"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				Limit:          c.Int("limit"),
				Offset:         c.Int("offset"),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if workspace := c.String("workspace"); workspace != "" {
				input.Workspace = &workspace
			}

			output, err := ops.List(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a stored result",
		ArgsUsage: "[id]",
		Flags:     addressFlags(),
		Action: func(c *cli.Context) error {
			id, workspace, name := address(c)
			output, err := ops.Delete(c.Context, db, ops.DeleteInput{ID: id, Workspace: workspace, Name: name})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete soft-deleted results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Filter by workspace"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}
			if workspace := c.String("workspace"); workspace != "" {
				input.Workspace = &workspace
			}

			output, err := ops.Purge(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Aggregate token and cost savings of stored results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Filter by workspace (default: all)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.StatsInput{}
			if workspace := c.String("workspace"); workspace != "" {
				input.Workspace = &workspace
			}

			output, err := ops.Stats(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export stored results to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.pith/exports/<workspace>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Filter by workspace"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted results"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{
				Path:           c.String("path"),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if workspace := c.String("workspace"); workspace != "" {
				input.Workspace = &workspace
			}

			output, err := ops.Export(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import stored results from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|skip|rename"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, db, cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(db *sql.DB, cfg *config.Config, engine *compress.Engine, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Serve the web UI and /metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8077, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(db, cfg, engine, logger, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, logger)
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var pErr *errors.PithError
	if stderrors.As(err, &pErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", pErr.Code, pErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinIsPiped reports whether the app reads from something other than an
// interactive terminal.
func stdinIsPiped(c *cli.Context) bool {
	f, ok := c.App.Reader.(*os.File)
	if !ok {
		return true
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readInput reads at most limit bytes from the app's reader. The text is
// returned exactly as read so that restore reproduces it byte for byte.
func readInput(r io.Reader, limit int) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if len(data) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return string(data), nil
}

// readRequiredInput reads non-empty text piped on stdin.
func readRequiredInput(c *cli.Context, limit int) (string, error) {
	if !stdinIsPiped(c) {
		return "", errors.NewInvalidRequest("text must be piped via stdin")
	}
	text, err := readInput(c.App.Reader, limit)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.NewInvalidRequest("text is required")
	}
	return text, nil
}

// readOptionalInput reads stdin when it is piped, and returns "" otherwise.
func readOptionalInput(c *cli.Context, limit int) (string, error) {
	if !stdinIsPiped(c) {
		return "", nil
	}
	return readInput(c.App.Reader, limit)
}

// writeMapFile writes a placeholder map as indented JSON.
func writeMapFile(path string, placeholders *compress.PlaceholderMap) error {
	data, err := json.MarshalIndent(placeholders, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("cannot write map file: %v", err))
	}
	return nil
}

// readMapFile loads a placeholder map. It accepts either the bare array
// written by --map-out or a full compress JSON output.
func readMapFile(path string) (*compress.PlaceholderMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot read map file: %v", err))
	}

	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte("{")) {
		var wrapper struct {
			Placeholders *compress.PlaceholderMap `json:"placeholders"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid map file: %v", err))
		}
		if wrapper.Placeholders == nil {
			return nil, errors.NewInvalidRequest("map file has no placeholders")
		}
		return wrapper.Placeholders, nil
	}

	placeholders := compress.NewPlaceholderMap()
	if err := json.Unmarshal(data, placeholders); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid map file: %v", err))
	}
	return placeholders, nil
}
