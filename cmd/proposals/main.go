// Command proposals is the interactive CLI for the proposal tracker: process
// documents on demand, review and correct stored proposals, export the
// spreadsheet and generate a pending-backlog digest.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/propform/proposals-tracker/constants"
	"github.com/propform/proposals-tracker/internal/common"
	"github.com/propform/proposals-tracker/internal/entity"
	"github.com/propform/proposals-tracker/internal/export"
	"github.com/propform/proposals-tracker/internal/extract"
	"github.com/propform/proposals-tracker/internal/llm/gemini"
	"github.com/propform/proposals-tracker/internal/notify"
	"github.com/propform/proposals-tracker/internal/pipeline"
	"github.com/propform/proposals-tracker/internal/repository"
)

type app struct {
	configPath string

	cfg    *common.Config
	logger *slog.Logger
	db     *sql.DB
	repo   repository.ProposalRepository
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := a.rootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "proposals:", err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "proposals",
		Short:         "Process and track commercial proposals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to YAML config file")

	root.AddCommand(
		a.processCmd(),
		a.listCmd(),
		a.getCmd(),
		a.setStatusCmd(),
		a.editCmd(),
		a.exportCmd(),
		a.digestCmd(),
	)
	return root
}

func (a *app) init(ctx context.Context) error {
	cfg, err := common.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	// Keep stdout clean for command output; warnings and up go to stderr.
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	db, err := repository.Open(ctx, cfg.Database.Path, a.logger)
	if err != nil {
		return err
	}
	a.db = db
	a.repo = repository.NewProposalRepository(db, a.logger)
	return nil
}

func (a *app) close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *app) newAnalyzer(ctx context.Context) (*gemini.Client, error) {
	return gemini.NewClient(ctx, gemini.Config{
		ProjectID: a.cfg.AI.ProjectID,
		Region:    a.cfg.AI.Region,
		Model:     a.cfg.AI.Model,
		Timeout:   a.cfg.AI.Timeout.Std(),
	}, a.logger)
}

func (a *app) processCmd() *cobra.Command {
	var predict bool

	cmd := &cobra.Command{
		Use:   "process <file.pdf> [file.pdf ...]",
		Short: "Run documents through the analysis pipeline and store the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			analyzer, err := a.newAnalyzer(ctx)
			if err != nil {
				return err
			}
			defer analyzer.Close()

			notifier := notify.NewWhatsAppNotifier(notify.Config{
				PhoneNumber: a.cfg.Notify.PhoneNumber,
				APIKey:      a.cfg.Notify.APIKey,
				BaseURL:     a.cfg.Notify.BaseURL,
				Timeout:     a.cfg.Notify.Timeout.Std(),
			}, a.logger)

			processor := pipeline.NewProcessor(
				pipeline.Config{
					Predict: predict,
					OnStage: func(stage string) {
						fmt.Fprintf(cmd.OutOrStdout(), "  ... %s\n", stage)
					},
				},
				extract.NewPDFExtractor(a.logger),
				analyzer,
				a.repo,
				notifier,
				a.logger,
			)

			var failed int
			for _, path := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", path)
				res := processor.Process(ctx, path)
				if !res.OK() {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "  FAILED at %s: %v\n", res.FailedStage, res.Err)
					continue
				}
				if res.Deduplicated {
					fmt.Fprintf(cmd.OutOrStdout(), "  already stored as proposal %d\n", res.ProposalID)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  stored as proposal %d (%s, R$ %.2f)\n",
					res.ProposalID, res.Proposal.ClientName, res.Proposal.ProposalValue)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&predict, "predict", common.PredictDefaultInteractive,
		"predict acceptance status before storing (--predict=false stores as pending)")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var (
				proposals []entity.Proposal
				err       error
			)
			if statusFilter != "" {
				status, ok := constants.NormalizeStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				proposals, err = a.repo.ListByStatus(ctx, status)
			} else {
				proposals, err = a.repo.GetAll(ctx)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCLIENT\tVALUE\tTYPE\tSTATUS\tPROCESSED")
			for _, p := range proposals {
				fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%s\t%s\n",
					p.ID, p.ClientName, p.ProposalValue, p.ProposalType,
					p.Status, p.ProcessedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "filter by status (pending, accepted, rejected)")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one proposal in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.repo.GetByID(cmd.Context(), id)
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("proposal %d not found", id)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:              %d\n", p.ID)
			fmt.Fprintf(out, "Client:          %s\n", p.ClientName)
			fmt.Fprintf(out, "Value:           R$ %.2f\n", p.ProposalValue)
			fmt.Fprintf(out, "Product/Service: %s\n", p.ProductOrService)
			fmt.Fprintf(out, "Type:            %s\n", p.ProposalType)
			fmt.Fprintf(out, "Terms:           %s\n", p.Terms)
			fmt.Fprintf(out, "Status:          %s\n", p.Status)
			fmt.Fprintf(out, "Source file:     %s\n", p.SourceFilename)
			fmt.Fprintf(out, "Processed at:    %s\n", p.ProcessedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Summary:\n%s\n", p.AISummary)
			return nil
		},
	}
}

func (a *app) setStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Set a proposal's status (pending, accepted, rejected)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, ok := constants.NormalizeStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q", args[1])
			}

			err = a.repo.UpdateStatus(cmd.Context(), id, status)
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("proposal %d not found", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "proposal %d is now %s\n", id, status)
			return nil
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	var (
		clientName string
		value      float64
		product    string
		ptype      string
		terms      string
		summary    string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Correct stored fields of a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var upd entity.ProposalUpdate
			flags := cmd.Flags()
			if flags.Changed("client") {
				upd.ClientName = &clientName
			}
			if flags.Changed("value") {
				upd.ProposalValue = &value
			}
			if flags.Changed("product") {
				upd.ProductOrService = &product
			}
			if flags.Changed("type") {
				upd.ProposalType = &ptype
			}
			if flags.Changed("terms") {
				upd.Terms = &terms
			}
			if flags.Changed("summary") {
				upd.AISummary = &summary
			}
			if upd.Empty() {
				return errors.New("nothing to update, pass at least one field flag")
			}

			err = a.repo.UpdateFields(cmd.Context(), id, upd)
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("proposal %d not found", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "proposal %d updated\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientName, "client", "", "client name")
	cmd.Flags().Float64Var(&value, "value", 0, "proposal value in BRL")
	cmd.Flags().StringVar(&product, "product", "", "product or service")
	cmd.Flags().StringVar(&ptype, "type", "", "proposal type")
	cmd.Flags().StringVar(&terms, "terms", "", "payment and delivery terms")
	cmd.Flags().StringVar(&summary, "summary", "", "executive summary")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all proposals to an XLSX spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := export.NewService(a.repo, a.logger)
			data, err := svc.ExportProposalsXLSX(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "propostas.xlsx", "output file path")
	return cmd
}

func (a *app) digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Generate an overview of the pending backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			pending, err := a.repo.ListByStatus(ctx, constants.StatusPending)
			if err != nil {
				return err
			}

			analyzer, err := a.newAnalyzer(ctx)
			if err != nil {
				return err
			}
			defer analyzer.Close()

			fmt.Fprintln(cmd.OutOrStdout(), analyzer.DigestPending(ctx, pending))
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid proposal id %q", raw)
	}
	return id, nil
}
