package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-normalize/internal/event"
	"github.com/telhawk-systems/telhawk-normalize/internal/service"
)

var (
	translateSourceType string
	translateTenant     string
)

var translateCmd = &cobra.Command{
	Use:   "translate [file]",
	Short: "Translate raw events from a file or stdin, one per line",
	Long: `translate runs each input line through the parse, translate, and
enrich stages synchronously and prints the resulting events as JSON.
Lines that cannot be parsed or matched are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		svc, err := service.New(cfg, logger)
		if err != nil {
			return err
		}
		demux := svc.Demuxer(nil, nil, nil)

		input := os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			input = f
		}

		out := json.NewEncoder(cmd.OutOrStdout())
		scanner := bufio.NewScanner(input)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		translated, skipped := 0, 0
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}

			data := map[string]any{
				event.RawEvent:   line,
				event.SourceType: translateSourceType,
			}
			if translateTenant != "" {
				data[event.Tenant] = translateTenant
			}

			result := demux.ProcessOne(data)
			if result == nil {
				skipped++
				continue
			}
			if err := out.Encode(svc.Finalize(result)); err != nil {
				return err
			}
			translated++
		}
		if err := scanner.Err(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "translated %d, skipped %d\n", translated, skipped)
		return nil
	},
}

func init() {
	translateCmd.Flags().StringVar(&translateSourceType, "source-type", "", "source type of the input events (required)")
	translateCmd.Flags().StringVar(&translateTenant, "tenant", "", "tenant attributed to the input events")
	_ = translateCmd.MarkFlagRequired("source-type")
	rootCmd.AddCommand(translateCmd)
}
