package commands

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/legal-service/internal/domain"
)

func newSLACommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sla",
		Short: "Inspect and refresh SLA standings",
	}
	cmd.AddCommand(newSLASweepCommand(), newSLAReportCommand())
	return cmd
}

func newSLASweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Re-classify open requests once, honouring the sweep lock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadSession()
			if err != nil {
				return err
			}
			container, err := rt.container(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()

			result, ran, err := container.Sweeper.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"ran": ran, "result": result})
		},
	}
}

func newSLAReportCommand() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Count open requests per SLA standing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadSession()
			if err != nil {
				return err
			}
			container, err := rt.container(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()

			report, err := container.SLA.Report(cmd.Context(), domain.AggregateType(kind))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(domain.AggregateConsultation), "request family: consultation or litigation")
	return cmd
}
