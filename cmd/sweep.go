package cmd

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ybryxcapital/agentcore/pkg/memory"
	"github.com/ybryxcapital/agentcore/pkg/stores/qdrant"
	"github.com/ybryxcapital/agentcore/pkg/stores/sqlite"
)

var (
	sweepUserFlag string
	sweepDaysFlag int

	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Run memory decay and session timeout maintenance",
		Long:  longSweep,
		RunE: func(cmd *cobra.Command, args []string) error {
			gateway, err := sqlite.New(databasePath())
			if err != nil {
				return err
			}
			defer gateway.Close()

			var vector memory.VectorStore
			if viper.GetBool("stores.qdrant.enabled") {
				vector = qdrant.New(
					viper.GetString("stores.qdrant.endpoint"),
					viper.GetString("stores.qdrant.collection"),
				)
			}

			idleHours := viper.GetFloat64("sessions.idle_timeout_hours")
			if idleHours <= 0 {
				idleHours = 24
			}

			swept, err := gateway.SweepIdle(cmd.Context(), time.Duration(idleHours*float64(time.Hour)))
			if err != nil {
				return err
			}
			log.Info("idle sessions swept", "count", swept)

			if sweepUserFlag == "" {
				log.Info("no --user given, skipping memory decay")
				return nil
			}

			days := sweepDaysFlag
			if days <= 0 {
				days = viper.GetInt("memory.retention_days")
			}
			if days <= 0 {
				days = 30
			}

			manager, err := memory.NewManager(
				memory.Namespace{Tenant: viper.GetString("tenant"), Agent: "supervisor"},
				gateway, vector, nil, managerConfig(),
			)
			if err != nil {
				return err
			}

			result, err := manager.DecayMemory(cmd.Context(), sweepUserFlag, days, "")
			if err != nil {
				return err
			}

			log.Info("memory decayed",
				"user", sweepUserFlag,
				"retention_days", days,
				"relational_deleted", result.RelationalDeleted,
				"vector_deleted", result.VectorDeleted,
			)

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&sweepUserFlag, "user", "", "Decay memories for this user id")
	sweepCmd.Flags().IntVar(&sweepDaysFlag, "days", 0, "Retention threshold in days (defaults to config)")
}

var longSweep = `
Run the out-of-band memory maintenance pass: idle sessions time out and, when
a user is given, their memories older than the retention threshold decay. The
pass is idempotent and safe to schedule.

Examples:
  # Time out idle sessions only
  agentcore sweep

  # Also decay one user's memories past 60 days
  agentcore sweep --user u-123 --days 60
`
