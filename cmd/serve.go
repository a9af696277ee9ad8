package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ybryxcapital/agentcore/pkg/agents"
	"github.com/ybryxcapital/agentcore/pkg/memory"
	"github.com/ybryxcapital/agentcore/pkg/service"
	"github.com/ybryxcapital/agentcore/pkg/stores/qdrant"
	"github.com/ybryxcapital/agentcore/pkg/stores/sqlite"
	"github.com/ybryxcapital/agentcore/pkg/supervisor"
)

var (
	portFlag int
	hostFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			router, cleanup, err := buildRouter(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			addr := fmt.Sprintf("%s:%d", hostFlag, portFlag)
			log.Info("serving chat API", "addr", addr)

			return service.NewChatServer(router).Start(addr)
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 8080, "Port to serve on")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")
}

// buildRouter wires the stores, the memory manager and the specialist crew
// from the active configuration.
func buildRouter(cmd *cobra.Command) (*supervisor.Router, func(), error) {
	if !cmd.Flags().Changed("port") && viper.IsSet("service.port") {
		portFlag = viper.GetInt("service.port")
	}
	if !cmd.Flags().Changed("host") && viper.IsSet("service.host") {
		hostFlag = viper.GetString("service.host")
	}

	gateway, err := sqlite.New(databasePath())
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { gateway.Close() }

	var (
		vector   memory.VectorStore
		embedder memory.Embedder
	)

	if viper.GetBool("stores.qdrant.enabled") {
		client := qdrant.New(
			viper.GetString("stores.qdrant.endpoint"),
			viper.GetString("stores.qdrant.collection"),
		)

		if err := client.EnsureCollection(cmd.Context(), viper.GetInt("stores.qdrant.vector_size")); err != nil {
			log.Warn("qdrant unavailable, continuing without semantic recall", "error", err)
		} else {
			openai := memory.NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"))
			if model := viper.GetString("embeddings.model"); model != "" {
				openai.Model = model
			}
			vector = client
			embedder = openai
		}
	}

	manager, err := memory.NewManager(
		memory.Namespace{Tenant: viper.GetString("tenant"), Agent: "supervisor"},
		gateway, vector, embedder, managerConfig(),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	router := supervisor.NewRouter(manager, nil, viper.GetInt("router.max_iterations"))
	router.Register(supervisor.Financing, agents.NewFinancingAgent())
	router.Register(supervisor.DealerMatching, agents.NewDealerAgent(agents.DefaultDirectory()))
	router.Register(supervisor.Knowledge, agents.NewKnowledgeAgent(agents.DefaultCatalog()))
	router.Register(supervisor.Sales, agents.NewSalesAgent())

	return router, cleanup, nil
}

func managerConfig() memory.Config {
	cfg := memory.DefaultConfig()

	if window := viper.GetInt("memory.window"); window > 0 {
		cfg.Window = window
	}
	if limit := viper.GetInt("memory.recall_limit"); limit > 0 {
		cfg.RecallLimit = limit
	}
	if hours := viper.GetFloat64("memory.half_life_hours"); hours > 0 {
		cfg.HalfLife = time.Duration(hours * float64(time.Hour))
	}
	if viper.IsSet("memory.weights.semantic") {
		cfg.Weights = memory.Weights{
			Semantic:      viper.GetFloat64("memory.weights.semantic"),
			Recency:       viper.GetFloat64("memory.weights.recency"),
			Reinforcement: viper.GetFloat64("memory.weights.reinforcement"),
		}
	}

	return cfg
}

// databasePath resolves the sqlite path; relative paths live next to the
// config in the user's project directory.
func databasePath() string {
	path := viper.GetString("stores.sqlite.path")
	if path == "" {
		path = "agentcore.db"
	}
	if path == ":memory:" || filepath.IsAbs(path) {
		return path
	}

	home, _ := os.UserHomeDir()

	return filepath.Join(home, "."+projectName, path)
}

var longServe = `
Serve the chat API backed by the full memory stack.

Examples:
  # Serve on the configured port
  agentcore serve

  # Serve on a specific host and port
  agentcore serve --host 127.0.0.1 --port 9090
`
