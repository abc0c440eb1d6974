package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/termax/internal/embedding"
	"github.com/felixgeelhaar/termax/internal/memory"
)

var (
	ragClear bool
	ragCount bool
)

var ragCmd = &cobra.Command{
	Use:     "rag",
	Aliases: []string{"memory"},
	Short:   "Inspect or clear remembered commands",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		cfg, err := getConfigManager(s).Load()
		if err != nil {
			exitErr("Failed to load configuration", err)
		}
		mem := memory.New(s, embedding.NewHashing(embedding.DefaultDims), cfg.MemoryOptions())
		ctx := context.Background()

		switch {
		case ragClear:
			if err := mem.Clear(ctx); err != nil {
				exitErr("Failed to clear memory", err)
			}
			fmt.Println("Memory cleared.")
		case ragCount:
			n, err := mem.Count(ctx)
			if err != nil {
				exitErr("Failed to count records", err)
			}
			fmt.Printf("%d/%d\n", n, mem.Capacity())
		default:
			records, err := mem.List(ctx)
			if err != nil {
				exitErr("Failed to list records", err)
			}
			if len(records) == 0 {
				fmt.Println("No commands remembered yet.")
				return
			}
			for _, r := range records {
				fmt.Printf("User Input: %s\nGenerated Commands: %s\nDate: %s\n\n",
					r.Intent, r.Command, r.CreatedAt.Local().Format(time.RFC3339))
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(ragCmd)
	ragCmd.Flags().BoolVar(&ragClear, "clear", false, "Delete every remembered command")
	ragCmd.Flags().BoolVar(&ragCount, "count", false, "Print how many commands are remembered")
}
