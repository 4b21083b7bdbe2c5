package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var forgetRecursive bool

var forgetCmd = &cobra.Command{
	Use:   "forget <path>",
	Short: "Remove cached metadata for a path",
	Long: `Remove cached metadata for a path.

By default only the path itself is forgotten; its parent listing is updated
so the path no longer appears as a cached child. With --recursive the whole
subtree under the path is forgotten as well.

Forgetting a path never touches the backing store. The next read through
the cache simply misses and falls back to the backing store.

Examples:
  # Forget a single file
  metacache forget /logs/2026/app.log

  # Forget a whole subtree
  metacache forget /logs --recursive`,
	Args: cobra.ExactArgs(1),
	RunE: runForget,
}

func init() {
	forgetCmd.Flags().BoolVar(&forgetRecursive, "recursive", false, "Forget the whole subtree")
}

func runForget(cmd *cobra.Command, args []string) error {
	path := args[0]

	ctx := context.Background()
	store, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if forgetRecursive {
		if err := store.DeleteSubtree(ctx, path); err != nil {
			return fmt.Errorf("failed to forget subtree %s: %w", path, err)
		}
		fmt.Printf("Forgot subtree %s\n", path)
		return nil
	}

	if err := store.Delete(ctx, path); err != nil {
		return fmt.Errorf("failed to forget %s: %w", path, err)
	}
	fmt.Printf("Forgot %s\n", path)
	return nil
}
