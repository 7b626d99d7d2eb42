package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/store"
)

type tierStore interface {
	Tier(ctx context.Context, userID string) (ai.Tier, error)
	SetTier(ctx context.Context, userID string, tier ai.Tier) error
}

type forgetter interface {
	Forget(ctx context.Context, userID string) error
}

var (
	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Inspect or change per-user state kept in Redis",
	}

	userTierCmd = &cobra.Command{
		Use:   "tier USER [basic|plus]",
		Short: "Print a user's subscription tier, or set it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := openRedis(cmd.Context(), cfg.Redis)
			if rc == nil {
				return errRedisRequired
			}
			defer rc.Close()
			tier := ""
			if len(args) == 2 {
				tier = args[1]
			}
			return userTier(cmd.Context(), store.NewRedisSubscriptions(rc), cmd.OutOrStdout(), args[0], tier)
		},
	}

	userForgetCmd = &cobra.Command{
		Use:   "forget USER",
		Short: "Drop the recent inputs remembered for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := openRedis(cmd.Context(), cfg.Redis)
			if rc == nil {
				return errRedisRequired
			}
			defer rc.Close()
			mem := store.NewRedisMemory(rc, cfg.Memory.MaxItems, cfg.Memory.TTL)
			if err := mem.Forget(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("forget %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "memory cleared for %s\n", args[0])
			return nil
		},
	}
)

var errRedisRequired = errors.New("redis unavailable: set REDIS_URL to a reachable server")

func init() {
	userCmd.AddCommand(userTierCmd, userForgetCmd)
}

// userTier prints the tier when tier is empty, otherwise stores it.
func userTier(ctx context.Context, ts tierStore, w io.Writer, userID, tier string) error {
	if tier == "" {
		t, err := ts.Tier(ctx, userID)
		if err != nil {
			return fmt.Errorf("tier lookup for %s: %w", userID, err)
		}
		fmt.Fprintf(w, "%s: %s\n", userID, t)
		return nil
	}
	switch strings.ToLower(tier) {
	case "basic", "plus", "premium", "pro":
	default:
		return fmt.Errorf("unknown tier %q (want basic or plus)", tier)
	}
	t := ai.ParseTier(tier)
	if err := ts.SetTier(ctx, userID, t); err != nil {
		return fmt.Errorf("set tier for %s: %w", userID, err)
	}
	fmt.Fprintf(w, "%s: %s\n", userID, t)
	return nil
}
