package cmd

import (
	"context"
	"fmt"

	"github.com/anoixa/photogram/cache"
	"github.com/anoixa/photogram/utils/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cacheCmd 缓存管理命令
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache management commands",
	Long:  "Manage application cache. Only useful with a shared cache such as redis.",
}

// cacheEvictUserCmd 清除用户缓存
var cacheEvictUserCmd = &cobra.Command{
	Use:   "evict-user <email>...",
	Short: "Drop cached user records",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		keys := make([]string, 0, len(args))
		for _, email := range args {
			keys = append(keys, cache.UserKey(email))
		}
		runCacheDelete(keys)
	},
}

// cacheResetLimitCmd 重置限流计数器
var cacheResetLimitCmd = &cobra.Command{
	Use:   "reset-limit <scope> <key>",
	Short: "Reset a rate limit counter (e.g. comments user:42)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runCacheDelete([]string{cache.RateLimit.Build(args[0], args[1])})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheEvictUserCmd, cacheResetLimitCmd)
}

func runCacheDelete(keys []string) {
	cfg := loadConfig()
	log := logger.Named("cache")

	provider, err := cache.NewProvider(cfg)
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer provider.Close()

	if err := deleteKeys(context.Background(), provider, keys); err != nil {
		log.Fatal("Cache delete failed", zap.Error(err))
	}
	log.Info("Cache entries removed", zap.String("provider", provider.Name()), zap.Strings("keys", keys))
}

// deleteKeys 删除给定的缓存键，不存在的键直接忽略
func deleteKeys(ctx context.Context, provider cache.Provider, keys []string) error {
	for _, key := range keys {
		if err := provider.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}
