package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/anoixa/photogram/internal/di"
	"github.com/anoixa/photogram/utils/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// userCmd 用户管理命令
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
}

var userBanCmd = &cobra.Command{
	Use:   "ban <username>",
	Short: "Ban a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Named("user")
		container := initContainer()
		defer container.Close()

		ok, err := container.Services().Users.Ban(context.Background(), args[0])
		if err != nil {
			log.Fatal("Failed to ban user", zap.String("username", args[0]), zap.Error(err))
		}
		if !ok {
			log.Fatal("User not found", zap.String("username", args[0]))
		}
		fmt.Printf("User %s has been banned\n", args[0])
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Run: func(cmd *cobra.Command, args []string) {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")

		log := logger.Named("user")
		container := initContainer()
		defer container.Close()

		users, total, err := container.Services().Users.List(context.Background(), page, pageSize)
		if err != nil {
			log.Fatal("Failed to list users", zap.Error(err))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tBANNED\tPICTURES")
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%d\n", u.ID, u.FullName, u.Email, u.Role, u.IsBanned, u.PictureCount)
		}
		_ = w.Flush()
		fmt.Printf("\nPage %d, %d of %d users\n", page, len(users), total)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userBanCmd, userListCmd)

	userListCmd.Flags().Int("page", 1, "Page number")
	userListCmd.Flags().Int("page-size", 20, "Users per page")
}

// initContainer 加载配置并初始化完整的依赖容器
func initContainer() *di.Container {
	cfg := loadConfig()
	container := di.NewContainer(cfg)
	if err := container.Init(); err != nil {
		logger.Named("cmd").Fatal("Failed to initialize container", zap.Error(err))
	}
	return container
}
