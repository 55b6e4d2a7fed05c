package cmd

import (
	"os"

	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "A photo sharing backend",
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

func Execute() {
	defer logger.Sync()
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (eg: /etc/photogram/.env)")
	err := viper.BindPFlag("config_file_path", rootCmd.PersistentFlags().Lookup("config"))
	if err != nil {
		return
	}
}

// loadConfig 加载配置并按配置重建日志
func loadConfig() *config.Config {
	config.InitConfig()
	cfg := config.Get()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	return cfg
}
