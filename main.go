package main

import (
	"github.com/anoixa/photogram/cmd"
	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/utils/logger"
)

func main() {
	logger.Named("main").Info(config.VersionString())
	cmd.Execute()
}
