// pricectl は市場データの取得と価格更新を手動で実行するための管理コマンドです。
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"finance_backend/internal/platform/config"
	"finance_backend/internal/platform/logging"
)

func main() {
	config.LoadDotEnv()
	logging.Setup(logging.LoadConfig())

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range commands(os.Stdout, newMarket) {
		commander.Register(c, "market")
	}
	commander.Register(&migrateCmd{}, "database")
	commander.Register(&refreshCmd{out: os.Stdout}, "database")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
