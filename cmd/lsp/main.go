package main

import (
	"github.com/benbjohnson/clock"
	"github.com/ngld/rpsl-parser/internal/config"
	"github.com/ngld/rpsl-parser/pkg/lsp"
	"github.com/tliron/glsp/server"
	"github.com/tliron/kutil/logging"
	_ "github.com/tliron/kutil/logging/simple"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	logging.Configure(cfg.Verbosity, cfg.LogPath())

	server := server.NewServer(lsp.GetHandler(clock.New(), cfg.SplitterOptions()...), "RPSL", cfg.Verbosity > 1)
	server.Log = logging.GetLogger("LSP")
	if err != nil {
		server.Log.Warningf("Failed to load config: %v", err)
	}

	err = server.RunStdio()
	if err != nil {
		panic(err)
	}
}
