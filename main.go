package main

import (
	"log"
	"net/http"

	"github.com/finsight/modelpreview/config"
	"github.com/finsight/modelpreview/server"
	"github.com/finsight/modelpreview/storage"
)

func main() {
	cfg := config.Load()
	store := storage.NewClient(cfg)
	srv := server.New(store, cfg)

	log.Printf("model preview listening on %s (recalc %dx%d, render %dx%d)",
		cfg.ListenAddr, cfg.RecalcMaxRows, cfg.RecalcMaxCols,
		cfg.RenderMaxRows, cfg.RenderMaxCols)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Routes()); err != nil {
		log.Fatalf("server error: %v\n", err)
	}
}
