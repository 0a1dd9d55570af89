// Command xtream2m3u converts an Xtream Codes catalog into M3U playlists and
// an XMLTV guide on demand, and proxies images and media streams.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/xtream2m3u/xtream2m3u/internal/config"
	"github.com/xtream2m3u/xtream2m3u/internal/httpclient"
	"github.com/xtream2m3u/xtream2m3u/internal/server"
)

func main() {
	envFile := flag.String("env", ".env", "path to .env file (missing file is ignored)")
	port := flag.Int("port", 0, "listen port (overrides X2M_PORT / X2M_LISTEN)")
	listen := flag.String("listen", "", "listen address (overrides -port)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Printf("env file %s: %v", *envFile, err)
	}
	cfg := config.Load()
	if *listen != "" {
		cfg.ListenAddr = *listen
	} else if *port > 0 {
		cfg.ListenAddr = ":" + strconv.Itoa(*port)
	}

	httpclient.Configure(httpclient.Options{
		FallbackDNSServers: cfg.FallbackDNSServers,
		APITimeout:         cfg.APITimeout,
	})
	if len(cfg.FallbackDNSServers) > 0 {
		log.Printf("dns fallback servers: %v", cfg.FallbackDNSServers)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &server.Server{
		Addr:            cfg.ListenAddr,
		DefaultProxyURL: cfg.DefaultProxyURL,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
