package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"go.uber.org/zap"

	"github.com/ling0322/lexparse/internal/batch"
	"github.com/ling0322/lexparse/server"
)

func runServe(cmd *commander.Command, args []string) error {
	m, cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := batch.NewPool(m, m, cfg, workers)
	if err != nil {
		return err
	}
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: server.New(m, pool, logger, time.Duration(timeout)*time.Millisecond).Router(),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.Int("parsers", pool.Size()))
		errc <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func serveCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runServe,
		UsageLine: "serve <options>",
		Short:     "serves POST /parse over HTTP",
		Long: `
serves POST /parse and GET /health over HTTP

	$ ./lexparse serve -m <model> [-addr :8080] [-timeout <ms>] [-j <workers>]

	$ curl -d '{"sentence": "the dog barks"}' localhost:8080/parse
`,
		Flag: *flag.NewFlagSet("serve", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&modelFile, "m", "", "Model file, text or compiled (.db)")
	cmd.Flag.StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flag.IntVar(&timeout, "timeout", 0, "Parse timeout in milliseconds; 0 = none")
	cmd.Flag.IntVar(&workers, "j", 0, "Concurrent parsers; 0 = all CPUs")
	return cmd
}
