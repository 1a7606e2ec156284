// Command apiserver serves the SagaNet controllers over HTTP and the persistent socket transport.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/async"
	"github.com/xiaonanln/saganet/engine/binutil"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/controller"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/game"
	"github.com/xiaonanln/saganet/game/controllers"
	"golang.org/x/sync/errgroup"
)

var args struct {
	configFile      string
	logLevel        string
	runInDaemonMode bool
	pidFile         string
}

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.logLevel, "log", "", "set log level, will override log level in config")
	flag.BoolVar(&args.runInDaemonMode, "d", false, "run in daemon mode")
	flag.StringVar(&args.pidFile, "pidfile", "apiserver.pid", "set pid file path in daemon mode")
	flag.Parse()
}

func main() {
	parseArgs()
	if args.runInDaemonMode {
		daemoncontext := binutil.Daemonize(args.pidFile)
		defer daemoncontext.Release()
	}

	cfg, err := config.Load(args.configFile)
	if err != nil {
		gwlog.Fatalf("load config failed: %+v", err)
	}
	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = cfg.Server.LogLevel
	}
	binutil.SetupGWLog("apiserver", logLevel, cfg.Server.LogFile, cfg.Server.LogStderr)
	gwlog.Infof("apiserver starting: tier %s, config %s", cfg.Server.DeploymentTier, cfg.FilePath())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		gwlog.Fatalf("apiserver failed: %+v", err)
	}
	gwlog.Infof("apiserver stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	env, err := game.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		env.Close()
		async.Shutdown()
	}()
	if err := env.Start(ctx); err != nil {
		return err
	}

	reg := controller.NewRegistry()
	controllers.Register(reg, env)
	dispatcher := controller.NewDispatcher(reg, env.Gate)

	server := binutil.NewHTTPServer(cfg.Server.Ip, cfg.Server.Port, binutil.NewRouter(dispatcher))
	pprofServer := binutil.SetupPprofServer(cfg.Server.HTTPIp, cfg.Server.HTTPPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gwlog.Infof("serving %d controllers on %s", len(reg.Names()), server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		gwlog.Infof("shutting down ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), consts.SERVER_SHUTDOWN_TIMEOUT)
		defer cancel()
		if pprofServer != nil {
			pprofServer.Shutdown(shutdownCtx)
		}
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
