// Command code-squad starts a http server that judges debugging challenge
// submissions inside a script sandbox.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/DuHerb/code-squad/challenge"
	"github.com/DuHerb/code-squad/cmd/code-squad/config"
	grpcexecutor "github.com/DuHerb/code-squad/cmd/code-squad/grpc_executor"
	restexecutor "github.com/DuHerb/code-squad/cmd/code-squad/rest_executor"
	"github.com/DuHerb/code-squad/cmd/code-squad/version"
	wsexecutor "github.com/DuHerb/code-squad/cmd/code-squad/ws_executor"
	"github.com/DuHerb/code-squad/env"
	"github.com/DuHerb/code-squad/env/jsproc"
	"github.com/DuHerb/code-squad/judger"
	"github.com/DuHerb/code-squad/progress"
	"github.com/DuHerb/code-squad/worker"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	grpc_auth "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/grpclog"
	"google.golang.org/grpc/status"
)

const shutdownTimeout = 3 * time.Second

var logger *zap.Logger

func main() {
	// environment hosts are this executable started again
	if err := jsproc.Init(); err != nil {
		log.Fatalln("environment host failed ", err)
	}

	conf := loadConf()
	if conf.Version {
		fmt.Println(version.Version)
		return
	}
	logger = newLogger(conf)
	defer logger.Sync()

	a := newApp(conf)
	a.run()
}

func loadConf() *config.Config {
	var conf config.Config
	if err := conf.Load(); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	return &conf
}

func newLogger(conf *config.Config) *zap.Logger {
	if conf.Silent {
		return zap.NewNop()
	}
	if conf.Release {
		l, err := zap.NewProduction()
		if err != nil {
			log.Fatalln("init logger failed ", err)
		}
		return l
	}
	c := zap.NewDevelopmentConfig()
	c.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !conf.EnableDebug {
		c.Level.SetLevel(zap.InfoLevel)
	}
	l, err := c.Build()
	if err != nil {
		log.Fatalln("init logger failed ", err)
	}
	return l
}

// app holds everything the listeners share
type app struct {
	conf         *config.Config
	catalog      *challenge.Memory
	store        *progress.Store
	work         worker.Worker
	builderParam map[string]any
}

// listener is one served endpoint with its graceful stop
type listener struct {
	name  string
	addr  string
	serve func(net.Listener) error
	stop  func(context.Context) error
}

func newApp(conf *config.Config) *app {
	catalog, err := challenge.Open(conf.Catalog)
	if err != nil {
		logger.Fatal("load challenge catalog failed", zap.String("path", conf.Catalog), zap.Error(err))
	}

	b, param, err := env.NewBuilder(env.Config{
		MaxStackDepth:       conf.MaxStackDepth,
		MaxOutputDepth:      conf.MaxOutputDepth,
		MaxOutputValues:     conf.MaxOutputValues,
		MemoryCheckInterval: conf.MemoryCheckInterval,
		Isolate:             conf.Isolate,
		MemoryHeadroom:      *conf.MemoryHeadroom,
		KillGrace:           conf.KillGrace,
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal("create environment builder failed", zap.Error(err))
	}
	if isolated, _ := param["isolated"].(bool); !isolated {
		conf.SharedHeap()
	}
	if conf.EnableMetrics {
		b = &metricsEnvBuilder{b}
	}
	if ce := logger.Check(zap.InfoLevel, "Config loaded"); ce != nil {
		ce.Write(zap.String("config", fmt.Sprintf("%+v", conf)))
	}

	wc := worker.Config{
		Judger: &judger.Judger{
			Builder:       b,
			Catalog:       catalog,
			Logger:        logger.Named("judger"),
			GateLimit:     conf.GateLimit(),
			CaseLimit:     conf.CaseLimit(),
			MaxSourceSize: conf.MaxSourceSize,
		},
		Parallelism: conf.Parallelism,
		Logger:      logger.Named("worker"),
	}
	if conf.EnableMetrics {
		wc.ExecObserver = execObserve
	}
	return &app{
		conf:         conf,
		catalog:      catalog,
		store:        progress.NewStore(),
		work:         worker.New(wc),
		builderParam: param,
	}
}

// run serves until a signal arrives or a listener fails, then stops
// everything within shutdownTimeout
func (a *app) run() {
	a.work.Start()
	logger.Info("Worker started",
		zap.Int("parallelism", a.conf.Parallelism),
		zap.Int("challenges", a.catalog.Len()),
		zap.Stringer("memoryLimit", a.conf.MemoryLimit),
		zap.Duration("callTimeout", a.conf.CallTimeout))

	ctx, stopSignal := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignal()
	ctx, cancel := context.WithCancel(ctx)

	listeners := a.listeners()
	for _, l := range listeners {
		go func() {
			defer cancel()
			lis, err := net.Listen("tcp", l.addr)
			if err != nil {
				logger.Error("listen failed", zap.String("server", l.name), zap.Error(err))
				return
			}
			logger.Info("Starting server", zap.String("server", l.name), zap.Stringer("listener", lis.Addr()))
			err = l.serve(lis)
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			logger.Info("Server stopped", zap.String("server", l.name), zap.Error(err))
		}()
	}
	<-ctx.Done()
	stopSignal()
	logger.Info("Shutting Down...")

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	var eg errgroup.Group
	for _, l := range listeners {
		eg.Go(func() error {
			return l.stop(sctx)
		})
	}
	// listeners first, so no request is left waiting on the worker
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := eg.Wait()
		a.work.Shutdown()
		logger.Info("Shutdown Finished", zap.Error(err))
	}()
	select {
	case <-done:
	case <-sctx.Done():
		logger.Warn("Shutdown timed out")
	}
}

func (a *app) listeners() []listener {
	srv := &http.Server{Handler: a.httpHandler()}
	ls := []listener{{
		name:  "http",
		addr:  a.conf.HTTPAddr,
		serve: srv.Serve,
		stop:  srv.Shutdown,
	}}

	if h := a.monitorHandler(); h != nil {
		msrv := &http.Server{Handler: h}
		ls = append(ls, listener{
			name:  "monitor",
			addr:  a.conf.MonitorAddr,
			serve: msrv.Serve,
			stop:  msrv.Shutdown,
		})
	}

	if a.conf.EnableGRPC {
		gs := a.grpcServer()
		ls = append(ls, listener{
			name:  "grpc",
			addr:  a.conf.GRPCAddr,
			serve: gs.Serve,
			stop: func(context.Context) error {
				gs.GracefulStop()
				return nil
			},
		})
	}
	return ls
}

func (a *app) httpHandler() http.Handler {
	if a.conf.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(ginzap.Ginzap(logger, "", false))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	if a.conf.EnableMetrics {
		p := ginprometheus.NewWithConfig(ginprometheus.Config{
			Subsystem:          "gin",
			DisableBodyReading: true,
		})
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			return c.FullPath()
		}
		r.Use(p.HandlerFunc())
	}

	r.GET("/version", a.handleVersion)
	r.GET("/config", a.handleConfig)

	if a.conf.AuthToken != "" {
		r.Use(tokenAuth(a.conf.AuthToken))
		logger.Info("Attach token auth")
	}

	restexecutor.NewExecuteHandle(a.work, a.store, logger).Register(r)
	restexecutor.NewChallengeHandle(a.catalog).Register(r)
	restexecutor.NewProgressHandle(a.store, logger).Register(r)
	wsexecutor.New(a.work, a.store, logger).Register(r)
	return r
}

func (a *app) monitorHandler() http.Handler {
	if !a.conf.EnableMetrics && !a.conf.EnableDebug {
		return nil
	}
	mux := http.NewServeMux()
	if a.conf.EnableMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	if a.conf.EnableDebug {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func (a *app) grpcServer() *grpc.Server {
	grpclog.SetLoggerV2(zapgrpc.NewLogger(logger))
	prom := grpc_prometheus.NewServerMetrics(grpc_prometheus.WithServerHandlingTimeHistogram())
	interceptors := []grpc.UnaryServerInterceptor{
		prom.UnaryServerInterceptor(),
		grpc_logging.UnaryServerInterceptor(interceptorLogger(logger)),
		grpc_recovery.UnaryServerInterceptor(),
	}
	if a.conf.AuthToken != "" {
		interceptors = append(interceptors, grpc_auth.UnaryServerInterceptor(grpcTokenAuth(a.conf.AuthToken)))
	}
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptors...),
		grpc.MaxRecvMsgSize(int(a.conf.GRPCMsgSize.Byte())),
	)
	grpcexecutor.RegisterExecutorServer(s, grpcexecutor.New(a.work, a.store, logger))
	prom.InitializeMetrics(s)
	prometheus.MustRegister(prom)
	return s
}

func (a *app) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"buildVersion": version.Version,
		"goVersion":    runtime.Version(),
		"platform":     runtime.GOARCH,
		"os":           runtime.GOOS,
		"stream":       true,
	})
}

func (a *app) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stream":        true,
		"grpc":          a.conf.EnableGRPC,
		"parallelism":   a.conf.Parallelism,
		"maxSourceSize": a.conf.MaxSourceSize,
		"caseLimit":     a.conf.CaseLimit(),
		"gateLimit":     a.conf.GateLimit(),
		"runnerConfig":  a.builderParam,
	})
}

// interceptorLogger adapts zap to the grpc middleware logger
func interceptorLogger(l *zap.Logger) grpc_logging.Logger {
	return grpc_logging.LoggerFunc(func(_ context.Context, lvl grpc_logging.Level, msg string, fields ...any) {
		f := make([]zap.Field, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, _ := fields[i].(string)
			f = append(f, zap.Any(key, fields[i+1]))
		}
		ll := l.WithOptions(zap.AddCallerSkip(1)).With(f...)
		switch lvl {
		case grpc_logging.LevelDebug:
			ll.Debug(msg)
		case grpc_logging.LevelWarn:
			ll.Warn(msg)
		case grpc_logging.LevelError:
			ll.Error(msg)
		default:
			ll.Info(msg)
		}
	})
}

func tokenAuth(token string) gin.HandlerFunc {
	const bearer = "Bearer "
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), bearer)
		if !ok || got != token {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func grpcTokenAuth(token string) grpc_auth.AuthFunc {
	return func(ctx context.Context) (context.Context, error) {
		got, err := grpc_auth.AuthFromMD(ctx, "bearer")
		if err != nil {
			return nil, err
		}
		if got != token {
			return nil, status.Errorf(codes.Unauthenticated, "invalid auth token")
		}
		return ctx, nil
	}
}
