package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"LFG_Board/internal/config"
	"LFG_Board/internal/db"
	"LFG_Board/internal/logger"
	"LFG_Board/internal/pkg"
	"LFG_Board/internal/repository/database"
	"LFG_Board/internal/repository/redis"
	"LFG_Board/internal/router"
	"LFG_Board/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (overrides "+config.EnvConfigPath+")")
	flag.Parse()

	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		log.WithError(err).Fatal("load config failed")
	}

	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		log.WithError(err).Fatal("setup logger failed")
	}
	defer closer.Close()

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		log.WithError(err).Fatal("open database failed")
	}
	// 自动建表
	if err = db.Migrate(conn); err != nil {
		log.WithError(err).Fatal("migrate failed")
	}

	// 连接redis
	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("connect redis failed")
	}
	defer rdb.Close()

	store := database.NewStore(conn)
	sessions := redis.NewSessionRepository(rdb)
	clock := service.SystemClock{}
	tokens := pkg.NewTokenIssuer(cfg.JWT)

	ledger := service.NewBanLedger(store, sessions, clock)
	quota := service.NewQuotaTracker(store, cfg.Limits, clock)
	evaluator := service.NewEntitlementEvaluator(store, ledger, quota, clock)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// outbox 投递：kafka（或日志）+ 封禁通知邮件
	sinks := []service.Sink{{Name: "log", Send: service.LogSender}}
	if cfg.Kafka.Enabled() {
		producer := pkg.NewKafkaProducer(cfg.Kafka)
		defer producer.Close()
		sinks = []service.Sink{{Name: "kafka", Send: service.KafkaSender(producer)}}
	}
	if cfg.SMTP.Enabled() {
		sinks = append(sinks, service.Sink{Name: "mail", Send: service.BanNoticeSender(store, pkg.NewSMTPMailer(cfg.SMTP))})
	}
	relayer := service.NewOutboxRelayer(store, cfg.Outbox, sinks...)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relayer.Run(ctx)
	}()

	gin.SetMode(cfg.Server.GinMode)
	r := router.InitRouter(router.Deps{
		Auth:           service.NewAuthService(store, sessions, evaluator, ledger, quota, tokens, clock, cfg.Session.TTL),
		Machine:        service.NewAccountStateMachine(store, ledger, sessions, clock),
		Evaluator:      evaluator,
		Posts:          service.NewPostService(store, store, store, evaluator, clock),
		Comments:       service.NewCommentService(store, store, evaluator, clock),
		Notifications:  service.NewNotificationService(store),
		Feedback:       service.NewFeedbackService(store, evaluator, clock),
		LoginLimiter:   redis.NewThrottleRepository(rdb),
		LoginPerMinute: cfg.Limits.LoginAttemptsPerMinute,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			log.WithError(errServe).Error("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	<-relayDone
}
