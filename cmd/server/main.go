package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/broker"
	"github.com/Nixie-Tech-LLC/adcast/internal/config"
	"github.com/Nixie-Tech-LLC/adcast/internal/db"
	"github.com/Nixie-Tech-LLC/adcast/internal/heartbeat"
	"github.com/Nixie-Tech-LLC/adcast/internal/impression"
	"github.com/Nixie-Tech-LLC/adcast/internal/logging"
	"github.com/Nixie-Tech-LLC/adcast/internal/playlist"
	"github.com/Nixie-Tech-LLC/adcast/internal/push"
	"github.com/Nixie-Tech-LLC/adcast/internal/redis"
	"github.com/Nixie-Tech-LLC/adcast/internal/schedule"
	"github.com/Nixie-Tech-LLC/adcast/internal/supervisor"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := db.Init(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init")
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}
	store := db.NewStore(db.DB)

	rdb := redis.NewClient(cfg.Redis.Address, cfg.Redis.Username, cfg.Redis.Password)
	defer rdb.Close()

	mq, err := broker.Connect(broker.Config{
		BrokerURL:      cfg.MQTT.BrokerURL,
		ClientID:       cfg.MQTT.ClientID,
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		ConnectTimeout: cfg.MQTT.ConnectTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect")
	}
	defer mq.Close(250)

	resolver, err := InitResolver(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init")
	}

	loc := cfg.Location()
	assembler := playlist.NewAssembler(store, resolver, redis.NewTickerStore(rdb), playlist.Config{
		DefaultMessage:      cfg.Push.DefaultMessage,
		PlaceholderDuration: cfg.Schedule.PlaceholderDuration,
		ResolveTimeout:      cfg.Storage.ResolveTimeout,
	})
	broadcaster := push.NewBroadcaster(assembler, mq, store, cfg.Push.PublishTimeout, cfg.Push.MaxConcurrent)
	aggregator := impression.NewAggregator(store, cfg.Schedule.PlaceholderDuration)
	expander := schedule.NewExpander(schedule.NewValidator(store), loc)
	schedules := schedule.NewService(expander, store, aggregator, broadcaster)

	batcher := heartbeat.NewBatcher(store, heartbeat.Config{
		FlushInterval: cfg.Heartbeat.FlushInterval,
		WriteTimeout:  cfg.Heartbeat.WriteTimeout,
		MaxConcurrent: cfg.Heartbeat.MaxConcurrent,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mq.Subscribe(ctx, broker.HeartbeatTopic, broker.QoSAtLeastOnce, batcher.Handle); err != nil {
		log.Fatal().Err(err).Msg("subscribe heartbeats")
	}

	tree := supervisor.New("adcast", supervisor.DefaultConfig())
	tree.AddBackground(batcher)
	if cfg.Push.DailyRefreshOn {
		hour, minute, err := config.ParseClock(cfg.Push.DailyRefreshAt)
		if err != nil {
			log.Fatal().Err(err).Msg("daily refresh time")
		}
		tree.AddBackground(push.NewRefresher(broadcaster, hour, minute, loc))
	}

	router := NewRouter(cfg, Services{
		Schedules:   schedules,
		Pusher:      broadcaster,
		Devices:     store,
		Impressions: aggregator,
		Reports:     store,
		Health: healthChecks{
			"database": db.Ping,
			"redis":    func(ctx context.Context) error { return redis.Ping(ctx, rdb) },
			"broker":   mq.Ping,
		},
	})
	tree.AddAPI(supervisor.NewHTTPService(newHTTPServer(cfg.ServerAddress, router), 0))

	log.Info().Str("addr", cfg.ServerAddress).Str("env", cfg.Environment).Msg("adcast server starting")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("supervisor stopped")
	}
	log.Info().Msg("adcast server stopped")
}
