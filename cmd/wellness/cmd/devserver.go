package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/layer-3/wellness/adapters/events"
	"github.com/layer-3/wellness/adapters/store"
	"github.com/layer-3/wellness/config"
	"github.com/layer-3/wellness/internal/devbackend"
	"github.com/layer-3/wellness/logger"
)

var devServerCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Serve a local development backend",
	Long: `Serves the wellness API on dev_server.addr with in-memory users and
entries. Revoked refresh tokens live in redis when dev_server.use_redis is set,
and logouts are published to the redis stream when events.driver is redis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("devbackend")
		opts := []devbackend.Option{devbackend.WithLogger(log)}

		if cfg.DevServer.UseRedis || cfg.Events.Driver == config.EventsRedis {
			redisOpts, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				return fmt.Errorf("failed to parse redis url: %w", err)
			}
			client := redis.NewClient(redisOpts)
			defer client.Close()

			if cfg.DevServer.UseRedis {
				opts = append(opts, devbackend.WithRevocationStore(store.NewRedisRevocationStore(client)))
			}
			if cfg.Events.Driver == config.EventsRedis {
				pub, err := events.NewRedisStreamPublisher(client, logger.Watermill())
				if err != nil {
					return err
				}
				defer pub.Close()
				opts = append(opts, devbackend.WithEventPublisher(events.NewWatermillPublisher(pub, cfg.Events.Topic)))
			}
		}

		srv, err := devbackend.New(devbackend.Config{
			Addr:         cfg.DevServer.Addr,
			AccessTTL:    cfg.DevServer.AccessTTL,
			RefreshTTL:   cfg.DevServer.RefreshTTL,
			SecureCookie: cfg.DevServer.SecureCookie,
		}, opts...)
		if err != nil {
			return err
		}
		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(devServerCmd)
}
