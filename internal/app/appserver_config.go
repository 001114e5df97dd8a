package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"tglink/internal/directory"
	"tglink/internal/preview"
	"tglink/internal/resolver"
	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

// buildDirectory 组装 name -> peer id 查询链:
// 静态种子表 -> HTTP 目录服务 (可选), 整体再包一层 Redis 缓存 (可选)。
func (s *AppServer) buildDirectory(seed map[string]types.PeerID) resolver.Directory {
	l := logger.WithComponent("AppServer/Directory")
	conf := s.cfg.DirectoryConf

	chain := directory.Chain{directory.NewStatic(seed)}
	if conf.Endpoint != "" {
		chain = append(chain, directory.NewHTTP(conf.Endpoint, time.Duration(conf.Timeout)*time.Second))
		l.Info().Str("endpoint", conf.Endpoint).Msg("Remote directory enabled.")
	}

	var lookuper directory.Lookuper = chain
	if conf.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr: conf.RedisAddr,
			DB:   conf.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			// 缓存失败时查询直接穿透, 所以这里只记录警告
			l.Warn().Err(err).Str("addr", conf.RedisAddr).Msg("Redis is not reachable, lookups will bypass the cache until it is.")
		}
		s.redisClient = client
		lookuper = directory.NewRedisCache(client, chain, time.Duration(conf.CacheTTL)*time.Second)
		l.Info().Str("addr", conf.RedisAddr).Int("db", conf.RedisDB).Msg("Directory cache enabled.")
	}

	l.Info().Int("seed_names", len(seed)).Msg("Directory ready.")
	return directory.Stream{Lookuper: lookuper}
}

func (s *AppServer) buildPreviewer() resolver.Previewer {
	conf := s.cfg.PreviewConf
	return preview.NewFetcher(time.Duration(conf.Timeout)*time.Second, conf.UserAgent)
}
