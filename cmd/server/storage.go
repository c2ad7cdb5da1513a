package main

import (
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/config"
	"github.com/Nixie-Tech-LLC/adcast/internal/storage"
)

// InitResolver selects the configured URL resolver and puts it behind a circuit breaker.
func InitResolver(cfg config.StorageConfig) (storage.URLResolver, error) {
	var next storage.URLResolver
	if cfg.UseSpaces {
		spaces, err := storage.NewSpacesResolver(
			cfg.SpacesEndpoint,
			cfg.SpacesRegion,
			cfg.SpacesBucket,
			cfg.SpacesAccessKey,
			cfg.SpacesSecretKey,
			cfg.PresignTTL,
		)
		if err != nil {
			return nil, err
		}
		log.Info().Str("endpoint", cfg.SpacesEndpoint).Str("bucket", cfg.SpacesBucket).Msg("using DigitalOcean Spaces presigned URLs")
		next = spaces
	} else {
		log.Info().Str("base_url", cfg.LocalBaseURL).Msg("using local media URLs")
		next = storage.NewLocalResolver(cfg.LocalBaseURL, cfg.PresignTTL)
	}

	return storage.NewBreakerResolver(next, storage.BreakerConfig{
		FailureThreshold: cfg.BreakerFailures,
		OpenTimeout:      cfg.BreakerOpenFor,
		CallTimeout:      cfg.ResolveTimeout,
	}), nil
}
