// Package redis connects the service to a Redis server with retry and
// exposes a readiness probe. The transport layer builds its cross-node
// fan-out on the returned client.
//
// Configuration comes from the environment via the Config struct:
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	hub := transport.NewRedis(client)
//
// Healthcheck returns a probe function for liveness and readiness
// endpoints.
package redis
