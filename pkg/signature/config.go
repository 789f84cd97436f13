package signature

import "time"

// Config holds the queue signing keys.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	CurrentSigningKey string        `env:"QSTASH_CURRENT_SIGNING_KEY"`
	NextSigningKey    string        `env:"QSTASH_NEXT_SIGNING_KEY"`
	Issuer            string        `env:"QSTASH_ISSUER" envDefault:"Upstash"`
	ClockSkew         time.Duration `env:"QSTASH_CLOCK_SKEW" envDefault:"5s"`
}
