package config

import "time"

type ProxyConfig interface {
	GetExchangeTimeout() time.Duration
	GetMetricsEnabled() bool
}

type Proxy struct {
	ExchangeTimeout time.Duration `env:"PROXY_EXCHANGE_TIMEOUT" envDefault:"10s"`
	MetricsEnabled  bool          `env:"PROXY_METRICS_ENABLED"  envDefault:"true"`
}

var _ ProxyConfig = Proxy{}

func (p Proxy) GetExchangeTimeout() time.Duration {
	return p.ExchangeTimeout
}

func (p Proxy) GetMetricsEnabled() bool {
	return p.MetricsEnabled
}
