package config

import "time"

type ProvisioningConfig interface {
	GetSettleDelay() time.Duration
}

type Provisioning struct {
	SettleDelay time.Duration `env:"REPO_SETTLE_DELAY" envDefault:"1s"`
}

var _ ProvisioningConfig = Provisioning{}

// GetSettleDelay is how long to wait after asking for a repository before
// checking that it exists.
func (p Provisioning) GetSettleDelay() time.Duration {
	return p.SettleDelay
}
