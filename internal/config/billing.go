package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingRuntimeConfig is the singleton billing configuration snapshot
// surfaced on the settings screen and used by catalog sync.
type BillingRuntimeConfig struct {
	Provider        string  `mapstructure:"provider" json:"provider"`
	Currency        string  `mapstructure:"currency" json:"currency"`
	MinTermMonths   int     `mapstructure:"minTermMonths" json:"min_term_months"`
	SSTTaxRate      float64 `mapstructure:"sstTaxRate" json:"sst_tax_rate"`
	AutomaticTax    bool    `mapstructure:"automaticTax" json:"automatic_tax"`
	ManualTaxRateID string  `mapstructure:"manualTaxRateId" json:"manual_tax_rate_id"`
}

func DefaultBillingRuntimeConfig() BillingRuntimeConfig {
	return BillingRuntimeConfig{
		Provider:      "stripe",
		Currency:      "myr",
		MinTermMonths: 12,
		SSTTaxRate:    0.08,
		AutomaticTax:  false,
	}
}

// BillingConfigHolder serves the current billing runtime config and hot
// reloads it when the backing file changes.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingRuntimeConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/deskly/config")
	v.AddConfigPath("/etc/deskly")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DESKLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingRuntimeConfig()
	v.SetDefault("billing.provider", defaults.Provider)
	v.SetDefault("billing.currency", defaults.Currency)
	v.SetDefault("billing.minTermMonths", defaults.MinTermMonths)
	v.SetDefault("billing.sstTaxRate", defaults.SSTTaxRate)
	v.SetDefault("billing.automaticTax", defaults.AutomaticTax)
	v.SetDefault("billing.manualTaxRateId", defaults.ManualTaxRateID)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingRuntimeConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingRuntimeConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingRuntimeConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingRuntimeConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingRuntimeConfig {
	return h.current.Load().(BillingRuntimeConfig)
}

// NewStaticBillingConfigHolder returns a holder pinned to cfg, without file
// watching. Intended for tests.
func NewStaticBillingConfigHolder(cfg BillingRuntimeConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateBillingRuntimeConfig(cfg BillingRuntimeConfig) error {
	if strings.TrimSpace(cfg.Provider) == "" {
		return errors.New("billing.provider cannot be empty")
	}
	if len(strings.TrimSpace(cfg.Currency)) != 3 {
		return errors.New("billing.currency must be a 3-letter code")
	}
	if cfg.MinTermMonths < 0 {
		return errors.New("billing.minTermMonths cannot be negative")
	}
	if cfg.SSTTaxRate < 0 || cfg.SSTTaxRate >= 1 {
		return errors.New("billing.sstTaxRate must be within [0, 1)")
	}
	return nil
}
