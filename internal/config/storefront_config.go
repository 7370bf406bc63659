package config

import (
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	apiBaseURLVar     = "API_BASE_URL"
	storageKeyVar     = "STORAGE_KEY"
	requestTimeoutVar = "REQUEST_TIMEOUT"
	taxRateVar        = "TAX_RATE"
	pageSizeVar       = "PAGE_SIZE"

	DefaultTaxRate  = "0.15"
	DefaultPageSize = 6
)

type StorefrontConfig interface {
	GetAPIBaseURL() string
	GetStorageKey() string
	GetRequestTimeout() time.Duration
	GetTaxRate() string
	GetPageSize() int
}

type Storefront struct{}

var _ StorefrontConfig = Storefront{}

// GetAPIBaseURL is the origin of the remote REST API, e.g. "https://localhost:7090".
func (Storefront) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "https://localhost:7090")
}

// GetStorageKey seals the session file when set. Empty means plain JSON.
func (Storefront) GetStorageKey() string {
	return GetEnv(storageKeyVar, "")
}

func (Storefront) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv(requestTimeoutVar, "15s"))
	if err != nil {
		log.Warn().Err(err).Str("var", requestTimeoutVar).Msg("invalid duration, using 15s")
		return 15 * time.Second
	}
	return d
}

func (Storefront) GetTaxRate() string {
	return GetEnv(taxRateVar, DefaultTaxRate)
}

func (Storefront) GetPageSize() int {
	n, err := strconv.Atoi(GetEnv(pageSizeVar, strconv.Itoa(DefaultPageSize)))
	if err != nil || n < 1 {
		return DefaultPageSize
	}
	return n
}
