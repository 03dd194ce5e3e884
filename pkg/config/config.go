package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jesuscorral/ticketwave/pkg/bus"
)

// App holds settings shared by the services. Each main processes it with its
// own SERVICE_NAME so bus consumers and logs are tagged per service.
type App struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"ticketwave"`
	Env         string `envconfig:"ENV" default:"dev"`

	// DB
	PGBookingDSN string `envconfig:"PG_BOOKING_DSN"`
	PGCatalogDSN string `envconfig:"PG_CATALOG_DSN"`
	PGPaymentDSN string `envconfig:"PG_PAYMENT_DSN"`

	// Network
	BookingHTTPAddr string `envconfig:"BOOKING_HTTP_ADDR" default:":8081"`
	CatalogHTTPAddr string `envconfig:"CATALOG_HTTP_ADDR" default:":8082"`
	PaymentHTTPAddr string `envconfig:"PAYMENT_HTTP_ADDR" default:":8083"`

	// Omise (payment-service only)
	OmisePublicKey string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey string `envconfig:"OMISE_SECRET_KEY"`

	Bus bus.Config
}

// Load reads .env if present, then the environment.
func Load() (App, error) {
	_ = godotenv.Load()
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
