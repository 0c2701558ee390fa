package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabasePath string

	StripePublicKey string
	StripeSecretKey string
	StripeWHSecret  string
	StripeCurrency  string

	FreeDeliveryThreshold      float64
	StandardDeliveryPercentage float64
}

// C holds the active configuration. Defaults apply until Load is called.
var C = Config{
	Port:                       "3000",
	DatabasePath:               "database.db",
	StripeCurrency:             "usd",
	FreeDeliveryThreshold:      50,
	StandardDeliveryPercentage: 10,
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment directly")
	}

	C.Port = getEnv("PORT", C.Port)
	C.DatabasePath = getEnv("DATABASE_PATH", C.DatabasePath)
	C.StripePublicKey = os.Getenv("STRIPE_PUBLIC_KEY")
	C.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	C.StripeWHSecret = os.Getenv("STRIPE_WH_SECRET")
	C.StripeCurrency = getEnv("STRIPE_CURRENCY", C.StripeCurrency)
	C.FreeDeliveryThreshold = getFloat("FREE_DELIVERY_THRESHOLD", C.FreeDeliveryThreshold)
	C.StandardDeliveryPercentage = getFloat("STANDARD_DELIVERY_PERCENTAGE", C.StandardDeliveryPercentage)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("invalid value for %s: %q", key, v)
	}
	return f
}
