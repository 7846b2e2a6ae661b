package config

import (
	"log"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`

	// Geocoding and store location. The store coordinate anchors the
	// distance component of delivery fees.
	GoogleMapsAPIKey string  `mapstructure:"GOOGLE_MAPS_API_KEY"`
	StoreLat         float64 `mapstructure:"STORE_LAT"`
	StoreLng         float64 `mapstructure:"STORE_LNG"`

	// Timezone of the dispensary; daily and monthly compliance windows are
	// bucketed in this zone's local calendar.
	Timezone string `mapstructure:"TIMEZONE"`

	// Order confirmation email.
	SESRegion string `mapstructure:"SES_REGION"`
	SESSender string `mapstructure:"SES_SENDER"`

	StripeAPIKey string
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("TIMEZONE", "America/Los_Angeles")

	viper.AutomaticEnv() // Read in environment variables that match

	err := viper.ReadInConfig()
	if err != nil {
		// Allow a missing .env file; everything can come from the environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No .env file found.")
		} else {
			return nil, err
		}
	}

	var cfg Config
	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.StripeAPIKey = os.Getenv("STRIPE_API_KEY")

	return &cfg, nil
}
