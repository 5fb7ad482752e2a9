package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads a .env file if one is present. Deployed environments set real
// environment variables instead, so a missing file is not an error.
func Load() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}
}

// MustGet returns the value of an environment variable or exits.
func MustGet(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s is not set", key)
	}
	return value
}

// GetDefault returns the value of an environment variable or the fallback.
func GetDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// SecondsDefault reads an integer number of seconds from the environment.
func SecondsDefault(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("%s must be an integer number of seconds: %v", key, err)
	}
	return time.Duration(seconds) * time.Second
}
