package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	RedisAddr  string
	AMQPUrl    string
	AppEnv     string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    os.Getenv("APP_PORT"),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		AMQPUrl:    os.Getenv("AMQP_URL"),
		AppEnv:     os.Getenv("APP_ENV"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}

	return cfg
}
