package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/yourusername/shop-license/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	// Payment gateway. Provider is chosen once at startup; "zarinpal" (IRR)
	// or "paypal" (EUR).
	PaymentProvider   string
	ZarinpalMerchant  string
	ZarinpalSandbox   bool
	PayPalClientID    string
	PayPalSecret      string
	PayPalSandbox     bool
	TomanEuroRate     float64
	CallbackBaseURL   string
	PaymentSuccessURL string
	PaymentFailureURL string

	// Receipt image storage.
	ReceiptStorageDir string
	ReceiptBaseURL    string
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	tomanEuroRate, err := strconv.ParseFloat(getEnvOrDefault("TOMAN_EURO_RATE", "65000"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TOMAN_EURO_RATE: %w", err)
	}

	return &Config{
		Port:              os.Getenv("PORT"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		PaymentProvider:   getEnvOrDefault("PAYMENT_PROVIDER", "zarinpal"),
		ZarinpalMerchant:  os.Getenv("ZARINPAL_MERCHANT_ID"),
		ZarinpalSandbox:   getEnvOrDefault("ZARINPAL_SANDBOX", "false") == "true",
		PayPalClientID:    os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalSecret:      os.Getenv("PAYPAL_SECRET"),
		PayPalSandbox:     getEnvOrDefault("PAYPAL_SANDBOX", "false") == "true",
		TomanEuroRate:     tomanEuroRate,
		CallbackBaseURL:   getEnvOrDefault("CALLBACK_BASE_URL", "http://localhost:8080"),
		PaymentSuccessURL: getEnvOrDefault("PAYMENT_SUCCESS_URL", "/payment/success"),
		PaymentFailureURL: getEnvOrDefault("PAYMENT_FAILURE_URL", "/payment/failure"),
		ReceiptStorageDir: getEnvOrDefault("RECEIPT_STORAGE_DIR", "./uploads"),
		ReceiptBaseURL:    getEnvOrDefault("RECEIPT_BASE_URL", "http://localhost:8080/uploads"),
	}, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Shop{}, &models.PreInvoice{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
