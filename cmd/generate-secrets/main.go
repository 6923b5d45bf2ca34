package main

import (
	"fmt"
	"log"

	"github.com/smarthive/community-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("JWT Secret Generator for SmartHive")
	fmt.Println("===========================================")
	fmt.Println()

	accessSecret, refreshSecret, err := utils.GenerateJWTSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	adminPassword, err := utils.GenerateSecret(12)
	if err != nil {
		log.Fatalf("Failed to generate admin password: %v", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", accessSecret)
	fmt.Printf("JWT_REFRESH_SECRET=%s\n", refreshSecret)
	fmt.Printf("ADMIN_PASSWORD=%s\n", adminPassword)
	fmt.Println()
	fmt.Println("⚠️  Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
