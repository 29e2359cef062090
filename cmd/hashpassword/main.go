// Command hashpassword prints an argon2id hash for SELLER_PASSWORD_HASH.
//
//	go run ./cmd/hashpassword 'school123'
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/schoolpoints/backend/internal/config"
	"github.com/schoolpoints/backend/internal/services"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpassword <password>")
		os.Exit(2)
	}

	config.Init(".env")
	cfg := config.Load()

	hash, err := services.HashPassword(os.Args[1], cfg.Auth.Argon2)
	if err != nil {
		log.Fatalf("Password hashing failed: %v", err)
	}
	fmt.Println(hash)
}
