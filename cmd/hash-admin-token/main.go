package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Reads the admin token from the first argument or stdin and prints the
// value to put in ADMIN_TOKEN_HASH.
func main() {
	var token string
	if len(os.Args) > 1 {
		token = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "Admin token: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("Failed to read token: %v", err)
		}
		token = strings.TrimSpace(line)
	}
	if token == "" {
		log.Fatal("Token must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash token: %v", err)
	}

	fmt.Printf("✅ Admin token hashed successfully!\n")
	fmt.Printf("   ADMIN_TOKEN_HASH=%s\n", hash)
}
