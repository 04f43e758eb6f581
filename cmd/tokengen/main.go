// Command tokengen mints a signed bearer token for an email, using the same
// AUTH_SECRET the API verifies with. Intended for local development and
// operational access.
package main

import (
	"flag"
	"fmt"
	"log"

	"web-analysis-platform/internal/auth"
	"web-analysis-platform/internal/config"
)

func main() {
	email := flag.String("email", "", "owner email to embed in the token")
	name := flag.String("name", "", "display name (optional)")
	flag.Parse()

	if *email == "" {
		log.Fatal("usage: tokengen -email user@example.com [-name \"User Name\"]")
	}

	cfg := config.Load()
	tokens := auth.NewTokens(cfg.AuthSecret, cfg.TokenTTL)
	token, err := tokens.Issue(auth.Identity{Email: *email, Name: *name})
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
