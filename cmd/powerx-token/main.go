// Command powerx-token mints a signed access token for local testing and operations.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"powerx.io/internal/auth"
	"powerx.io/internal/config"
	"powerx.io/internal/obs"
)

func main() {
	log := obs.InitLogger(obs.LogOptions{Level: "warning"})
	var (
		user   = flag.String("user", "", "User id placed in the token subject")
		scopes = flag.String("scopes", "", "Comma separated access scopes, e.g. locations:read,hvac:read")
		ttl    = flag.Duration("ttl", 0, "Token lifetime; defaults to auth.token_ttl")
	)
	flag.Parse()

	if strings.TrimSpace(*user) == "" {
		log.Fatal("usage: powerx-token -user <id> [-scopes a,b] [-ttl 1h]")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	var raw []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			raw = append(raw, s)
		}
	}
	parsed, err := auth.NewScopeCatalog().ParseAll(raw)
	if err != nil {
		log.Fatalf("scopes: %v", err)
	}

	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	token, expires, err := issuer.Issue(*user, parsed, lifetime)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Fprintln(os.Stdout, token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expires.Format("2006-01-02T15:04:05Z07:00"))
}
