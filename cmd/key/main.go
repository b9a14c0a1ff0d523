package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"taxi-client/internal/cli"
)

func main() {
	var (
		userID = flag.String("user-id", "", "Account id of the stub-api user (subject)")
		actor  = flag.String("actor", "RIDER", "Actor type: RIDER | DRIVER")
		secret = flag.String("secret", os.Getenv("TAXI_JWT_SECRET"), "JWT HMAC secret (HS256), same as the stub-api jwt.secret_key")
		ttl    = flag.Duration("ttl", 2*time.Hour, "Token lifetime")
	)
	flag.Parse()

	if *userID == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: key --user-id=<id> --actor=RIDER --secret='<secret>' [--ttl=2h]")
		os.Exit(2)
	}

	token, claims, err := cli.GenerateActorToken(*secret, *ttl, *userID, *actor)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Println("TOKEN:")
	fmt.Println(token)
	fmt.Println("\nCLAIMS:")
	fmt.Printf("  sub:   %s\n", claims.Subject)
	fmt.Printf("  actor: %s\n", claims.ActorType)
	fmt.Printf("  iat:   %s\n", claims.IssuedAt.Time.UTC().Format(time.RFC3339))
	fmt.Printf("  exp:   %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
}
