// Command tokengen prints a bearer token for the operator HTTP API.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/kombat1337-ui/Support-bot/internal/config"
	"github.com/kombat1337-ui/Support-bot/internal/service"
)

func main() {
	operator := flag.String("operator", "", "operator identifier stored in the token subject")
	flag.Parse()

	authService := service.NewAuthService(config.LoadAuth())
	issued, err := authService.IssueStaffToken(*operator)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(issued.Token)
	log.Printf("expires at %s", issued.ExpiresAt.UTC().Format(time.RFC3339))
}
