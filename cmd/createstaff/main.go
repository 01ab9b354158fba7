// Command createstaff creates or updates a chef or admin account.
//
//	createstaff -username chef1 -email chef1@example.com -password s3cretpass
//	createstaff -username boss -email boss@example.com -password s3cretpass -admin
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"food_crm/internal/config"
	"food_crm/internal/logger"
	"food_crm/internal/repository"
	"food_crm/internal/services"
)

// noTokens satisfies services.TokenIssuer; this command never logs anyone in.
type noTokens struct{}

func (noTokens) GenerateToken(uint, string) (string, error) {
	return "", fmt.Errorf("token minting is not available in createstaff")
}

func main() {
	username := flag.String("username", "", "staff username")
	email := flag.String("email", "", "staff email")
	password := flag.String("password", "", "staff password (at least 8 characters)")
	admin := flag.Bool("admin", false, "create a superuser (admin) instead of a chef")
	flag.Parse()

	if *username == "" || *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.MustLoad()
	cfg.Log.Stdout = true
	logger.Setup(cfg.Log)

	db, err := config.InitDB(cfg.Database, logger.GormLogger())
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	identity := services.NewIdentityService(repository.NewUserRepository(db), noTokens{})
	user, err := identity.CreateStaff(context.Background(), *username, *email, *password, *admin)
	if err != nil {
		log.Fatalf("create staff: %v", err)
	}
	fmt.Printf("staff account %q ready (id=%d, role=%s)\n", user.Username, user.ID, user.Role)
}
